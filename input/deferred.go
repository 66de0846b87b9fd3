// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package input

import (
	"context"

	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/reader"
)

// A Deferred is the result of the deferred form of a context operation.
//
// The payload of a context is fully available when the operation is called,
// so the operation runs to completion before its Deferred is returned. The
// deferred forms exist so that callers written against incremental
// transports can use a context unchanged; they do not overlap any work.
type Deferred[T any] struct {
	value T
	err   error
}

// closed is shared by all resolved values.
var closed = func() chan struct{} { c := make(chan struct{}); close(c); return c }()

// runDeferred calls f and returns its result as a resolved Deferred.
func runDeferred[T any](f func() (T, error)) *Deferred[T] {
	v, err := f()
	return &Deferred[T]{value: v, err: err}
}

// Done returns a channel that is closed when the result is ready. It is
// always closed.
func (d *Deferred[T]) Done() <-chan struct{} { return closed }

// Wait returns the result of the operation. It never blocks; ctx is accepted
// for compatibility with incremental implementations and is not consulted.
func (d *Deferred[T]) Wait(ctx context.Context) (T, error) { return d.value, d.err }

// CreateResourceSetReaderDeferred is the deferred form of CreateResourceSetReader.
func (c *Context) CreateResourceSetReaderDeferred(nav *edm.NavigationSource, typ *edm.StructuredType) *Deferred[*reader.ResourceSetReader] {
	return runDeferred(func() (*reader.ResourceSetReader, error) { return c.CreateResourceSetReader(nav, typ) })
}

// CreateUriParameterResourceSetReaderDeferred is the deferred form of
// CreateUriParameterResourceSetReader.
func (c *Context) CreateUriParameterResourceSetReaderDeferred(nav *edm.NavigationSource, typ *edm.StructuredType) *Deferred[*reader.ResourceSetReader] {
	return runDeferred(func() (*reader.ResourceSetReader, error) { return c.CreateUriParameterResourceSetReader(nav, typ) })
}

// CreateDeltaResourceSetReaderDeferred is the deferred form of
// CreateDeltaResourceSetReader.
func (c *Context) CreateDeltaResourceSetReaderDeferred(nav *edm.NavigationSource, typ *edm.StructuredType) *Deferred[*reader.ResourceSetReader] {
	return runDeferred(func() (*reader.ResourceSetReader, error) { return c.CreateDeltaResourceSetReader(nav, typ) })
}

// CreateResourceReaderDeferred is the deferred form of CreateResourceReader.
func (c *Context) CreateResourceReaderDeferred(nav *edm.NavigationSource, typ *edm.StructuredType) *Deferred[*reader.ResourceReader] {
	return runDeferred(func() (*reader.ResourceReader, error) { return c.CreateResourceReader(nav, typ) })
}

// CreateUriParameterResourceReaderDeferred is the deferred form of
// CreateUriParameterResourceReader.
func (c *Context) CreateUriParameterResourceReaderDeferred(nav *edm.NavigationSource, typ *edm.StructuredType) *Deferred[*reader.ResourceReader] {
	return runDeferred(func() (*reader.ResourceReader, error) { return c.CreateUriParameterResourceReader(nav, typ) })
}

// CreateDeltaReaderDeferred is the deferred form of CreateDeltaReader.
func (c *Context) CreateDeltaReaderDeferred(nav *edm.NavigationSource, typ *edm.StructuredType) *Deferred[*reader.DeltaReader] {
	return runDeferred(func() (*reader.DeltaReader, error) { return c.CreateDeltaReader(nav, typ) })
}

// CreateCollectionReaderDeferred is the deferred form of CreateCollectionReader.
func (c *Context) CreateCollectionReaderDeferred(item *edm.TypeRef) *Deferred[*reader.CollectionReader] {
	return runDeferred(func() (*reader.CollectionReader, error) { return c.CreateCollectionReader(item) })
}

// CreateParameterReaderDeferred is the deferred form of CreateParameterReader.
func (c *Context) CreateParameterReaderDeferred(op *edm.Operation) *Deferred[*reader.ParameterReader] {
	return runDeferred(func() (*reader.ParameterReader, error) { return c.CreateParameterReader(op) })
}

// CreateBatchReaderDeferred is the deferred form of CreateBatchReader.
func (c *Context) CreateBatchReaderDeferred() *Deferred[*reader.BatchReader] {
	return runDeferred(c.CreateBatchReader)
}

// ReadPropertyDeferred is the deferred form of ReadProperty.
func (c *Context) ReadPropertyDeferred(prop *edm.Property, expected *edm.TypeRef) *Deferred[*reader.Property] {
	return runDeferred(func() (*reader.Property, error) { return c.ReadProperty(prop, expected) })
}

// ReadErrorDeferred is the deferred form of ReadError.
func (c *Context) ReadErrorDeferred() *Deferred[*reader.ODataError] { return runDeferred(c.ReadError) }

// ReadServiceDocumentDeferred is the deferred form of ReadServiceDocument.
func (c *Context) ReadServiceDocumentDeferred() *Deferred[*reader.ServiceDocument] {
	return runDeferred(c.ReadServiceDocument)
}

// ReadEntityReferenceLinkDeferred is the deferred form of ReadEntityReferenceLink.
func (c *Context) ReadEntityReferenceLinkDeferred() *Deferred[string] {
	return runDeferred(c.ReadEntityReferenceLink)
}

// ReadEntityReferenceLinksDeferred is the deferred form of ReadEntityReferenceLinks.
func (c *Context) ReadEntityReferenceLinksDeferred() *Deferred[*reader.EntityReferenceLinks] {
	return runDeferred(c.ReadEntityReferenceLinks)
}

// DetectPayloadKindDeferred is the deferred form of DetectPayloadKind.
func (c *Context) DetectPayloadKindDeferred() *Deferred[mapset.Set[reader.PayloadKind]] {
	return runDeferred(c.DetectPayloadKind)
}
