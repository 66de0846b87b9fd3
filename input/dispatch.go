// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package input

import (
	"log/slog"

	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/reader"
)

// RequestKind identifies the structured reader a Request asks for.
type RequestKind byte

// Constants defining the valid RequestKind values.
const (
	ResourceSetRequest RequestKind = iota + 1
	ResourceRequest
	DeltaRequest
	CollectionRequest
	ParameterRequest
	BatchRequest
	PropertyRequest
	ErrorRequest
	ServiceDocumentRequest
	EntityReferenceLinkRequest
	EntityReferenceLinksRequest
	DetectRequest
)

var requestStr = [...]string{
	ResourceSetRequest:          "resource set",
	ResourceRequest:             "resource",
	DeltaRequest:                "delta",
	CollectionRequest:           "collection",
	ParameterRequest:            "parameter",
	BatchRequest:                "batch",
	PropertyRequest:             "property",
	ErrorRequest:                "error",
	ServiceDocumentRequest:      "service document",
	EntityReferenceLinkRequest:  "entity reference link",
	EntityReferenceLinksRequest: "entity reference links",
	DetectRequest:               "payload kind detection",
}

func (k RequestKind) String() string {
	if k == 0 || int(k) >= len(requestStr) {
		return "invalid request"
	}
	return requestStr[k]
}

// A Request describes a structured reader to be created from a Context.
type Request struct {
	Kind         RequestKind
	Source       *edm.NavigationSource // for resources, sets, and deltas
	Type         *edm.StructuredType   // expected resource type
	ItemType     *edm.TypeRef          // for collections
	Operation    *edm.Operation        // for parameters
	Delta        bool
	URIParameter bool
}

// Validate reports whether c can satisfy req. It does not consume input.
//
// The checks are applied in order: the context must be open, the payload
// must not have been read by a single-call read, a previous reader must have
// finished, and then the model, navigation source, and
// argument requirements of the request kind must hold.
func (c *Context) Validate(req Request) error {
	if c.closed {
		return ErrDisposed
	}
	if c.consumed {
		return ErrInputConsumed
	}
	if c.active != nil && !c.active.Finished() {
		return ErrReaderActive
	}
	switch req.Kind {
	case ResourceSetRequest, ResourceRequest, DeltaRequest:
		return c.checkResource(req.Source, req.Type)

	case CollectionRequest:
		if !c.response {
			if err := c.requireModel(); err != nil {
				return err
			}
			if req.ItemType == nil {
				return ErrItemTypeRequired
			}
		}

	case ParameterRequest:
		if err := c.requireModel(); err != nil {
			return err
		}
		if req.Operation == nil {
			return &NullArgumentError{Name: "operation"}
		}

	case PropertyRequest, EntityReferenceLinkRequest, EntityReferenceLinksRequest:
		if !c.response {
			return c.requireModel()
		}

	case DetectRequest:
		if !c.response {
			return ErrNotSupportedForRequest
		}
	}
	return nil
}

func (c *Context) requireModel() error {
	if !c.model.IsUserModel() {
		return ErrModelRequired
	}
	return nil
}

// checkResource checks a request for a reader of resources from nav having
// expected type typ.
func (c *Context) checkResource(nav *edm.NavigationSource, typ *edm.StructuredType) error {
	if !c.response {
		if err := c.requireModel(); err != nil {
			return err
		}
	}
	if nav == nil {
		if !c.response && typ.IsEntity() {
			return ErrMissingEntitySet
		}
		return nil
	}
	if typ != nil && nav.ElementType != nil && !typ.IsOrInheritsFrom(nav.ElementType) {
		return &IncompatibleTypeError{
			Type:    typ.FullName(),
			SetType: nav.ElementType.FullName(),
			Source:  nav.Name,
		}
	}
	return nil
}

// begin validates req and records the start of a dispatch.
func (c *Context) begin(req Request) error {
	if err := c.Validate(req); err != nil {
		c.log.Debug("dispatch rejected", slog.String("request", req.Kind.String()), slog.Any("error", err))
		return err
	}
	c.log.Debug("dispatch", slog.String("request", req.Kind.String()))
	return nil
}

// track records r as the active reader of c.
func track[R reader.Finisher](c *Context, r R) R { c.active = r; return r }

// readOnce runs a single-call read of the payload. The payload counts as
// consumed afterward, whether or not the read succeeds.
func readOnce[T any](c *Context, req Request, read func(reader.Source) (T, error)) (T, error) {
	if err := c.begin(req); err != nil {
		var zero T
		return zero, err
	}
	c.consumed = true
	return read(c.source())
}

// CreateResourceSetReader returns a reader for a resource set from nav, whose
// resources have expected type typ. If typ is nil, the element type of nav is
// used.
func (c *Context) CreateResourceSetReader(nav *edm.NavigationSource, typ *edm.StructuredType) (*reader.ResourceSetReader, error) {
	return c.resourceSet(nav, typ, reader.SetOptions{})
}

// CreateUriParameterResourceSetReader returns a reader for a resource set
// passed as the value of a URI parameter.
func (c *Context) CreateUriParameterResourceSetReader(nav *edm.NavigationSource, typ *edm.StructuredType) (*reader.ResourceSetReader, error) {
	return c.resourceSet(nav, typ, reader.SetOptions{URIParameter: true})
}

// CreateDeltaResourceSetReader returns a reader for a resource set that may
// contain delta annotations.
func (c *Context) CreateDeltaResourceSetReader(nav *edm.NavigationSource, typ *edm.StructuredType) (*reader.ResourceSetReader, error) {
	return c.resourceSet(nav, typ, reader.SetOptions{Delta: true})
}

func (c *Context) resourceSet(nav *edm.NavigationSource, typ *edm.StructuredType, opts reader.SetOptions) (*reader.ResourceSetReader, error) {
	req := Request{Kind: ResourceSetRequest, Source: nav, Type: typ, Delta: opts.Delta, URIParameter: opts.URIParameter}
	if err := c.begin(req); err != nil {
		return nil, err
	}
	return track(c, reader.NewResourceSetReader(c.source(), nav, elemType(nav, typ), opts)), nil
}

// CreateResourceReader returns a reader for a single resource from nav with
// expected type typ. A resource in a request payload is read in delta mode,
// so that it may carry delta annotations for nested updates.
func (c *Context) CreateResourceReader(nav *edm.NavigationSource, typ *edm.StructuredType) (*reader.ResourceReader, error) {
	return c.resource(nav, typ, false)
}

// CreateUriParameterResourceReader returns a reader for a single resource
// passed as the value of a URI parameter.
func (c *Context) CreateUriParameterResourceReader(nav *edm.NavigationSource, typ *edm.StructuredType) (*reader.ResourceReader, error) {
	return c.resource(nav, typ, true)
}

func (c *Context) resource(nav *edm.NavigationSource, typ *edm.StructuredType, uriParam bool) (*reader.ResourceReader, error) {
	if err := c.begin(Request{Kind: ResourceRequest, Source: nav, Type: typ, URIParameter: uriParam}); err != nil {
		return nil, err
	}
	return track(c, reader.NewResourceReader(c.source(), nav, elemType(nav, typ), !c.response)), nil
}

// CreateDeltaReader returns a reader for a delta payload from nav, whose
// resources have expected base type typ.
func (c *Context) CreateDeltaReader(nav *edm.NavigationSource, typ *edm.StructuredType) (*reader.DeltaReader, error) {
	if err := c.begin(Request{Kind: DeltaRequest, Source: nav, Type: typ, Delta: true}); err != nil {
		return nil, err
	}
	return track(c, reader.NewDeltaReader(c.source(), nav, elemType(nav, typ))), nil
}

// CreateCollectionReader returns a reader for a collection of values of the
// given item type. The item type is required for a request payload.
func (c *Context) CreateCollectionReader(item *edm.TypeRef) (*reader.CollectionReader, error) {
	if err := c.begin(Request{Kind: CollectionRequest, ItemType: item}); err != nil {
		return nil, err
	}
	return track(c, reader.NewCollectionReader(c.source(), item)), nil
}

// CreateParameterReader returns a reader for the parameters of op.
func (c *Context) CreateParameterReader(op *edm.Operation) (*reader.ParameterReader, error) {
	if err := c.begin(Request{Kind: ParameterRequest, Operation: op}); err != nil {
		return nil, err
	}
	return track(c, reader.NewParameterReader(c.source(), op)), nil
}

// CreateBatchReader returns a reader for a JSON batch payload.
func (c *Context) CreateBatchReader() (*reader.BatchReader, error) {
	if err := c.begin(Request{Kind: BatchRequest}); err != nil {
		return nil, err
	}
	return track(c, reader.NewBatchReader(c.source())), nil
}

// ReadProperty reads a top-level property payload. The expected type of the
// value is expected if it is non-nil, otherwise the type of prop if that is
// non-nil. If both are nil, the value is not checked.
func (c *Context) ReadProperty(prop *edm.Property, expected *edm.TypeRef) (*reader.Property, error) {
	if expected == nil && prop != nil {
		expected = &prop.Type
	}
	return readOnce(c, Request{Kind: PropertyRequest}, func(src reader.Source) (*reader.Property, error) {
		return reader.ReadProperty(src, expected)
	})
}

// ReadError reads a top-level error payload.
func (c *Context) ReadError() (*reader.ODataError, error) {
	return readOnce(c, Request{Kind: ErrorRequest}, reader.ReadError)
}

// ReadServiceDocument reads a service document payload.
func (c *Context) ReadServiceDocument() (*reader.ServiceDocument, error) {
	return readOnce(c, Request{Kind: ServiceDocumentRequest}, reader.ReadServiceDocument)
}

// ReadEntityReferenceLink reads a single entity reference link and returns
// the identifier it refers to.
func (c *Context) ReadEntityReferenceLink() (string, error) {
	return readOnce(c, Request{Kind: EntityReferenceLinkRequest}, reader.ReadEntityReferenceLink)
}

// ReadEntityReferenceLinks reads a collection of entity reference links.
func (c *Context) ReadEntityReferenceLinks() (*reader.EntityReferenceLinks, error) {
	return readOnce(c, Request{Kind: EntityReferenceLinksRequest}, reader.ReadEntityReferenceLinks)
}

// DetectPayloadKind reports the kinds of payload the input may be, judged
// from the context URL of the payload and the model. It does not consume
// input, so a reader for one of the reported kinds may be created afterward.
// Detection is only supported for responses.
func (c *Context) DetectPayloadKind() (mapset.Set[reader.PayloadKind], error) {
	if err := c.begin(Request{Kind: DetectRequest}); err != nil {
		return nil, err
	}
	return reader.DetectPayloadKind(c.source())
}

// elemType returns typ if it is non-nil, or else the element type of nav.
func elemType(nav *edm.NavigationSource, typ *edm.StructuredType) *edm.StructuredType {
	if typ == nil && nav != nil {
		return nav.ElementType
	}
	return typ
}
