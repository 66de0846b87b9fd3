// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package input implements the input context for OData JSON payloads.
//
// A Context owns the input stream of one message. It chooses a token reader
// when it is constructed, resolves the metadata level of the payload, and
// hands its token reader to structured readers on request, after checking
// that the request makes sense for the payload's direction and model:
//
//	ctx, err := input.New(body, input.MessageInfo{
//	   MediaType: mt,
//	   Response:  true,
//	   Model:     model,
//	}, input.DefaultSettings())
//	if err != nil {
//	   log.Fatalf("New: %v", err)
//	}
//	defer ctx.Close()
//	rs, err := ctx.CreateResourceSetReader(people, nil)
//
// If the media type has the odata.streaming parameter set, the payload is
// read with a jsonreader.Buffering reader, which reads in physical order.
// Otherwise it is read with a jsonreader.Reordering reader, which can find
// control annotations anywhere in an object.
//
// A Context is not safe for concurrent use, and only one structured reader
// may consume its input at a time.
package input

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
	"github.com/creachadair/odatajson/metadata"
	"github.com/creachadair/odatajson/reader"
	"github.com/google/uuid"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// errorProperty is the name of the top-level member of an error payload.
const errorProperty = "error"

// MessageInfo describes the message a Context reads.
type MessageInfo struct {
	// MediaType is the negotiated content type of the payload.
	MediaType metadata.MediaType

	// Encoding is the character encoding of the payload. If it is empty, the
	// charset parameter of the media type is used, or else UTF-8.
	Encoding string

	// ContentEncoding is the content coding of the payload bytes: "gzip",
	// "zstd", or "identity". Empty means identity.
	ContentEncoding string

	// Response reports whether the payload is a response. Otherwise it is a
	// request.
	Response bool

	// Model is the service model. It may be nil.
	Model *edm.Model
}

// A Context is the input context for a single message.
type Context struct {
	id        uuid.UUID
	raw       io.Reader
	tokens    jsonreader.Reader
	level     metadata.Level
	model     *edm.Model
	response  bool
	optPrefix bool
	log       *slog.Logger

	release  []func() error  // in acquisition order
	closed   bool
	consumed bool            // a single-call read has run
	active   reader.Finisher // the most recently created incremental reader
}

// New constructs a Context that reads the bytes of a payload from r,
// decompressed according to the content coding of the message and decoded
// according to its character encoding. If r implements
// io.Closer, the Context takes ownership of it and closes it when the Context
// is closed, or when construction fails.
func New(r io.Reader, info MessageInfo, settings Settings) (*Context, error) {
	return newContext(r, info, settings, true)
}

// NewFromText constructs a Context that reads payload text from r, which must
// already be decoded to UTF-8. The content coding of the message is still
// applied. Ownership of r is as for New.
func NewFromText(r io.Reader, info MessageInfo, settings Settings) (*Context, error) {
	return newContext(r, info, settings, false)
}

func newContext(r io.Reader, info MessageInfo, settings Settings, decode bool) (_ *Context, err error) {
	c := &Context{
		id:       uuid.New(),
		raw:      r,
		model:    info.Model,
		response: info.Response,
	}
	if rc, ok := r.(io.Closer); ok {
		c.release = append(c.release, rc.Close)
	}
	defer func() {
		if err != nil {
			if cerr := c.releaseAll(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			err = &ConstructionError{Err: err}
		}
	}()

	if err := settings.check(); err != nil {
		return nil, err
	}
	settings = settings.withDefaults()

	text, release, err := decompress(r, info.ContentEncoding)
	if err != nil {
		return nil, err
	} else if release != nil {
		c.release = append(c.release, release)
	}
	if decode {
		text, err = decoder(text, info)
		if err != nil {
			return nil, err
		}
	}
	src, err := settings.TokenSource(text, info.MediaType.IEEE754Compatible())
	if err != nil {
		return nil, fmt.Errorf("token source: %w", err)
	}

	variant := "reordering"
	if info.MediaType.Streaming() {
		variant = "buffering"
		c.tokens = jsonreader.NewBuffering(src, errorProperty, settings.MaxNestingDepth)
	} else {
		c.tokens = jsonreader.NewReordering(src, settings.MaxNestingDepth)
	}
	c.level = metadata.Resolve(info.MediaType, info.Model.IsUserModel(), info.Response)
	c.optPrefix = settings.Version != "4.0" || settings.EnableReadingODataAnnotationWithoutPrefix

	c.log = settings.Logger.With(slog.String("context", c.id.String()))
	c.log.Debug("input context created",
		slog.String("reader", variant),
		slog.String("level", c.level.String()),
		slog.Bool("response", c.response),
		slog.Int("maxDepth", settings.MaxNestingDepth),
	)
	return c, nil
}

// decoder returns a reader that decodes r to UTF-8. A byte order mark at the
// start of the input overrides the declared encoding.
func decoder(r io.Reader, info MessageInfo) (io.Reader, error) {
	label := info.Encoding
	if label == "" {
		label = info.MediaType.Charset()
	}
	if label == "" {
		label = "utf-8"
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("unsupported character encoding %q", label)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// Close releases the resources owned by c. Calls after the first have no
// effect and return nil. After Close, every operation on c reports
// ErrDisposed, and so does every reader created from c.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.active = nil
	c.tokens.Abort(ErrDisposed)
	c.log.Debug("input context closed")
	return c.releaseAll()
}

// releaseAll releases owned resources in the reverse of the order they were
// acquired, and reports all the errors that result.
func (c *Context) releaseAll() error {
	var errs []error
	for i := len(c.release) - 1; i >= 0; i-- {
		errs = append(errs, c.release[i]())
	}
	c.release = nil
	return errors.Join(errs...)
}

// ID returns a unique identifier for c, used to correlate its log records.
func (c *Context) ID() string { return c.id.String() }

// MetadataLevel reports the metadata level of the payload.
func (c *Context) MetadataLevel() metadata.Level { return c.level }

// TokenReader returns the token reader for the payload. It is a
// *jsonreader.Buffering for a streaming payload, and otherwise a
// *jsonreader.Reordering.
func (c *Context) TokenReader() jsonreader.Reader { return c.tokens }

// Stream returns the input stream of the payload as passed to the
// constructor, before decompression and decoding.
func (c *Context) Stream() io.Reader { return c.raw }

// OptionalODataPrefix reports whether OData annotations in the payload may
// omit the "odata." prefix.
func (c *Context) OptionalODataPrefix() bool { return c.optPrefix }

// ReadingResponse reports whether the payload is a response.
func (c *Context) ReadingResponse() bool { return c.response }

// Model returns the model of the message, or nil if there is none.
func (c *Context) Model() *edm.Model { return c.model }

// source returns the input to a structured reader.
func (c *Context) source() reader.Source {
	return reader.Source{
		Tokens:         c.tokens,
		Level:          c.level,
		Model:          c.model,
		Response:       c.response,
		OptionalPrefix: c.optPrefix,
	}
}
