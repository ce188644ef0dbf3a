package apischema

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/broady/apischema/internal/meta"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New()
	queryDecoder  = schema.NewDecoder()
	headerDecoder = schema.NewDecoder()
)

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
	headerDecoder.IgnoreUnknownKeys(true)
	headerDecoder.SetAliasTag("header")
}

// Endpoint is a registrable handler. Create one with NewHandler or
// NewHandlerWithHeaders.
type Endpoint interface {
	Metadata() *meta.MethodMetadata
	serve(c *call)
}

// Empty is a void request or response. A nil Empty encodes as null and
// appears in the schema as std::Unit.
type Empty *struct{}

// NoHeaders is the header type of endpoints that read no headers.
type NoHeaders struct{}

// Handler adapts a typed function to an Endpoint.
type Handler[Req any, Hdr any, Res any] struct {
	fn          func(context.Context, Req, Hdr) (Res, error)
	hasHeaders  bool
	readonly    bool
	description string
	deprecated  string
	errType      reflect.Type
	maxBodySize  *uint64
	interceptors []Interceptor
}

// NewHandler creates an endpoint from fn. It is served over POST with a
// JSON body unless marked Readonly.
func NewHandler[Req any, Res any](fn func(context.Context, Req) (Res, error)) *Handler[Req, NoHeaders, Res] {
	return &Handler[Req, NoHeaders, Res]{
		fn: func(ctx context.Context, req Req, _ NoHeaders) (Res, error) {
			return fn(ctx, req)
		},
	}
}

// NewHandlerWithHeaders creates an endpoint that also receives typed
// headers. Header struct fields are matched by their `header` tag, case
// insensitively.
func NewHandlerWithHeaders[Req any, Hdr any, Res any](fn func(context.Context, Req, Hdr) (Res, error)) *Handler[Req, Hdr, Res] {
	return &Handler[Req, Hdr, Res]{fn: fn, hasHeaders: true}
}

// Readonly marks the endpoint free of side effects. It is then served
// over GET with the request decoded from the query string.
func (h *Handler[Req, Hdr, Res]) Readonly() *Handler[Req, Hdr, Res] {
	h.readonly = true
	return h
}

// Describe sets the endpoint description.
func (h *Handler[Req, Hdr, Res]) Describe(doc string) *Handler[Req, Hdr, Res] {
	h.description = doc
	return h
}

// Deprecate marks the endpoint deprecated with the given note.
func (h *Handler[Req, Hdr, Res]) Deprecate(note string) *Handler[Req, Hdr, Res] {
	h.deprecated = note
	return h
}

// WithErrorType declares the error body the endpoint returns in place of
// the default *Error envelope. example is only used for its type.
func (h *Handler[Req, Hdr, Res]) WithErrorType(example any) *Handler[Req, Hdr, Res] {
	h.errType = reflect.TypeOf(example)
	return h
}

// WithMaxRequestBodySize overrides the app's body size limit. Zero means
// no limit.
func (h *Handler[Req, Hdr, Res]) WithMaxRequestBodySize(size uint64) *Handler[Req, Hdr, Res] {
	h.maxBodySize = &size
	return h
}

// WithInterceptor adds an interceptor that runs inside the app's
// interceptors.
func (h *Handler[Req, Hdr, Res]) WithInterceptor(i Interceptor) *Handler[Req, Hdr, Res] {
	h.interceptors = append(h.interceptors, i)
	return h
}

// Metadata returns the endpoint's runtime metadata.
func (h *Handler[Req, Hdr, Res]) Metadata() *meta.MethodMetadata {
	m := &meta.MethodMetadata{
		HTTPMethod:    http.MethodPost,
		Request:       reflect.TypeFor[Req](),
		Response:      reflect.TypeFor[Res](),
		Error:         h.errType,
		Readonly:      h.readonly,
		Description:   h.description,
		Deprecated:    h.deprecated,
		Serialization: []string{"json"},
	}
	if h.readonly {
		m.HTTPMethod = http.MethodGet
	}
	if h.hasHeaders {
		m.Headers = reflect.TypeFor[Hdr]()
	}
	return m
}

// call carries per-request state from the App to an endpoint.
type call struct {
	ctx                context.Context
	w                  http.ResponseWriter
	r                  *http.Request
	logger             *slog.Logger
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	maxRequestBodySize uint64
	interceptors       []Interceptor
}

func (h *Handler[Req, Hdr, Res]) serve(c *call) {
	req, err := h.decodeRequest(c)
	if err != nil {
		c.fail(err)
		return
	}

	var hdr Hdr
	if h.hasHeaders {
		hdr, err = decodeValues[Hdr](headerDecoder, headerValues(c.r.Header))
		if err != nil {
			c.fail(err)
			return
		}
		if err := validateValue(hdr); err != nil {
			c.fail(err)
			return
		}
	}

	var res any
	if len(c.interceptors) == 0 && len(h.interceptors) == 0 {
		res, err = h.fn(c.ctx, req, hdr)
	} else {
		final := func(ctx context.Context, r any) (any, error) {
			typed, ok := r.(Req)
			if !ok {
				return nil, Errorf(CodeInternal, "interceptor replaced request of type %T with %T", req, r)
			}
			return h.fn(ctx, typed, hdr)
		}
		res, err = chainInterceptors(append(c.interceptors[:len(c.interceptors):len(c.interceptors)], h.interceptors...), final)(c.ctx, req)
	}
	if err != nil {
		c.fail(err)
		return
	}

	c.w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(c.w).Encode(res); err != nil {
		c.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *Handler[Req, Hdr, Res]) decodeRequest(c *call) (Req, error) {
	var req Req
	if h.readonly {
		var err error
		req, err = decodeValues[Req](queryDecoder, c.r.URL.Query())
		if err != nil {
			return req, err
		}
	} else {
		limit := c.maxRequestBodySize
		if h.maxBodySize != nil {
			limit = *h.maxBodySize
		}
		body := io.Reader(c.r.Body)
		if limit > 0 {
			body = http.MaxBytesReader(c.w, c.r.Body, int64(limit))
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return req, err
		}
		req = allocate[Req]()
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				return req, Errorf(CodeInvalidArgument, "failed to decode body: %v", err)
			}
		}
	}
	return req, validateValue(req)
}

// allocate returns the zero T, or a pointer to a zero element when T is a
// pointer type.
func allocate[T any]() T {
	var v T
	if t := reflect.TypeFor[T](); t.Kind() == reflect.Pointer {
		v = reflect.New(t.Elem()).Convert(t).Interface().(T)
	}
	return v
}

// decodeValues decodes form-style values into a T that is a struct or a
// pointer to one. Other types decode to their zero value.
func decodeValues[T any](dec *schema.Decoder, values map[string][]string) (T, error) {
	v := allocate[T]()
	var target any
	switch t := reflect.TypeFor[T](); {
	case t.Kind() == reflect.Struct:
		target = &v
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		target = v
	default:
		return v, nil
	}
	if err := dec.Decode(target, values); err != nil {
		return v, err
	}
	return v, nil
}

// headerValues lowercases header names so that `header` tags match
// regardless of the canonical form net/http uses.
func headerValues(h http.Header) url.Values {
	out := make(url.Values, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = v
	}
	return out
}

func validateValue(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(v)
}

func (c *call) fail(err error) {
	var svcErr *Error
	if c.errorTransformer != nil {
		svcErr = c.errorTransformer(err)
	}
	if svcErr == nil {
		svcErr = DefaultErrorTransformer(err)
	}
	if svcErr.Code == CodeInternal {
		c.logger.Error("endpoint failed", slog.Any("error", err))
		if c.maskInternalErrors {
			svcErr = NewError(CodeInternal, "internal server error")
		}
	}
	writeError(c.w, svcErr, c.logger)
}
