package apischema

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var (
	requestKey  = &contextKey{"request"}
	writerKey   = &contextKey{"writer"}
	endpointKey = &contextKey{"endpoint"}
)

// EndpointInfo identifies the endpoint serving the current call.
type EndpointInfo struct {
	Path string
	Name string
}

// MountPath returns "/path/name".
func (e EndpointInfo) MountPath() string {
	if e.Path == "" {
		return "/" + e.Name
	}
	return "/" + e.Path + "/" + e.Name
}

// RequestFromContext returns the HTTP request of the current call, or nil
// outside a handler.
func RequestFromContext(ctx context.Context) *http.Request {
	r, _ := ctx.Value(requestKey).(*http.Request)
	return r
}

// EndpointFromContext returns the endpoint serving the current call.
func EndpointFromContext(ctx context.Context) (EndpointInfo, bool) {
	e, ok := ctx.Value(endpointKey).(EndpointInfo)
	return e, ok
}

// SetHeader sets a response header. It has no effect outside a handler.
func SetHeader(ctx context.Context, key, value string) {
	if w, ok := ctx.Value(writerKey).(http.ResponseWriter); ok {
		w.Header().Set(key, value)
	}
}

func newCallContext(ctx context.Context, w http.ResponseWriter, r *http.Request, e EndpointInfo) context.Context {
	ctx = context.WithValue(ctx, writerKey, w)
	ctx = context.WithValue(ctx, requestKey, r)
	return context.WithValue(ctx, endpointKey, e)
}
