package apischema

import (
	"context"
)

// HandlerFunc is the next step of an interceptor chain.
type HandlerFunc func(ctx context.Context, req any) (res any, err error)

// Interceptor wraps endpoint execution after the request is decoded and
// validated. req is the decoded request value; returning without calling
// next short-circuits the endpoint. EndpointFromContext identifies the
// endpoint being called.
//
//	func timing(ctx context.Context, req any, next apischema.HandlerFunc) (any, error) {
//	    start := time.Now()
//	    res, err := next(ctx, req)
//	    e, _ := apischema.EndpointFromContext(ctx)
//	    slogctx.FromCtx(ctx).Info("call", "endpoint", e.MountPath(), "took", time.Since(start))
//	    return res, err
//	}
type Interceptor func(ctx context.Context, req any, next HandlerFunc) (res any, err error)

// chainInterceptors runs interceptors outermost first, then final.
func chainInterceptors(interceptors []Interceptor, final HandlerFunc) HandlerFunc {
	chain := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		current, next := interceptors[i], chain
		chain = func(ctx context.Context, req any) (any, error) {
			return current(ctx, req, next)
		}
	}
	return chain
}
