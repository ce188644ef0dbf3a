package apischema_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/broady/apischema"
	"github.com/broady/apischema/testutil"
)

func TestInterceptors_Order(t *testing.T) {
	var order []string
	record := func(name string) apischema.Interceptor {
		return func(ctx context.Context, req any, next apischema.HandlerFunc) (any, error) {
			order = append(order, name)
			return next(ctx, req)
		}
	}
	app := newTestApp().WithInterceptor(record("app1")).WithInterceptor(record("app2"))
	app.Service("pets").Register("Adopt", apischema.NewHandler(createPet).WithInterceptor(record("handler")))

	w := testutil.NewRequest().POST("/pets/Adopt").WithJSON(&CreatePetRequest{Name: "Rex"}).Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
	if got := strings.Join(order, ","); got != "app1,app2,handler" {
		t.Errorf("unexpected interceptor order %s", got)
	}
}

func TestInterceptors_ShortCircuit(t *testing.T) {
	app := newTestApp().WithInterceptor(func(ctx context.Context, req any, next apischema.HandlerFunc) (any, error) {
		if r, ok := req.(*CreatePetRequest); ok && r.Name == "forbidden" {
			return nil, apischema.NewError(apischema.CodePermissionDenied, "not allowed")
		}
		return next(ctx, req)
	})

	w := testutil.NewRequest().POST("/pets/Create").WithJSON(&CreatePetRequest{Name: "forbidden"}).Do(app.Handler())
	testutil.AssertJSONError(t, w, string(apischema.CodePermissionDenied))

	w = testutil.NewRequest().POST("/pets/Create").WithJSON(&CreatePetRequest{Name: "Rex"}).Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestInterceptors_ReplaceResponse(t *testing.T) {
	app := newTestApp().WithInterceptor(func(ctx context.Context, req any, next apischema.HandlerFunc) (any, error) {
		res, err := next(ctx, req)
		if pet, ok := res.(*Pet); ok {
			pet.Tag = "intercepted"
		}
		return res, err
	})

	w := testutil.NewRequest().POST("/pets/Create").WithJSON(&CreatePetRequest{Name: "Rex"}).Do(app.Handler())
	testutil.AssertJSONResponse(t, w, Pet{ID: 1, Name: "Rex", Tag: "intercepted"})
}

func TestInterceptors_WrongRequestType(t *testing.T) {
	app := newTestApp().WithInterceptor(func(ctx context.Context, req any, next apischema.HandlerFunc) (any, error) {
		return next(ctx, "not a request")
	})
	w := testutil.NewRequest().POST("/pets/Create").WithJSON(&CreatePetRequest{Name: "Rex"}).Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusInternalServerError)
}
