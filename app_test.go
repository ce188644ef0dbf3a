package apischema_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/broady/apischema"
	"github.com/broady/apischema/testutil"
	slogctx "github.com/veqryn/slog-context"
)

type CreatePetRequest struct {
	Name string `json:"name" validate:"required"`
	Tag  string `json:"tag,omitempty"`
}

type Pet struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Tag  string `json:"tag,omitempty"`
}

type ListPetsParams struct {
	Limit int    `schema:"limit"`
	Tag   string `schema:"tag"`
}

type AuthHeaders struct {
	Token     string `header:"authorization" validate:"required"`
	RequestID string `header:"x-request-id"`
}

func createPet(ctx context.Context, req *CreatePetRequest) (*Pet, error) {
	return &Pet{ID: 1, Name: req.Name, Tag: req.Tag}, nil
}

func listPets(ctx context.Context, req ListPetsParams) ([]Pet, error) {
	pets := []Pet{{ID: 1, Name: "Rex", Tag: req.Tag}}
	if req.Limit == 0 {
		return nil, apischema.NewError(apischema.CodeInvalidArgument, "limit required")
	}
	return pets, nil
}

func newTestApp() *apischema.App {
	app := apischema.NewApp().WithLogger(slog.New(slog.DiscardHandler))
	pets := app.Service("pets")
	pets.Register("Create", apischema.NewHandler(createPet).Describe("Create a pet"))
	pets.Register("List", apischema.NewHandler(listPets).Readonly())
	return app
}

func TestApp_Post(t *testing.T) {
	w := testutil.NewRequest().
		POST("/pets/Create").
		WithJSON(&CreatePetRequest{Name: "Rex", Tag: "dog"}).
		Do(newTestApp().Handler())

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, &Pet{ID: 1, Name: "Rex", Tag: "dog"})
}

func TestApp_ValidationError(t *testing.T) {
	w := testutil.NewRequest().
		POST("/pets/Create").
		WithJSON(map[string]string{"tag": "dog"}).
		Do(newTestApp().Handler())

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	errResp := testutil.AssertJSONError(t, w, string(apischema.CodeInvalidArgument))
	if errResp.Details["Name"] != "required" {
		t.Errorf("expected Name detail, got %v", errResp.Details)
	}
}

func TestApp_MalformedBody(t *testing.T) {
	w := testutil.NewRequest().
		POST("/pets/Create").
		WithBody("{not json").
		Do(newTestApp().Handler())

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	testutil.AssertJSONError(t, w, string(apischema.CodeInvalidArgument))
}

func TestApp_ReadonlyQuery(t *testing.T) {
	w := testutil.NewRequest().
		GET("/pets/List").
		WithQuery("limit", "10").
		WithQuery("tag", "dog").
		Do(newTestApp().Handler())

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, []Pet{{ID: 1, Name: "Rex", Tag: "dog"}})
}

func TestApp_ReadonlyBadQuery(t *testing.T) {
	w := testutil.NewRequest().
		GET("/pets/List").
		WithQuery("limit", "ten").
		Do(newTestApp().Handler())

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	errResp := testutil.AssertJSONError(t, w, string(apischema.CodeInvalidArgument))
	if _, ok := errResp.Details["limit"]; !ok {
		t.Errorf("expected limit detail, got %v", errResp.Details)
	}
}

func TestApp_MethodNotAllowed(t *testing.T) {
	app := newTestApp()
	tests := []struct {
		method, path, allow string
	}{
		{http.MethodGet, "/pets/Create", http.MethodPost},
		{http.MethodPost, "/pets/List", http.MethodGet},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			b := testutil.NewRequest()
			if tt.method == http.MethodGet {
				b.GET(tt.path)
			} else {
				b.POST(tt.path)
			}
			w := b.Do(app.Handler())
			testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)
			if got := w.Header().Get("Allow"); got != tt.allow {
				t.Errorf("expected Allow %s, got %s", tt.allow, got)
			}
		})
	}
}

func TestApp_NotFound(t *testing.T) {
	for _, path := range []string{"/", "/pets", "/pets/Delete", "/other/Create"} {
		w := testutil.NewRequest().POST(path).Do(newTestApp().Handler())
		testutil.AssertStatus(t, w, http.StatusNotFound)
	}
}

func TestApp_Headers(t *testing.T) {
	app := apischema.NewApp()
	app.Service("auth").Register("Whoami", apischema.NewHandlerWithHeaders(
		func(ctx context.Context, req struct{}, hdr AuthHeaders) (string, error) {
			return hdr.Token + " " + hdr.RequestID, nil
		}))

	w := testutil.NewRequest().
		POST("/auth/Whoami").
		WithHeader("Authorization", "Bearer abc").
		WithHeader("X-Request-Id", "r1").
		Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, "Bearer abc r1")

	w = testutil.NewRequest().POST("/auth/Whoami").Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestApp_PanicRecovery(t *testing.T) {
	app := apischema.NewApp().WithLogger(slog.New(slog.DiscardHandler)).WithMaskInternalErrors()
	app.Service("x").Register("Boom", apischema.NewHandler(func(ctx context.Context, req struct{}) (struct{}, error) {
		panic("boom")
	}))
	app.Service("x").Register("Fail", apischema.NewHandler(func(ctx context.Context, req struct{}) (struct{}, error) {
		return struct{}{}, context.Canceled
	}))

	w := testutil.NewRequest().POST("/x/Boom").Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	testutil.AssertJSONError(t, w, string(apischema.CodeInternal))

	w = testutil.NewRequest().POST("/x/Fail").Do(app.Handler())
	testutil.AssertStatus(t, w, 499)
}

func TestApp_MaskInternalErrors(t *testing.T) {
	app := apischema.NewApp().WithLogger(slog.New(slog.DiscardHandler)).WithMaskInternalErrors()
	app.Service("x").Register("Leak", apischema.NewHandler(func(ctx context.Context, req struct{}) (struct{}, error) {
		return struct{}{}, context.DeadlineExceeded
	}))
	app.Service("x").Register("Secret", apischema.NewHandler(func(ctx context.Context, req struct{}) (struct{}, error) {
		return struct{}{}, errString("db password is hunter2")
	}))

	w := testutil.NewRequest().POST("/x/Secret").Do(app.Handler())
	errResp := testutil.AssertJSONError(t, w, string(apischema.CodeInternal))
	if errResp.Message != "internal server error" {
		t.Errorf("expected masked message, got %q", errResp.Message)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestApp_MaxRequestBodySize(t *testing.T) {
	app := apischema.NewApp().WithMaxRequestBodySize(16)
	app.Service("pets").Register("Create", apischema.NewHandler(createPet))
	app.Service("pets").Register("Bulk", apischema.NewHandler(createPet).WithMaxRequestBodySize(0))

	big := &CreatePetRequest{Name: strings.Repeat("x", 64)}
	w := testutil.NewRequest().POST("/pets/Create").WithJSON(big).Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusRequestEntityTooLarge)

	w = testutil.NewRequest().POST("/pets/Bulk").WithJSON(big).Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestApp_ErrorTransformer(t *testing.T) {
	app := apischema.NewApp().WithErrorTransformer(func(err error) *apischema.Error {
		if err == context.Canceled {
			return apischema.NewError(apischema.CodeUnavailable, "try later")
		}
		return nil
	})
	app.Service("x").Register("Do", apischema.NewHandler(func(ctx context.Context, req struct{}) (struct{}, error) {
		return struct{}{}, context.Canceled
	}))
	w := testutil.NewRequest().POST("/x/Do").Do(app.Handler())
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}

func TestApp_Middleware(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	app := newTestApp().WithMiddleware(mw("outer")).WithMiddleware(mw("inner"))
	testutil.NewRequest().POST("/pets/Create").WithJSON(&CreatePetRequest{Name: "a"}).Do(app.Handler())
	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("unexpected middleware order %v", order)
	}
}

func TestApp_ContextLogger(t *testing.T) {
	var buf bytes.Buffer
	app := apischema.NewApp().WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	app.Service("x").Register("Log", apischema.NewHandler(func(ctx context.Context, req struct{}) (bool, error) {
		slogctx.FromCtx(ctx).Info("inside handler")
		return true, nil
	}))
	testutil.NewRequest().POST("/x/Log").Do(app.Handler())
	if !strings.Contains(buf.String(), "endpoint=/x/Log") {
		t.Errorf("expected endpoint attribute in log, got %q", buf.String())
	}
}

func TestApp_Endpoints(t *testing.T) {
	app := newTestApp()
	app.Service("admin").Service("/users/").Register("Ban", apischema.NewHandler(createPet).Deprecate("use Suspend"))
	app.Service("pets").Register("Create", apischema.NewHandler(createPet).WithErrorType(apischema.Error{}))

	eps := app.Endpoints()
	if len(eps) != 3 {
		t.Fatalf("expected 3 endpoints, got %d", len(eps))
	}
	var paths []string
	for _, ep := range eps {
		paths = append(paths, ep.MountPath())
	}
	if got := strings.Join(paths, " "); got != "/pets/Create /pets/List /admin/users/Ban" {
		t.Errorf("unexpected endpoints %s", got)
	}
	if eps[0].Error == nil || eps[0].Error.Name() != "Error" {
		t.Errorf("expected re-registered Create to declare an error type, got %v", eps[0].Error)
	}
	if !eps[1].Readonly || eps[1].HTTPMethod != http.MethodGet {
		t.Errorf("expected List to be a readonly GET, got %+v", eps[1])
	}
	if eps[2].Deprecated != "use Suspend" {
		t.Errorf("expected deprecation note, got %q", eps[2].Deprecated)
	}
	if eps[1].Request.Name() != "ListPetsParams" || eps[1].Response.String() != "[]apischema_test.Pet" {
		t.Errorf("unexpected types %v -> %v", eps[1].Request, eps[1].Response)
	}
}
