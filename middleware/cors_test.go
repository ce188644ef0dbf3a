package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func do(h http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/pets/List", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORS_Defaults(t *testing.T) {
	h := CORS(CORSAllowAll)(ok)

	w := do(h, http.MethodGet, "https://app.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	w = do(h, http.MethodOptions, "https://app.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_Origins(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://a.example", "https://b.example"}})(ok)

	tests := []struct {
		origin string
		want   string
	}{
		{"https://a.example", "https://a.example"},
		{"https://b.example", "https://b.example"},
		{"https://evil.example", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			w := do(h, http.MethodGet, tt.origin)
			assert.Equal(t, http.StatusOK, w.Code, "disallowed origins still reach the handler")
			assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", w.Header().Get("Vary"))
		})
	}
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowCredentials: true, MaxAge: 600, ExposeHeaders: []string{"X-Request-Id"}})(ok)

	w := do(h, http.MethodOptions, "https://app.example")
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "X-Request-Id", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORS_CustomLists(t *testing.T) {
	h := CORS(CORSConfig{AllowMethods: []string{"POST"}, AllowHeaders: []string{"X-Token"}})(ok)
	w := do(h, http.MethodOptions, "")
	assert.Equal(t, "POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Token", w.Header().Get("Access-Control-Allow-Headers"))
}
