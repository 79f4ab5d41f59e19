package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func authRouter(opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireUser(opts))
	r.GET("/whoami", func(c *gin.Context) {
		v, _ := c.Get("userID")
		c.String(http.StatusOK, "%v", v)
	})
	return r
}

func TestRequireUser_HeaderStashed(t *testing.T) {
	r := authRouter(AuthOptions{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderUserID, "user-42")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "user-42" {
		t.Fatalf("stashed identity = %q", w.Body.String())
	}
}

func TestRequireUser_MissingHeaderRejected(t *testing.T) {
	r := authRouter(AuthOptions{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["code"] != "unauthenticated" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRequireUser_AllowAnon(t *testing.T) {
	r := authRouter(AuthOptions{AllowAnon: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != AnonUserID {
		t.Fatalf("expected anonymous identity, got %q", w.Body.String())
	}
}

func TestRequireUser_MalformedHeader(t *testing.T) {
	// Malformed identifiers are rejected even when anon access is enabled.
	r := authRouter(AuthOptions{AllowAnon: true})

	for _, bad := range []string{"has space", strings.Repeat("x", 65), "semi;colon"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(HeaderUserID, bad)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("header %q: expected 400, got %d", bad, w.Code)
		}
	}
}
