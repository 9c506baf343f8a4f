package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runAdmin(t *testing.T, key string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/donors/donor_1", nil)
	if key != "" {
		req.Header.Set(AdminKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	return Admin("super-secret")(next)(c)
}

func TestAdmin_CorrectKey(t *testing.T) {
	if err := runAdmin(t, "super-secret"); err != nil {
		t.Fatalf("expected access, got %v", err)
	}
}

func TestAdmin_WrongKey(t *testing.T) {
	err := runAdmin(t, "guess")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", err)
	}
}

func TestAdmin_MissingKey(t *testing.T) {
	err := runAdmin(t, "")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}
