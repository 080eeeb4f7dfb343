package router

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/swimmeet-console/internal/handler"
	"github.com/iliyamo/swimmeet-console/internal/meet"
	"github.com/iliyamo/swimmeet-console/internal/model"
)

// marker answers in place of the handler so a route's middleware chain can
// be observed without a backend.
func marker(name string) echo.MiddlewareFunc {
	return func(echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { return c.String(http.StatusTeapot, name) }
	}
}

func newRouter(mw Middlewares) *echo.Echo {
	svc := meet.NewService(nil, nil, model.Schedule{}, nil, 0)
	h := handler.NewMeetHandler(svc, nil)
	e := echo.New()
	RegisterRoutes(e, h)
	RegisterMeet(e, h, mw)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newRouter(Middlewares{})
	var got []string
	for _, r := range e.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)
	assert.Subset(t, got, []string{
		"GET /healthz",
		"GET /readyz",
		"GET /v1/days",
		"GET /v1/days/:day/events",
		"GET /v1/events/:id/heats",
		"GET /v1/events/:id/final",
		"GET /v1/events/:id/eligible-swimmers",
		"POST /v1/events/:id/moves",
		"POST /v1/events/:id/placements",
		"POST /v1/events/:id/recalculate",
		"POST /v1/events/:id/edit",
		"POST /v1/events/:id/times",
		"POST /v1/events/:id/final/edit",
		"POST /v1/events/:id/final/times",
	})
}

func TestMiddlewarePlacement(t *testing.T) {
	e := newRouter(Middlewares{Cache: marker("cache"), Invalidate: marker("invalidate")})
	cases := []struct {
		method, target, want string
	}{
		{http.MethodGet, "/v1/events/1/heats", "cache"},
		{http.MethodGet, "/v1/days", "cache"},
		{http.MethodPost, "/v1/events/1/moves", "invalidate"},
		{http.MethodPost, "/v1/events/1/final/times", "invalidate"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, tc.want, rec.Body.String(), tc.target)
	}

	// unlocking a sheet passes neither
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/events/1/edit", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimitCoversV1Only(t *testing.T) {
	e := newRouter(Middlewares{RateLimit: marker("limited")})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/days", nil))
	assert.Equal(t, "limited", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
