package router

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/swimmeet-console/internal/handler"
)

// Middlewares groups the Redis-backed middlewares for /v1.  Nil entries
// are skipped.  AfterWrite runs once a background lane write has reached
// the backend, since views read before that point are cached again from
// the old layout.
type Middlewares struct {
	RateLimit  echo.MiddlewareFunc
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
	AfterWrite func(ctx context.Context, eventIDs ...uint64)
}

// RegisterMeet registers the console endpoints under /v1.  Reads go
// through the response cache and every write drops the cached views of
// the events it touched.
func RegisterMeet(e *echo.Echo, h *handler.MeetHandler, mw Middlewares) {
	g := e.Group("/v1")
	if mw.RateLimit != nil {
		g.Use(mw.RateLimit)
	}

	var reads, writes []echo.MiddlewareFunc
	if mw.Cache != nil {
		reads = append(reads, mw.Cache)
	}
	if mw.Invalidate != nil {
		writes = append(writes, mw.Invalidate)
	}
	if mw.AfterWrite != nil {
		h.Service.OnPersisted(mw.AfterWrite)
	}

	g.GET("/days", h.Days, reads...)
	g.GET("/days/:day/events", h.DayEvents, reads...)
	g.GET("/events/:id/heats", h.EventHeats, reads...)
	g.GET("/events/:id/final", h.Final, reads...)
	// eligibility changes with every placement elsewhere; never cached
	g.GET("/events/:id/eligible-swimmers", h.EligibleSwimmers)

	g.POST("/events/:id/moves", h.Move, writes...)
	g.POST("/events/:id/placements", h.Place, writes...)
	g.POST("/events/:id/recalculate", h.Recalculate, writes...)

	// Time entry: unlock a sheet, then submit it.
	g.POST("/events/:id/edit", h.BeginEdit)
	g.POST("/events/:id/times", h.SubmitTimes, writes...)
	g.POST("/events/:id/final/edit", h.BeginFinalEdit)
	g.POST("/events/:id/final/times", h.SubmitFinalTimes, writes...)
}
