package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/meet"
    "github.com/iliyamo/swimmeet-console/internal/middleware"
    "github.com/iliyamo/swimmeet-console/internal/model"
    "github.com/iliyamo/swimmeet-console/internal/seeding"
)

// MeetHandler serves the console's heat sheets and the gestures made on
// them.  Edits tracks heat sheets whose times are unlocked and FinalEdits
// does the same for finals; the two are independent.
type MeetHandler struct {
    Service    *meet.Service
    Edits      *meet.EditState
    FinalEdits *meet.EditState
    Log        *zap.Logger
}

// NewMeetHandler constructs a MeetHandler and panics if the service is nil.
func NewMeetHandler(svc *meet.Service, log *zap.Logger) *MeetHandler {
    if svc == nil {
        panic("nil service passed to NewMeetHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &MeetHandler{
        Service:    svc,
        Edits:      meet.NewEditState(),
        FinalEdits: meet.NewEditState(),
        Log:        log,
    }
}

type moveRequest struct {
    From      heat.Position `json:"from"`
    To        heat.Position `json:"to"`
    ToEventID *uint64       `json:"to_event_id"`
}

type placementRequest struct {
    SwimmerID uint64 `json:"swimmer_id"`
    Heat      int    `json:"heat"`
    Lane      int    `json:"lane"`
}

// timesRequest carries times as "mm:ss:ms"; "::" or "" clears a time.
type timesRequest struct {
    Times []struct {
        EntryID string `json:"participant_id"`
        Time    string `json:"time"`
    } `json:"times"`
}

func (r timesRequest) entries() []meet.TimeEntry {
    out := make([]meet.TimeEntry, 0, len(r.Times))
    for _, t := range r.Times {
        out = append(out, meet.TimeEntry{EntryID: t.EntryID, Time: model.ParseRaceTime(t.Time)})
    }
    return out
}

// Days handles GET /v1/days.
func (h *MeetHandler) Days(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"days": h.Service.Days()})
}

// DayEvents handles GET /v1/days/:day/events and returns every event of
// the day with its heats and seeded final.
func (h *MeetHandler) DayEvents(c echo.Context) error {
    day, err := strconv.Atoi(c.Param("day"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day"})
    }
    events, err := h.Service.DayEvents(c.Request().Context(), day)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, events)
}

// EventHeats handles GET /v1/events/:id/heats.
func (h *MeetHandler) EventHeats(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    view, err := h.Service.EventHeats(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// Final handles GET /v1/events/:id/final.
func (h *MeetHandler) Final(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    view, err := h.Service.Final(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// EligibleSwimmers handles GET /v1/events/:id/eligible-swimmers.
func (h *MeetHandler) EligibleSwimmers(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    swimmers, err := h.Service.EligibleSwimmers(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    if swimmers == nil {
        swimmers = []model.Swimmer{}
    }
    return c.JSON(http.StatusOK, swimmers)
}

// Move handles POST /v1/events/:id/moves.  The response is the changeset
// of the destination heat; the backend write continues in the background.
func (h *MeetHandler) Move(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body moveRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    to := id
    if body.ToEventID != nil {
        to = *body.ToEventID
    }
    cs, err := h.Service.MoveAcross(c.Request().Context(), id, to, body.From, body.To)
    if err != nil {
        return h.fail(c, err)
    }
    if to != id {
        c.Set(middleware.TouchedEventsKey, []string{strconv.FormatUint(to, 10)})
    }
    return c.JSON(http.StatusOK, cs)
}

// Place handles POST /v1/events/:id/placements.
func (h *MeetHandler) Place(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body placementRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.SwimmerID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "swimmer_id is required"})
    }
    e, err := h.Service.AssignSwimmer(c.Request().Context(), id, body.SwimmerID, heat.Position{Heat: body.Heat, Lane: body.Lane})
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, e)
}

// BeginEdit handles POST /v1/events/:id/edit and unlocks the heat times.
func (h *MeetHandler) BeginEdit(c echo.Context) error {
    return h.beginEdit(c, h.Edits)
}

// BeginFinalEdit handles POST /v1/events/:id/final/edit.
func (h *MeetHandler) BeginFinalEdit(c echo.Context) error {
    return h.beginEdit(c, h.FinalEdits)
}

func (h *MeetHandler) beginEdit(c echo.Context, edits *meet.EditState) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if err := edits.Begin(id); err != nil {
        return h.fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// SubmitTimes handles POST /v1/events/:id/times.  The event must be in
// edit mode and stays there when the backend rejects the times.
func (h *MeetHandler) SubmitTimes(c echo.Context) error {
    return h.submitTimes(c, h.Edits, h.Service.SubmitTimes)
}

// SubmitFinalTimes handles POST /v1/events/:id/final/times.
func (h *MeetHandler) SubmitFinalTimes(c echo.Context) error {
    return h.submitTimes(c, h.FinalEdits, h.Service.SubmitFinalTimes)
}

func (h *MeetHandler) submitTimes(c echo.Context, edits *meet.EditState, submit func(context.Context, uint64, []meet.TimeEntry) error) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if !edits.Editing(id) {
        return h.fail(c, meet.ErrNotEditing)
    }
    var body timesRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := submit(c.Request().Context(), id, body.entries()); err != nil {
        return h.fail(c, err)
    }
    if err := edits.Submit(id); err != nil {
        return h.fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Recalculate handles POST /v1/events/:id/recalculate and returns the
// reseeded heat sheet.
func (h *MeetHandler) Recalculate(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    view, err := h.Service.Recalculate(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

func eventID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
    var perr *model.PersistenceError
    switch {
    case errors.Is(err, heat.ErrOutOfRange),
        errors.Is(err, heat.ErrEmptyCell),
        errors.Is(err, meet.ErrUnknownEntry),
        errors.Is(err, meet.ErrNotEligible),
        errors.Is(err, meet.ErrRelayAssign):
        return http.StatusBadRequest
    case errors.Is(err, meet.ErrUnknownEvent),
        errors.Is(err, meet.ErrUnknownDay):
        return http.StatusNotFound
    case errors.Is(err, heat.ErrCrossEvent),
        errors.Is(err, heat.ErrHeatFull),
        errors.Is(err, meet.ErrLaneTaken),
        errors.Is(err, meet.ErrAlreadyEditing),
        errors.Is(err, meet.ErrNotEditing):
        return http.StatusConflict
    case errors.Is(err, seeding.ErrInvalidRankCount):
        return http.StatusUnprocessableEntity
    case errors.As(err, &perr):
        return http.StatusBadGateway
    default:
        return http.StatusInternalServerError
    }
}

func (h *MeetHandler) fail(c echo.Context, err error) error {
    status := statusFor(err)
    if status >= http.StatusInternalServerError {
        h.Log.Error("request failed", zap.String("route", c.Path()), zap.Int("status", status), zap.Error(err))
    }
    if status == http.StatusInternalServerError {
        return c.JSON(status, echo.Map{"error": "internal error"})
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}
