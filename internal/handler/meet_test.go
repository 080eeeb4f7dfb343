package handler

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/meet"
    "github.com/iliyamo/swimmeet-console/internal/model"
    "github.com/iliyamo/swimmeet-console/internal/seeding"
)

// stubBackend serves one individual event (id 1, 17 entries), one relay
// event (id 2) and records writes.
type stubBackend struct {
    mu sync.Mutex

    events     []model.Event
    sheets     map[uint64][]model.Entry
    qualifiers map[uint64][]model.Entry
    swimmers   []model.Swimmer
    pingErr    error
    writeErr   error

    lanes []heat.Assignment
    times []meet.TimeRecord
}

func newStub() *stubBackend {
    s := &stubBackend{
        events: []model.Event{
            {ID: 1, Name: "50 mt. Free Style", Gender: "female", AgeGroup: 2, ParticipantCount: 17, HasFinal: true},
            {ID: 2, Name: "4x50 mt. Relay", Gender: "male", ParticipantCount: 1, Relay: true},
        },
        sheets:     map[uint64][]model.Entry{},
        qualifiers: map[uint64][]model.Entry{},
        swimmers:   []model.Swimmer{{ID: 900, Name: "New Swimmer", DOB: "2011-02-03", Club: "Sharks"}},
    }
    for i := 0; i < 17; i++ {
        id := uint64(i + 1)
        s.sheets[1] = append(s.sheets[1], model.NewIndividualEntry(1, i/8+1, i%8+1, "Dolphins",
            model.ParseRaceTime(fmt.Sprintf("0:%02d:00", 30+i)),
            model.Individual{SwimmerEventID: id, SwimmerID: id + 500, Name: fmt.Sprintf("Swimmer %d", id)}))
    }
    s.qualifiers[1] = seeding.Rank(s.sheets[1])[:8]
    s.sheets[2] = []model.Entry{model.NewRelayEntry(2, 1, 4, "Sharks", model.RaceTime{}, model.Relay{RelayEventID: 77, Swimmers: []string{"A", "B", "C", "D"}})}
    return s
}

func (s *stubBackend) Competition(context.Context) ([]model.Event, error) {
    return s.events, s.pingErr
}

func (s *stubBackend) HeatSheet(_ context.Context, eventID uint64) ([]model.Entry, error) {
    return s.sheets[eventID], nil
}

func (s *stubBackend) TopQualifiers(_ context.Context, eventID uint64) ([]model.Entry, error) {
    return s.qualifiers[eventID], nil
}

func (s *stubBackend) EligibleSwimmers(context.Context, uint64) ([]model.Swimmer, error) {
    return s.swimmers, nil
}

func (s *stubBackend) AssignSwimmer(context.Context, uint64, uint64, heat.Position) error {
    return s.writeErr
}

func (s *stubBackend) UpdateLanes(_ context.Context, _ uint64, changes []heat.Assignment) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.lanes = append(s.lanes, changes...)
    return s.writeErr
}

func (s *stubBackend) UpdateTimes(_ context.Context, records []meet.TimeRecord) error {
    if s.writeErr != nil {
        return s.writeErr
    }
    s.times = append(s.times, records...)
    return nil
}

func (s *stubBackend) UpdateFinalTimes(_ context.Context, records []meet.TimeRecord) error {
    return s.UpdateTimes(context.Background(), records)
}

func (s *stubBackend) Recalculate(context.Context, uint64) error { return s.writeErr }

func newTestEcho(b *stubBackend) (*echo.Echo, *MeetHandler) {
    svc := meet.NewService(b, nil, model.Schedule{}, zap.NewNop(), 0)
    h := NewMeetHandler(svc, zap.NewNop())
    e := echo.New()
    e.GET("/healthz", Health)
    e.GET("/readyz", h.Ready)
    v1 := e.Group("/v1")
    v1.GET("/days", h.Days)
    v1.GET("/days/:day/events", h.DayEvents)
    v1.GET("/events/:id/heats", h.EventHeats)
    v1.GET("/events/:id/final", h.Final)
    v1.GET("/events/:id/eligible-swimmers", h.EligibleSwimmers)
    v1.POST("/events/:id/moves", h.Move)
    v1.POST("/events/:id/placements", h.Place)
    v1.POST("/events/:id/edit", h.BeginEdit)
    v1.POST("/events/:id/times", h.SubmitTimes)
    v1.POST("/events/:id/final/edit", h.BeginFinalEdit)
    v1.POST("/events/:id/final/times", h.SubmitFinalTimes)
    v1.POST("/events/:id/recalculate", h.Recalculate)
    return e, h
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
    t.Helper()
    var body map[string]string
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    return body["error"]
}

func TestHealthAndReady(t *testing.T) {
    b := newStub()
    e, h := newTestEcho(b)
    defer h.Service.Wait()

    assert.Equal(t, "ok", do(e, http.MethodGet, "/healthz", "").Body.String())
    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/readyz", "").Code)

    b.pingErr = &model.PersistenceError{Op: "competition", Err: errors.New("connection refused")}
    assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/readyz", "").Code)
}

func TestDaysAndDayEvents(t *testing.T) {
    e, _ := newTestEcho(newStub())

    rec := do(e, http.MethodGet, "/v1/days", "")
    assert.JSONEq(t, `{"days":1}`, rec.Body.String())

    rec = do(e, http.MethodGet, "/v1/days/1/events", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var views []meet.EventView
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
    require.Len(t, views, 2)
    assert.Len(t, views[0].Heats, 3)
    assert.NotNil(t, views[0].Final)

    assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/days/3/events", "").Code)
    assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/days/x/events", "").Code)
}

func TestEventHeats(t *testing.T) {
    e, _ := newTestEcho(newStub())

    rec := do(e, http.MethodGet, "/v1/events/1/heats", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"title":"Event No. 1 : 50 mt. Free Style Girls Group 2"`)
    assert.Contains(t, rec.Body.String(), `"kind":"individual"`)

    rec = do(e, http.MethodGet, "/v1/events/2/heats", "")
    assert.Contains(t, rec.Body.String(), `"show_dob":false`)

    assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/events/99/heats", "").Code)
    assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/events/0/heats", "").Code)
}

func TestMove(t *testing.T) {
    b := newStub()
    e, h := newTestEcho(b)

    rec := do(e, http.MethodPost, "/v1/events/1/moves", `{"from":{"heat":1,"lane":1},"to":{"heat":3,"lane":2}}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var cs meet.Changeset
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
    assert.Equal(t, 3, cs.Heat)
    assert.Equal(t, []heat.Assignment{
        {EntryID: "17", Heat: 3, Lane: 1},
        {EntryID: "1", Heat: 3, Lane: 2},
    }, cs.Assignments)

    h.Service.Wait()
    b.mu.Lock()
    assert.Equal(t, cs.Assignments, b.lanes)
    b.mu.Unlock()
}

func TestMoveRejections(t *testing.T) {
    e, h := newTestEcho(newStub())
    defer h.Service.Wait()

    cases := []struct {
        name   string
        body   string
        status int
    }{
        {"full heat", `{"from":{"heat":3,"lane":1},"to":{"heat":1,"lane":3}}`, http.StatusConflict},
        {"empty source", `{"from":{"heat":3,"lane":5},"to":{"heat":3,"lane":1}}`, http.StatusBadRequest},
        {"off the grid", `{"from":{"heat":1,"lane":1},"to":{"heat":1,"lane":9}}`, http.StatusBadRequest},
        {"other event", `{"from":{"heat":1,"lane":1},"to":{"heat":1,"lane":1},"to_event_id":2}`, http.StatusConflict},
        {"bad json", `{"from":`, http.StatusBadRequest},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec := do(e, http.MethodPost, "/v1/events/1/moves", tc.body)
            assert.Equal(t, tc.status, rec.Code, rec.Body.String())
            assert.NotEmpty(t, errorOf(t, rec))
        })
    }
}

func TestPlace(t *testing.T) {
    e, h := newTestEcho(newStub())
    defer h.Service.Wait()

    rec := do(e, http.MethodPost, "/v1/events/1/placements", `{"swimmer_id":900,"heat":3,"lane":4}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    assert.Contains(t, rec.Body.String(), `"name":"New Swimmer"`)
    assert.NotContains(t, rec.Body.String(), `"id":`)

    assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/v1/events/1/placements", `{"swimmer_id":900,"heat":1,"lane":1}`).Code)
    assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/events/1/placements", `{"swimmer_id":901,"heat":3,"lane":4}`).Code)
    assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/events/2/placements", `{"swimmer_id":900,"heat":1,"lane":1}`).Code)
    assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/events/1/placements", `{"heat":3,"lane":4}`).Code)
}

func TestSubmitTimesRequiresEditMode(t *testing.T) {
    b := newStub()
    e, h := newTestEcho(b)
    body := `{"times":[{"participant_id":"1","time":"0:29:87"},{"participant_id":"2","time":"::"}]}`

    rec := do(e, http.MethodPost, "/v1/events/1/times", body)
    assert.Equal(t, http.StatusConflict, rec.Code)

    require.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/v1/events/1/edit", "").Code)
    assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/v1/events/1/edit", "").Code)
    assert.True(t, h.Edits.Editing(1))
    assert.False(t, h.FinalEdits.Editing(1))

    rec = do(e, http.MethodPost, "/v1/events/1/times", body)
    require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
    assert.False(t, h.Edits.Editing(1))
    require.Len(t, b.times, 2)
    assert.Equal(t, uint64(1), b.times[0].SwimmerEventID)
    assert.Equal(t, "29", b.times[0].Time.Seconds)
    assert.True(t, b.times[1].Time.IsBlank())
}

func TestSubmitTimesFailureKeepsEditMode(t *testing.T) {
    b := newStub()
    b.writeErr = &model.PersistenceError{Op: "update_times", Status: http.StatusInternalServerError}
    e, h := newTestEcho(b)

    require.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/v1/events/1/edit", "").Code)
    rec := do(e, http.MethodPost, "/v1/events/1/times", `{"times":[{"participant_id":"1","time":"0:29:87"}]}`)
    assert.Equal(t, http.StatusBadGateway, rec.Code)
    assert.True(t, h.Edits.Editing(1))

    b.writeErr = nil
    rec = do(e, http.MethodPost, "/v1/events/1/times", `{"times":[{"participant_id":"nope","time":"0:29:87"}]}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.True(t, h.Edits.Editing(1))
}

func TestFinalTimes(t *testing.T) {
    b := newStub()
    e, h := newTestEcho(b)

    rec := do(e, http.MethodGet, "/v1/events/1/final", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var view meet.EventView
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
    require.Len(t, view.Heats, 1)
    assert.Contains(t, rec.Body.String(), `"id":"1"`)

    require.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/v1/events/1/final/edit", "").Code)
    assert.False(t, h.Edits.Editing(1))
    rec = do(e, http.MethodPost, "/v1/events/1/final/times", `{"times":[{"participant_id":"1","time":"0:29:10"}]}`)
    require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
    assert.False(t, h.FinalEdits.Editing(1))
    assert.Len(t, b.times, 1)
}

func TestFinalTooManyQualifiers(t *testing.T) {
    b := newStub()
    b.qualifiers[1] = b.sheets[1][:9]
    e, _ := newTestEcho(b)
    assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodGet, "/v1/events/1/final", "").Code)
}

func TestRecalculate(t *testing.T) {
    b := newStub()
    e, _ := newTestEcho(b)
    assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/events/1/recalculate", "").Code)

    b.writeErr = &model.PersistenceError{Op: "recalculate", Err: errors.New("timeout")}
    rec := do(e, http.MethodPost, "/v1/events/1/recalculate", "")
    assert.Equal(t, http.StatusBadGateway, rec.Code)
    assert.Contains(t, errorOf(t, rec), "recalculate")
}

func TestEligibleSwimmers(t *testing.T) {
    b := newStub()
    b.swimmers = nil
    e, _ := newTestEcho(b)
    rec := do(e, http.MethodGet, "/v1/events/1/eligible-swimmers", "")
    assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
    cases := map[error]int{
        heat.ErrOutOfRange:                          http.StatusBadRequest,
        fmt.Errorf("x: %w", heat.ErrEmptyCell):      http.StatusBadRequest,
        meet.ErrNotEligible:                         http.StatusBadRequest,
        meet.ErrUnknownEvent:                        http.StatusNotFound,
        heat.ErrCrossEvent:                          http.StatusConflict,
        heat.ErrHeatFull:                            http.StatusConflict,
        meet.ErrLaneTaken:                           http.StatusConflict,
        seeding.ErrInvalidRankCount:                 http.StatusUnprocessableEntity,
        &model.PersistenceError{Op: "update_lane"}:  http.StatusBadGateway,
        errors.New("boom"):                          http.StatusInternalServerError,
    }
    for err, want := range cases {
        assert.Equal(t, want, statusFor(err), err.Error())
    }
}
