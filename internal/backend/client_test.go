package backend

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/meet"
    "github.com/iliyamo/swimmeet-console/internal/model"
)

type recorded struct {
    method string
    path   string
    query  string
    body   string
}

// fakeServer answers fixed JSON per path and records every request.
type fakeServer struct {
    mu       sync.Mutex
    requests []recorded
    replies  map[string]string
    status   map[string]int
}

func newFakeServer(t *testing.T) (*fakeServer, *Client) {
    t.Helper()
    fs := &fakeServer{replies: map[string]string{}, status: map[string]int{}}
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        b, _ := io.ReadAll(r.Body)
        fs.mu.Lock()
        fs.requests = append(fs.requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(b)})
        reply, code := fs.replies[r.URL.Path], fs.status[r.URL.Path]
        fs.mu.Unlock()
        if code == 0 {
            code = http.StatusOK
        }
        if reply == "" {
            reply = `{"message":"ok"}`
        }
        w.Header().Set("Content-Type", "application/json")
        w.WriteHeader(code)
        _, _ = io.WriteString(w, reply)
    }))
    t.Cleanup(srv.Close)
    return fs, New(srv.URL+"/", 2*time.Second)
}

func TestCompetition(t *testing.T) {
    fs, c := newFakeServer(t)
    fs.replies["/competition_data"] = `[
        {"id":1,"name":"50 mt. Free Style","age_group":0,"gender":"male","participant_count":17,"time_trial":false},
        {"id":2,"name":"4x50 mt. Free Style Relay","age_group":2,"gender":"female","participant_count":3,"time_trial":true},
        {"id":3,"name":"100 mt. Fly","age_group":1,"gender":"female","participant_count":0,"time_trial":null}
    ]`

    events, err := c.Competition(context.Background())
    require.NoError(t, err)
    require.Len(t, events, 3)
    assert.Equal(t, model.Event{ID: 1, Name: "50 mt. Free Style", Gender: "male", ParticipantCount: 17, HasFinal: true}, events[0])
    assert.True(t, events[1].Relay)
    assert.False(t, events[1].HasFinal)
    assert.False(t, events[2].HasFinal)
}

func TestHeatSheetIndividuals(t *testing.T) {
    fs, c := newFakeServer(t)
    fs.replies["/event_participants"] = `[
        {"id":11,"swimmer_id":5,"event_id":1,"heat_id":1,"lane_id":4,"medal":null,"time":"0:31:20",
         "swimmer":{"id":5,"name":"Asha","dob":"2010-05-01","club":{"id":2,"name":"Dolphins","total_points":0}}},
        {"id":12,"swimmer_id":6,"event_id":1,"heat_id":1,"lane_id":5,"medal":null,"time":null,
         "swimmer":{"id":6,"name":"Ravi","dob":"2010-02-11","club":"Sharks"}}
    ]`

    entries, err := c.HeatSheet(context.Background(), 1)
    require.NoError(t, err)
    require.Len(t, entries, 2)

    assert.Equal(t, "11", entries[0].ID)
    assert.Equal(t, "Dolphins", entries[0].Club)
    assert.Equal(t, model.RaceTime{Minutes: "0", Seconds: "31", Hundredths: "20"}, entries[0].Time)
    assert.Equal(t, model.Individual{SwimmerEventID: 11, SwimmerID: 5, Name: "Asha", DOB: "2010-05-01"}, entries[0].Payload)

    assert.Equal(t, "Sharks", entries[1].Club)
    assert.True(t, entries[1].Time.IsBlank())

    require.Len(t, fs.requests, 1)
    assert.Equal(t, "event_id=1", fs.requests[0].query)
}

func TestHeatSheetRelays(t *testing.T) {
    fs, c := newFakeServer(t)
    fs.replies["/event_participants"] = `[
        {"heat_id":1,"lane_id":4,"club":"Dolphins","club_id":2,"swimmers":["A","B","C","D"],"time":"2:01:00","relay_event_id":70},
        {"heat_id":1,"lane_id":5,"club":"Sharks","club_id":3,"swimmers":[],"time":null,"relay_event_id":71}
    ]`

    entries, err := c.HeatSheet(context.Background(), 9)
    require.NoError(t, err)
    require.Len(t, entries, 2)
    assert.Equal(t, "relay-1-4", entries[0].ID)
    assert.Equal(t, model.Relay{RelayEventID: 70, ClubID: 2, Swimmers: []string{"A", "B", "C", "D"}}, entries[0].Payload)
    assert.True(t, entries[1].IsRelay(), "an empty swimmers array still marks a relay")
    assert.Equal(t, uint64(9), entries[1].EventID)
}

func TestEligibleSwimmers(t *testing.T) {
    fs, c := newFakeServer(t)
    fs.replies["/eligible_swimmers"] = `[{"id":8,"name":"Mira","dob":"2011-03-03","club":{"name":"Orcas"}}]`

    got, err := c.EligibleSwimmers(context.Background(), 4)
    require.NoError(t, err)
    assert.Equal(t, []model.Swimmer{{ID: 8, Name: "Mira", DOB: "2011-03-03", Club: "Orcas"}}, got)
}

func TestUpdateLanesSendsOneRequestPerAssignment(t *testing.T) {
    fs, c := newFakeServer(t)

    err := c.UpdateLanes(context.Background(), 1, []heat.Assignment{
        {EntryID: "11", Heat: 2, Lane: 1},
        {EntryID: "12", Heat: 2, Lane: 2},
    })
    require.NoError(t, err)
    require.Len(t, fs.requests, 2)
    assert.Equal(t, "/update_lane", fs.requests[0].path)
    assert.JSONEq(t, `{"swimmer_event_id":"11","lane_id":1,"heat_id":2}`, fs.requests[0].body)
    assert.JSONEq(t, `{"swimmer_event_id":"12","lane_id":2,"heat_id":2}`, fs.requests[1].body)
}

func TestUpdateLanesRejectsRelays(t *testing.T) {
    fs, c := newFakeServer(t)

    err := c.UpdateLanes(context.Background(), 1, []heat.Assignment{{EntryID: "relay-1-4", Heat: 1, Lane: 1}})
    assert.ErrorIs(t, err, ErrRelayLanes)
    assert.Empty(t, fs.requests)
}

func TestUpdateTimesBody(t *testing.T) {
    fs, c := newFakeServer(t)

    err := c.UpdateTimes(context.Background(), []meet.TimeRecord{
        {EventID: 1, SwimmerEventID: 11, Time: model.ParseRaceTime("0:30:01")},
        {EventID: 1, RelayEventID: 70},
    })
    require.NoError(t, err)
    require.Len(t, fs.requests, 1)
    assert.JSONEq(t, `[
        {"swimmer_event_id":11,"time":"0:30:01"},
        {"relay_event_id":70,"time":"::"}
    ]`, fs.requests[0].body)
}

func TestUpdateFinalTimesBody(t *testing.T) {
    fs, c := newFakeServer(t)

    err := c.UpdateFinalTimes(context.Background(), []meet.TimeRecord{
        {EventID: 3, SwimmerEventID: 11, Time: model.ParseRaceTime("0:29:99")},
    })
    require.NoError(t, err)
    assert.Equal(t, "/update_final_times", fs.requests[0].path)
    assert.JSONEq(t, `[{"swimmer_event_id":11,"event_id":3,"time":"0:29:99"}]`, fs.requests[0].body)
}

func TestAssignAndRecalculate(t *testing.T) {
    fs, c := newFakeServer(t)
    ctx := context.Background()

    require.NoError(t, c.AssignSwimmer(ctx, 4, 8, heat.Position{Heat: 2, Lane: 6}))
    require.NoError(t, c.Recalculate(ctx, 4))

    require.Len(t, fs.requests, 2)
    var assign map[string]int
    require.NoError(t, json.Unmarshal([]byte(fs.requests[0].body), &assign))
    assert.Equal(t, map[string]int{"swimmer_id": 8, "event_id": 4, "heat_id": 2, "lane_id": 6}, assign)
    assert.Equal(t, http.MethodPost, fs.requests[1].method)
    assert.Equal(t, "/recalculate_heats_lanes/4", fs.requests[1].path)
}

func TestNon2xxIsPersistenceError(t *testing.T) {
    fs, c := newFakeServer(t)
    fs.status["/assign_swimmer_to_event"] = http.StatusBadRequest
    fs.replies["/assign_swimmer_to_event"] = `{"detail":"Swimmer is already participating in this event"}`

    err := c.AssignSwimmer(context.Background(), 1, 2, heat.Position{Heat: 1, Lane: 1})
    var pe *model.PersistenceError
    require.True(t, errors.As(err, &pe))
    assert.Equal(t, "assign_swimmer_to_event", pe.Op)
    assert.Equal(t, http.StatusBadRequest, pe.Status)
    assert.Contains(t, pe.Error(), "already participating")
}

func TestTransportErrorIsPersistenceError(t *testing.T) {
    c := New("http://127.0.0.1:1", 200*time.Millisecond)

    _, err := c.Competition(context.Background())
    var pe *model.PersistenceError
    require.True(t, errors.As(err, &pe))
    assert.Equal(t, 0, pe.Status)
    assert.Equal(t, "competition_data", pe.Op)
}
