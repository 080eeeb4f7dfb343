// Package backend is the REST client for the meet backend.  It implements
// meet.Backend over the backend's JSON endpoints.
package backend

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/meet"
    "github.com/iliyamo/swimmeet-console/internal/model"
)

// ErrRelayLanes is returned when a relay changeset is sent over REST.  The
// REST backend can only move swimmer events.
var ErrRelayLanes = errors.New("relay lane changes are not supported by the REST backend")

// Client talks to one backend base URL.
type Client struct {
    baseURL string
    http    *http.Client
}

var _ meet.Backend = (*Client)(nil)

// New returns a client whose requests time out after timeout.
func New(baseURL string, timeout time.Duration) *Client {
    return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient returns a client using hc for every request.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
    return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Competition(ctx context.Context) ([]model.Event, error) {
    var raw []eventJSON
    if err := c.get(ctx, "competition_data", "/competition_data", nil, &raw); err != nil {
        return nil, err
    }
    out := make([]model.Event, 0, len(raw))
    for _, e := range raw {
        out = append(out, e.toModel())
    }
    return out, nil
}

func (c *Client) HeatSheet(ctx context.Context, eventID uint64) ([]model.Entry, error) {
    return c.participants(ctx, "event_participants", "/event_participants", eventID)
}

func (c *Client) TopQualifiers(ctx context.Context, eventID uint64) ([]model.Entry, error) {
    return c.participants(ctx, "top_8_participants", "/top_8_participants", eventID)
}

func (c *Client) participants(ctx context.Context, op, path string, eventID uint64) ([]model.Entry, error) {
    var raw []participantJSON
    q := url.Values{"event_id": {formatID(eventID)}}
    if err := c.get(ctx, op, path, q, &raw); err != nil {
        return nil, err
    }
    out := make([]model.Entry, 0, len(raw))
    for _, p := range raw {
        out = append(out, p.toModel(eventID))
    }
    return out, nil
}

func (c *Client) EligibleSwimmers(ctx context.Context, eventID uint64) ([]model.Swimmer, error) {
    var raw []swimmerJSON
    q := url.Values{"event_id": {formatID(eventID)}}
    if err := c.get(ctx, "eligible_swimmers", "/eligible_swimmers", q, &raw); err != nil {
        return nil, err
    }
    out := make([]model.Swimmer, 0, len(raw))
    for _, s := range raw {
        out = append(out, model.Swimmer{ID: s.ID, Name: s.Name, DOB: s.DOB, Club: string(s.Club)})
    }
    return out, nil
}

func (c *Client) AssignSwimmer(ctx context.Context, eventID, swimmerID uint64, pos heat.Position) error {
    body := assignRequest{SwimmerID: swimmerID, EventID: eventID, HeatID: pos.Heat, LaneID: pos.Lane}
    return c.post(ctx, "assign_swimmer_to_event", "/assign_swimmer_to_event", body)
}

// UpdateLanes sends one request per assignment, in order, and stops at the
// first failure.
func (c *Client) UpdateLanes(ctx context.Context, eventID uint64, changes []heat.Assignment) error {
    for _, a := range changes {
        if _, _, ok := model.ParseRelayEntryID(a.EntryID); ok {
            return &model.PersistenceError{Op: "update_lane", Err: fmt.Errorf("event %d: %w", eventID, ErrRelayLanes)}
        }
    }
    for _, a := range changes {
        body := laneRequest{SwimmerEventID: a.EntryID, LaneID: a.Lane, HeatID: a.Heat}
        if err := c.post(ctx, "update_lane", "/update_lane", body); err != nil {
            return err
        }
    }
    return nil
}

func (c *Client) UpdateTimes(ctx context.Context, records []meet.TimeRecord) error {
    body := make([]timeRequest, 0, len(records))
    for _, r := range records {
        r := r
        req := timeRequest{Time: r.Time.String()}
        if r.RelayEventID != 0 {
            req.RelayEventID = &r.RelayEventID
        } else {
            req.SwimmerEventID = &r.SwimmerEventID
        }
        body = append(body, req)
    }
    return c.post(ctx, "update_times", "/update_times", body)
}

func (c *Client) UpdateFinalTimes(ctx context.Context, records []meet.TimeRecord) error {
    body := make([]timeRequest, 0, len(records))
    for _, r := range records {
        r := r
        body = append(body, timeRequest{
            SwimmerEventID: &r.SwimmerEventID,
            EventID:        &r.EventID,
            Time:           r.Time.String(),
        })
    }
    return c.post(ctx, "update_final_times", "/update_final_times", body)
}

func (c *Client) Recalculate(ctx context.Context, eventID uint64) error {
    return c.post(ctx, "recalculate_heats_lanes", "/recalculate_heats_lanes/"+formatID(eventID), nil)
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
    u := c.baseURL + path
    if len(q) > 0 {
        u += "?" + q.Encode()
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil {
        return &model.PersistenceError{Op: op, Err: err}
    }
    return c.do(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string, body any) error {
    var rd io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil {
            return &model.PersistenceError{Op: op, Err: err}
        }
        rd = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
    if err != nil {
        return &model.PersistenceError{Op: op, Err: err}
    }
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }
    return c.do(op, req, nil)
}

func (c *Client) do(op string, req *http.Request, out any) error {
    req.Header.Set("Accept", "application/json")
    resp, err := c.http.Do(req)
    if err != nil {
        return &model.PersistenceError{Op: op, Err: err}
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        var eb errorBody
        var cause error
        if b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(b) > 0 {
            if json.Unmarshal(b, &eb) == nil && eb.text() != "" {
                cause = errors.New(eb.text())
            }
        }
        return &model.PersistenceError{Op: op, Status: resp.StatusCode, Err: cause}
    }
    if out == nil {
        _, _ = io.Copy(io.Discard, resp.Body)
        return nil
    }
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return &model.PersistenceError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
    }
    return nil
}
