// Package meet turns console gestures into grid operations and backend
// writes.  Grids are rebuilt from the backend on every call and dropped
// afterwards; the backend stays the system of record.
package meet

import (
    "context"
    "fmt"
    "sync"
    "time"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/model"
    "github.com/iliyamo/swimmeet-console/internal/seeding"
)

// maxDayFetches bounds concurrent heat-sheet requests when a day is loaded.
const maxDayFetches = 4

// Service is the console's view of one meet.
type Service struct {
    backend  Backend
    notifier Notifier
    schedule model.Schedule
    log      *zap.Logger
    timeout  time.Duration

    onPersisted func(ctx context.Context, eventIDs ...uint64)

    wg sync.WaitGroup
}

// NewService wires a Service.  notifier may be nil.  timeout bounds each
// background write; zero means ten seconds.
func NewService(backend Backend, notifier Notifier, schedule model.Schedule, log *zap.Logger, timeout time.Duration) *Service {
    if log == nil {
        log = zap.NewNop()
    }
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    return &Service{
        backend:  backend,
        notifier: notifier,
        schedule: schedule,
        log:      log,
        timeout:  timeout,
    }
}

// Days returns the number of meet days.
func (s *Service) Days() int { return s.schedule.Days() }

// DayEvents loads every event of a day that has participants, with its
// heats and, where the event has one, its seeded final.
func (s *Service) DayEvents(ctx context.Context, day int) ([]EventView, error) {
    if day < 1 || day > s.schedule.Days() {
        return nil, fmt.Errorf("%w: %d", ErrUnknownDay, day)
    }
    all, err := s.backend.Competition(ctx)
    if err != nil {
        return nil, err
    }
    events := make([]model.Event, 0, len(all))
    for _, ev := range all {
        if ev.ParticipantCount > 0 && s.schedule.Includes(day, ev.ID) {
            events = append(events, ev)
        }
    }

    out := make([]EventView, len(events))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(maxDayFetches)
    for i, ev := range events {
        i, ev := i, ev
        g.Go(func() error {
            v, err := s.eventView(gctx, ev)
            if err != nil {
                return err
            }
            if ev.HasFinal {
                fg, err := s.finalGrid(gctx, ev)
                if err != nil {
                    return err
                }
                heats := Render(fg)
                v.Final = &heats[0]
            }
            out[i] = v
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }
    return out, nil
}

// EventHeats returns the heat sheet of one event.
func (s *Service) EventHeats(ctx context.Context, eventID uint64) (EventView, error) {
    ev, err := s.event(ctx, eventID)
    if err != nil {
        return EventView{}, err
    }
    return s.eventView(ctx, ev)
}

// Final returns the final of an event: the top qualifiers seeded into a
// single heat.  Times are blank; they are the final's own to record.
func (s *Service) Final(ctx context.Context, eventID uint64) (EventView, error) {
    ev, err := s.event(ctx, eventID)
    if err != nil {
        return EventView{}, err
    }
    g, err := s.finalGrid(ctx, ev)
    if err != nil {
        return EventView{}, err
    }
    return newEventView(ev, g), nil
}

// MoveLane drags the entry at from onto to within one event and returns
// the changeset of the destination heat.  The changeset is written to the
// backend in the background.
func (s *Service) MoveLane(ctx context.Context, eventID uint64, from, to heat.Position) (Changeset, error) {
    return s.MoveAcross(ctx, eventID, eventID, from, to)
}

// MoveAcross is MoveLane for a drop that may land in another event's
// table.  Such drops are rejected with heat.ErrCrossEvent.
func (s *Service) MoveAcross(ctx context.Context, fromEvent, toEvent uint64, from, to heat.Position) (Changeset, error) {
    src, err := s.grid(ctx, fromEvent)
    if err != nil {
        return Changeset{}, err
    }
    dst := src
    if toEvent != fromEvent {
        if dst, err = s.grid(ctx, toEvent); err != nil {
            return Changeset{}, err
        }
    }
    if err := heat.Move(src, dst, from, to); err != nil {
        return Changeset{}, err
    }

    cs := Changeset{EventID: dst.EventID, Heat: to.Heat, Assignments: dst.EmitHeat(to.Heat)}
    s.persist(ctx, "update_lane", cs.EventID, func(ctx context.Context) error {
        if err := s.backend.UpdateLanes(ctx, cs.EventID, cs.Assignments); err != nil {
            return err
        }
        if s.notifier == nil {
            return nil
        }
        if err := s.notifier.LaneChangeset(ctx, cs); err != nil {
            s.log.Warn("lane changeset not published", zap.Uint64("event_id", cs.EventID), zap.Error(err))
        }
        return nil
    })
    return cs, nil
}

// AssignSwimmer puts an eligible swimmer into an empty lane.  The backend
// write happens in the background and the backend assigns the entry's id,
// so the returned entry has no ID; clients reload the heat sheet to get it.
func (s *Service) AssignSwimmer(ctx context.Context, eventID, swimmerID uint64, pos heat.Position) (model.Entry, error) {
    ev, err := s.event(ctx, eventID)
    if err != nil {
        return model.Entry{}, err
    }
    if ev.Relay {
        return model.Entry{}, fmt.Errorf("%w: event %d", ErrRelayAssign, eventID)
    }
    g, err := s.load(ctx, ev)
    if err != nil {
        return model.Entry{}, err
    }
    if !g.Contains(pos) {
        return model.Entry{}, fmt.Errorf("%w: %s", heat.ErrOutOfRange, pos)
    }
    if occupant := g.At(pos); occupant != nil {
        return model.Entry{}, fmt.Errorf("%w: %s holds %s", ErrLaneTaken, pos, occupant.DisplayName())
    }

    swimmers, err := s.backend.EligibleSwimmers(ctx, eventID)
    if err != nil {
        return model.Entry{}, err
    }
    var sw *model.Swimmer
    for i := range swimmers {
        if swimmers[i].ID == swimmerID {
            sw = &swimmers[i]
            break
        }
    }
    if sw == nil {
        return model.Entry{}, fmt.Errorf("%w: swimmer %d event %d", ErrNotEligible, swimmerID, eventID)
    }

    e := model.NewIndividualEntry(ev.ID, pos.Heat, pos.Lane, sw.Club, model.RaceTime{}, model.Individual{
        SwimmerID: sw.ID,
        Name:      sw.Name,
        DOB:       sw.DOB,
    })
    if err := g.Place(pos, e); err != nil {
        return model.Entry{}, err
    }
    s.persist(ctx, "assign_swimmer", eventID, func(ctx context.Context) error {
        return s.backend.AssignSwimmer(ctx, eventID, swimmerID, pos)
    })
    placed := *g.At(pos)
    placed.ID = ""
    return placed, nil
}

// EligibleSwimmers lists the swimmers who may fill an empty lane.
func (s *Service) EligibleSwimmers(ctx context.Context, eventID uint64) ([]model.Swimmer, error) {
    return s.backend.EligibleSwimmers(ctx, eventID)
}

// SubmitTimes writes the times typed into an event's heat sheet.  Unlike
// lane writes it waits for the backend, so callers can keep the event in
// edit mode when the write fails.
func (s *Service) SubmitTimes(ctx context.Context, eventID uint64, times []TimeEntry) error {
    entries, err := s.backend.HeatSheet(ctx, eventID)
    if err != nil {
        return err
    }
    records, err := timeRecords(eventID, entries, times)
    if err != nil {
        return err
    }
    if len(records) == 0 {
        return nil
    }
    return s.backend.UpdateTimes(ctx, records)
}

// SubmitFinalTimes writes the times of an event's final.  Rows are matched
// against the current top qualifiers.
func (s *Service) SubmitFinalTimes(ctx context.Context, eventID uint64, times []TimeEntry) error {
    entries, err := s.backend.TopQualifiers(ctx, eventID)
    if err != nil {
        return err
    }
    records, err := timeRecords(eventID, entries, times)
    if err != nil {
        return err
    }
    if len(records) == 0 {
        return nil
    }
    return s.backend.UpdateFinalTimes(ctx, records)
}

// Recalculate asks the backend to reseed an event by time and returns the
// reloaded heat sheet.
func (s *Service) Recalculate(ctx context.Context, eventID uint64) (EventView, error) {
    ev, err := s.event(ctx, eventID)
    if err != nil {
        return EventView{}, err
    }
    if err := s.backend.Recalculate(ctx, eventID); err != nil {
        return EventView{}, err
    }
    return s.eventView(ctx, ev)
}

// Ping checks that the backend answers.
func (s *Service) Ping(ctx context.Context) error {
    _, err := s.backend.Competition(ctx)
    return err
}

// OnPersisted registers fn to run after every background write that the
// backend accepted, with the events it changed.  fn runs on the write's
// goroutine before Wait returns.  Register it before serving requests.
func (s *Service) OnPersisted(fn func(ctx context.Context, eventIDs ...uint64)) {
    s.onPersisted = fn
}

// Wait blocks until every background write has finished.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) persist(ctx context.Context, op string, eventID uint64, fn func(context.Context) error) {
    s.wg.Add(1)
    go func() {
        defer s.wg.Done()
        wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
        defer cancel()
        if err := fn(wctx); err != nil {
            s.log.Warn("backend write failed",
                zap.String("op", op),
                zap.Uint64("event_id", eventID),
                zap.Error(err),
            )
            return
        }
        if s.onPersisted != nil {
            s.onPersisted(wctx, eventID)
        }
    }()
}

func (s *Service) event(ctx context.Context, eventID uint64) (model.Event, error) {
    events, err := s.backend.Competition(ctx)
    if err != nil {
        return model.Event{}, err
    }
    for _, ev := range events {
        if ev.ID == eventID {
            return ev, nil
        }
    }
    return model.Event{}, fmt.Errorf("%w: %d", ErrUnknownEvent, eventID)
}

func (s *Service) grid(ctx context.Context, eventID uint64) (*heat.Grid, error) {
    ev, err := s.event(ctx, eventID)
    if err != nil {
        return nil, err
    }
    return s.load(ctx, ev)
}

func (s *Service) load(ctx context.Context, ev model.Event) (*heat.Grid, error) {
    entries, err := s.backend.HeatSheet(ctx, ev.ID)
    if err != nil {
        return nil, err
    }
    return heat.Load(ev, entries)
}

func (s *Service) eventView(ctx context.Context, ev model.Event) (EventView, error) {
    g, err := s.load(ctx, ev)
    if err != nil {
        return EventView{}, err
    }
    v := newEventView(ev, g)
    if n := len(v.Unplaced); n > 0 {
        s.log.Warn("entries without heat or lane", zap.Uint64("event_id", ev.ID), zap.Int("count", n))
    }
    return v, nil
}

func (s *Service) finalGrid(ctx context.Context, ev model.Event) (*heat.Grid, error) {
    qualifiers, err := s.backend.TopQualifiers(ctx, ev.ID)
    if err != nil {
        return nil, err
    }
    seeded, err := seeding.Seed(qualifiers)
    if err != nil {
        return nil, fmt.Errorf("final of event %d: %w", ev.ID, err)
    }
    g := heat.Build(ev.ID, heat.LanesPerHeat, ev.Relay)
    for lane, q := range seeded {
        q.Time = model.RaceTime{}
        if err := g.Place(heat.Position{Heat: 1, Lane: lane}, q); err != nil {
            return nil, err
        }
    }
    return g, nil
}

// timeRecords resolves typed rows against the entries they were shown for.
func timeRecords(eventID uint64, entries []model.Entry, times []TimeEntry) ([]TimeRecord, error) {
    byID := make(map[string]model.Entry, len(entries))
    for _, e := range entries {
        byID[e.ID] = e
    }
    out := make([]TimeRecord, 0, len(times))
    for _, t := range times {
        e, ok := byID[t.EntryID]
        if !ok {
            return nil, fmt.Errorf("%w: %q in event %d", ErrUnknownEntry, t.EntryID, eventID)
        }
        rec := TimeRecord{EventID: eventID, Time: t.Time}
        switch p := e.Payload.(type) {
        case model.Individual:
            rec.SwimmerEventID = p.SwimmerEventID
        case model.Relay:
            rec.RelayEventID = p.RelayEventID
        default:
            return nil, fmt.Errorf("%w: %q has no payload", ErrUnknownEntry, t.EntryID)
        }
        out = append(out, rec)
    }
    return out, nil
}
