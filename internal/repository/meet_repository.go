package repository // repository is the MySQL adapter for the meet backend

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strconv"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/meet"
    "github.com/iliyamo/swimmeet-console/internal/model"
    "github.com/iliyamo/swimmeet-console/internal/seeding"
)

// finalSize is how many qualifiers a final takes.
const finalSize = heat.LanesPerHeat

// querier is satisfied by both *sql.DB and *sql.Tx so reads can run inside
// or outside a transaction.
type querier interface {
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MeetRepo reads and writes the backend's own tables directly:
// events, clubs, swimmers, swimmer_events, relay_events,
// relay_event_swimmers and final_events.
type MeetRepo struct {
    db *sql.DB
}

var _ meet.Backend = (*MeetRepo)(nil)

// NewMeetRepo constructs a MeetRepo with the given DB handle.
func NewMeetRepo(db *sql.DB) *MeetRepo {
    return &MeetRepo{db: db}
}

func fail(op string, err error) error {
    if err == nil {
        return nil
    }
    var pe *model.PersistenceError
    if errors.As(err, &pe) || errors.Is(err, meet.ErrUnknownEvent) {
        return err
    }
    return &model.PersistenceError{Op: op, Err: err}
}

// Competition lists all events with their participant counts.  Relay
// events count distinct clubs, individual events count swimmer entries.
func (r *MeetRepo) Competition(ctx context.Context) ([]model.Event, error) {
    const q = `SELECT e.id, e.name, e.age_group, e.gender, e.time_trial,
                      (SELECT COUNT(*) FROM swimmer_events se WHERE se.event_id = e.id),
                      (SELECT COUNT(DISTINCT re.club_id) FROM relay_events re WHERE re.event_id = e.id)
               FROM events e
               ORDER BY e.id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, fail("competition_data", err)
    }
    defer rows.Close()

    out := make([]model.Event, 0)
    for rows.Next() {
        var (
            e                   model.Event
            timeTrial           sql.NullBool
            swimmers, relayClub int
        )
        if err := rows.Scan(&e.ID, &e.Name, &e.AgeGroup, &e.Gender, &timeTrial, &swimmers, &relayClub); err != nil {
            return nil, fail("competition_data", err)
        }
        e.Relay = model.IsRelayName(e.Name)
        e.HasFinal = timeTrial.Valid && !timeTrial.Bool
        e.ParticipantCount = swimmers
        if e.Relay {
            e.ParticipantCount = relayClub
        }
        out = append(out, e)
    }
    if err := rows.Err(); err != nil {
        return nil, fail("competition_data", err)
    }
    return out, nil
}

func eventByID(ctx context.Context, q querier, id uint64) (model.Event, error) {
    const query = `SELECT id, name, age_group, gender, time_trial FROM events WHERE id = ?`
    var (
        e         model.Event
        timeTrial sql.NullBool
    )
    err := q.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.AgeGroup, &e.Gender, &timeTrial)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return model.Event{}, fmt.Errorf("%w: %d", meet.ErrUnknownEvent, id)
        }
        return model.Event{}, err
    }
    e.Relay = model.IsRelayName(e.Name)
    e.HasFinal = timeTrial.Valid && !timeTrial.Bool
    return e, nil
}

// HeatSheet returns an event's entries ordered by heat then lane.
func (r *MeetRepo) HeatSheet(ctx context.Context, eventID uint64) ([]model.Entry, error) {
    entries, err := heatSheet(ctx, r.db, eventID)
    return entries, fail("event_participants", err)
}

func heatSheet(ctx context.Context, q querier, eventID uint64) ([]model.Entry, error) {
    ev, err := eventByID(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    if ev.Relay {
        return relayEntries(ctx, q, eventID)
    }
    return swimmerEntries(ctx, q, eventID)
}

func swimmerEntries(ctx context.Context, q querier, eventID uint64) ([]model.Entry, error) {
    const query = `SELECT se.id, se.swimmer_id, se.heat_id, se.lane_id, se.time,
                          s.name, s.dob, COALESCE(c.name, '')
                   FROM swimmer_events se
                   JOIN swimmers s ON s.id = se.swimmer_id
                   LEFT JOIN clubs c ON c.id = s.club_id
                   WHERE se.event_id = ?
                   ORDER BY se.heat_id, se.lane_id`
    rows, err := q.QueryContext(ctx, query, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := make([]model.Entry, 0)
    for rows.Next() {
        var (
            ind      model.Individual
            heatID   sql.NullInt64
            laneID   sql.NullInt64
            raceTime sql.NullString
            dob      sql.NullString
            club     string
        )
        if err := rows.Scan(&ind.SwimmerEventID, &ind.SwimmerID, &heatID, &laneID, &raceTime, &ind.Name, &dob, &club); err != nil {
            return nil, err
        }
        ind.DOB = dob.String
        out = append(out, model.NewIndividualEntry(eventID, int(heatID.Int64), int(laneID.Int64), club,
            model.ParseRaceTime(raceTime.String), ind))
    }
    return out, rows.Err()
}

func relayEntries(ctx context.Context, q querier, eventID uint64) ([]model.Entry, error) {
    const teams = `SELECT re.id, re.club_id, re.heat_id, re.lane_id, re.time, COALESCE(c.name, '')
                   FROM relay_events re
                   LEFT JOIN clubs c ON c.id = re.club_id
                   WHERE re.event_id = ?
                   ORDER BY re.heat_id, re.lane_id`
    const members = `SELECT res.relay_event_id, s.name
                     FROM relay_event_swimmers res
                     JOIN relay_events re ON re.id = res.relay_event_id
                     JOIN swimmers s ON s.id = res.swimmer_id
                     WHERE re.event_id = ?
                     ORDER BY res.relay_event_id, res.id`

    names := make(map[uint64][]string)
    rows, err := q.QueryContext(ctx, members, eventID)
    if err != nil {
        return nil, err
    }
    for rows.Next() {
        var (
            relayID uint64
            name    string
        )
        if err := rows.Scan(&relayID, &name); err != nil {
            rows.Close()
            return nil, err
        }
        names[relayID] = append(names[relayID], name)
    }
    if err := rows.Err(); err != nil {
        rows.Close()
        return nil, err
    }
    rows.Close()

    rows, err = q.QueryContext(ctx, teams, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := make([]model.Entry, 0)
    for rows.Next() {
        var (
            rel      model.Relay
            heatID   sql.NullInt64
            laneID   sql.NullInt64
            raceTime sql.NullString
            club     string
        )
        if err := rows.Scan(&rel.RelayEventID, &rel.ClubID, &heatID, &laneID, &raceTime, &club); err != nil {
            return nil, err
        }
        rel.Swimmers = names[rel.RelayEventID]
        if rel.Swimmers == nil {
            rel.Swimmers = []string{}
        }
        out = append(out, model.NewRelayEntry(eventID, int(heatID.Int64), int(laneID.Int64), club,
            model.ParseRaceTime(raceTime.String), rel))
    }
    return out, rows.Err()
}

// TopQualifiers ranks the heat sheet by time and returns the fastest
// eight.  Entries without a time rank last.
func (r *MeetRepo) TopQualifiers(ctx context.Context, eventID uint64) ([]model.Entry, error) {
    entries, err := heatSheet(ctx, r.db, eventID)
    if err != nil {
        return nil, fail("top_8_participants", err)
    }
    ranked := seeding.Rank(entries)
    if len(ranked) > finalSize {
        ranked = ranked[:finalSize]
    }
    return ranked, nil
}

// EligibleSwimmers lists swimmers matching the event's age group and gender.
func (r *MeetRepo) EligibleSwimmers(ctx context.Context, eventID uint64) ([]model.Swimmer, error) {
    ev, err := eventByID(ctx, r.db, eventID)
    if err != nil {
        return nil, fail("eligible_swimmers", err)
    }
    const q = `SELECT s.id, s.name, s.dob, COALESCE(c.name, '')
               FROM swimmers s
               LEFT JOIN clubs c ON c.id = s.club_id
               WHERE s.age_group = ? AND LOWER(s.gender) = LOWER(?)
               ORDER BY s.name`
    rows, err := r.db.QueryContext(ctx, q, ev.AgeGroup, ev.Gender)
    if err != nil {
        return nil, fail("eligible_swimmers", err)
    }
    defer rows.Close()

    out := make([]model.Swimmer, 0)
    for rows.Next() {
        var (
            s   model.Swimmer
            dob sql.NullString
        )
        if err := rows.Scan(&s.ID, &s.Name, &dob, &s.Club); err != nil {
            return nil, fail("eligible_swimmers", err)
        }
        s.DOB = dob.String
        out = append(out, s)
    }
    if err := rows.Err(); err != nil {
        return nil, fail("eligible_swimmers", err)
    }
    return out, nil
}

// AssignSwimmer enters a swimmer into an event at the given cell.
func (r *MeetRepo) AssignSwimmer(ctx context.Context, eventID, swimmerID uint64, pos heat.Position) error {
    const exists = `SELECT COUNT(*) FROM swimmer_events WHERE swimmer_id = ? AND event_id = ?`
    var n int
    if err := r.db.QueryRowContext(ctx, exists, swimmerID, eventID).Scan(&n); err != nil {
        return fail("assign_swimmer_to_event", err)
    }
    if n > 0 {
        return fail("assign_swimmer_to_event", fmt.Errorf("swimmer %d event %d: %w", swimmerID, eventID, ErrAlreadyEntered))
    }
    const ins = `INSERT INTO swimmer_events (swimmer_id, event_id, heat_id, lane_id) VALUES (?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, ins, swimmerID, eventID, pos.Heat, pos.Lane)
    return fail("assign_swimmer_to_event", err)
}

// laneWrite is one resolved row update.
type laneWrite struct {
    relay bool
    id    uint64
    heat  int
    lane  int
}

// UpdateLanes applies a changeset in one transaction.  Relay cell ids are
// resolved to relay_events rows before the first UPDATE so earlier writes
// cannot change what a later id points at.
func (r *MeetRepo) UpdateLanes(ctx context.Context, eventID uint64, changes []heat.Assignment) (err error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return fail("update_lane", err)
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback()
        } else {
            err = fail("update_lane", tx.Commit())
        }
    }()

    writes := make([]laneWrite, 0, len(changes))
    for _, a := range changes {
        w, rerr := resolve(ctx, tx, eventID, a)
        if rerr != nil {
            return fail("update_lane", rerr)
        }
        writes = append(writes, w)
    }
    return fail("update_lane", applyLanes(ctx, tx, eventID, writes))
}

func resolve(ctx context.Context, q querier, eventID uint64, a heat.Assignment) (laneWrite, error) {
    w := laneWrite{heat: a.Heat, lane: a.Lane}
    if h, l, ok := model.ParseRelayEntryID(a.EntryID); ok {
        const find = `SELECT id FROM relay_events WHERE event_id = ? AND heat_id = ? AND lane_id = ?`
        if err := q.QueryRowContext(ctx, find, eventID, h, l).Scan(&w.id); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return w, fmt.Errorf("%w: %s", ErrEntryNotFound, a.EntryID)
            }
            return w, err
        }
        w.relay = true
        return w, nil
    }
    id, err := strconv.ParseUint(a.EntryID, 10, 64)
    if err != nil {
        return w, fmt.Errorf("%w: %q", ErrEntryNotFound, a.EntryID)
    }
    w.id = id
    return w, nil
}

func applyLanes(ctx context.Context, q querier, eventID uint64, writes []laneWrite) error {
    const swimmer = `UPDATE swimmer_events SET heat_id = ?, lane_id = ? WHERE id = ? AND event_id = ?`
    const relay = `UPDATE relay_events SET heat_id = ?, lane_id = ? WHERE id = ? AND event_id = ?`
    for _, w := range writes {
        stmt := swimmer
        if w.relay {
            stmt = relay
        }
        if _, err := q.ExecContext(ctx, stmt, w.heat, w.lane, w.id, eventID); err != nil {
            return err
        }
    }
    return nil
}

// storedTime is the column value for a time: NULL when blank.
func storedTime(t model.RaceTime) any {
    if t.IsBlank() {
        return nil
    }
    return t.String()
}

// UpdateTimes records heat times in one transaction.
func (r *MeetRepo) UpdateTimes(ctx context.Context, records []meet.TimeRecord) (err error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return fail("update_times", err)
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback()
        } else {
            err = fail("update_times", tx.Commit())
        }
    }()

    const swimmer = `UPDATE swimmer_events SET time = ? WHERE id = ?`
    const relay = `UPDATE relay_events SET time = ? WHERE id = ?`
    for _, rec := range records {
        stmt, id := swimmer, rec.SwimmerEventID
        if rec.RelayEventID != 0 {
            stmt, id = relay, rec.RelayEventID
        }
        if _, err := tx.ExecContext(ctx, stmt, storedTime(rec.Time), id); err != nil {
            return fail("update_times", err)
        }
    }
    return nil
}

// UpdateFinalTimes records final times, creating the final_events row on
// first write.  Events without a final are rejected.
func (r *MeetRepo) UpdateFinalTimes(ctx context.Context, records []meet.TimeRecord) (err error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return fail("update_final_times", err)
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback()
        } else {
            err = fail("update_final_times", tx.Commit())
        }
    }()

    for _, rec := range records {
        if err := upsertFinalTime(ctx, tx, rec); err != nil {
            return fail("update_final_times", err)
        }
    }
    return nil
}

func upsertFinalTime(ctx context.Context, q querier, rec meet.TimeRecord) error {
    ev, err := eventByID(ctx, q, rec.EventID)
    if err != nil {
        return err
    }
    if !ev.HasFinal {
        return fmt.Errorf("event %d: %w", rec.EventID, ErrNoFinal)
    }
    var swimmerID uint64
    const who = `SELECT swimmer_id FROM swimmer_events WHERE id = ? AND event_id = ?`
    if err := q.QueryRowContext(ctx, who, rec.SwimmerEventID, rec.EventID).Scan(&swimmerID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return fmt.Errorf("%w: swimmer event %d", ErrEntryNotFound, rec.SwimmerEventID)
        }
        return err
    }

    const find = `SELECT id FROM final_events WHERE event_id = ? AND swimmer_id = ?`
    var finalID uint64
    err = q.QueryRowContext(ctx, find, rec.EventID, swimmerID).Scan(&finalID)
    switch {
    case errors.Is(err, sql.ErrNoRows):
        const ins = `INSERT INTO final_events (event_id, swimmer_id, time) VALUES (?, ?, ?)`
        _, err = q.ExecContext(ctx, ins, rec.EventID, swimmerID, storedTime(rec.Time))
        return err
    case err != nil:
        return err
    }
    const upd = `UPDATE final_events SET time = ? WHERE id = ?`
    _, err = q.ExecContext(ctx, upd, storedTime(rec.Time), finalID)
    return err
}

// Recalculate reseeds a whole event by time: fastest eight in heat 1 in
// seeding order, the next eight in heat 2, and so on.
func (r *MeetRepo) Recalculate(ctx context.Context, eventID uint64) (err error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return fail("recalculate_heats_lanes", err)
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback()
        } else {
            err = fail("recalculate_heats_lanes", tx.Commit())
        }
    }()

    entries, err := heatSheet(ctx, tx, eventID)
    if err != nil {
        return fail("recalculate_heats_lanes", err)
    }
    // Relays without a cell share an entry id, so slots are taken from
    // the ranked position and rows from the payload, never by id.
    ranked := seeding.Rank(entries)
    writes := make([]laneWrite, 0, len(ranked))
    for k, e := range ranked {
        h, l := seeding.SlotFor(k)
        w := laneWrite{heat: h, lane: l}
        switch p := e.Payload.(type) {
        case model.Individual:
            w.id = p.SwimmerEventID
        case model.Relay:
            w.relay, w.id = true, p.RelayEventID
        default:
            continue
        }
        writes = append(writes, w)
    }
    return fail("recalculate_heats_lanes", applyLanes(ctx, tx, eventID, writes))
}
