package meet

import (
    "fmt"
    "sync"
)

// EditState tracks which events have their time inputs unlocked.  An event
// goes View -> Edit on Begin and back to View on Submit.  One EditState
// belongs to one console session.
type EditState struct {
    mu      sync.Mutex
    editing map[uint64]bool
}

// NewEditState returns a state with every event in view mode.
func NewEditState() *EditState {
    return &EditState{editing: make(map[uint64]bool)}
}

// Begin unlocks an event for editing.
func (s *EditState) Begin(eventID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.editing[eventID] {
        return fmt.Errorf("%w: event %d", ErrAlreadyEditing, eventID)
    }
    s.editing[eventID] = true
    return nil
}

// Submit returns an event to view mode.  Call it only after the times
// were accepted by the backend.
func (s *EditState) Submit(eventID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if !s.editing[eventID] {
        return fmt.Errorf("%w: event %d", ErrNotEditing, eventID)
    }
    delete(s.editing, eventID)
    return nil
}

// Editing reports whether an event is in edit mode.
func (s *EditState) Editing(eventID uint64) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.editing[eventID]
}
