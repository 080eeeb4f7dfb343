package meet

import "errors"

var (
    ErrUnknownEvent   = errors.New("unknown event")
    ErrUnknownDay     = errors.New("unknown meet day")
    ErrUnknownEntry   = errors.New("entry not in this event")
    ErrNotEligible    = errors.New("swimmer not eligible for event")
    ErrLaneTaken      = errors.New("lane already taken")
    ErrRelayAssign    = errors.New("relay teams cannot be assigned by hand")
    ErrNotEditing     = errors.New("event is not being edited")
    ErrAlreadyEditing = errors.New("event is already being edited")
)
