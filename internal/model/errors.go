package model

import "fmt"

// PersistenceError is returned when a call to the backend fails, either at
// the transport level or with a non-2xx status.  Status is zero for
// transport and database failures.
type PersistenceError struct {
    Op     string
    Status int
    Err    error
}

func (e *PersistenceError) Error() string {
    switch {
    case e.Status != 0 && e.Err != nil:
        return fmt.Sprintf("%s: backend returned %d: %v", e.Op, e.Status, e.Err)
    case e.Status != 0:
        return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
    default:
        return fmt.Sprintf("%s: %v", e.Op, e.Err)
    }
}

func (e *PersistenceError) Unwrap() error { return e.Err }
