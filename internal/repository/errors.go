// Package repository defines error types shared by the MySQL adapter.
// Write failures reach callers wrapped in *model.PersistenceError; these
// sentinels sit underneath so handlers and tests can tell the cases apart
// with errors.Is.
package repository

import "errors"

// ErrAlreadyEntered is returned when a swimmer is assigned to an event
// they already swim in.
var ErrAlreadyEntered = errors.New("swimmer already entered in event")

// ErrEntryNotFound is returned when a changeset or time record names a
// row that does not exist in the event.
var ErrEntryNotFound = errors.New("entry not found")

// ErrNoFinal is returned when final times are written for a time-trial
// event.
var ErrNoFinal = errors.New("event has no final")
