package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors with the right
// code without string matching.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a uniqueness constraint rejected the write
// - ErrNoActiveEvent: user has no active verification event to renew or revoke
// - ErrNodeInactive: verification node exists but has been retired
// - ErrUnavailable: backing store temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrNoActiveEvent = errors.New("no active verification event")
	ErrNodeInactive  = errors.New("node inactive")
	ErrUnavailable   = errors.New("unavailable")
)
