package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: a uniqueness rule rejected the write (duplicate
//     application, duplicate active submission)
//   - ErrInvalidState: the conditional update refused the write because the
//     entity is in the wrong state (non-PENDING application, CLOSED task,
//     already-approved submission)
//   - ErrCapacityExceeded: the task counter update found approved_count at
//     capacity and touched nothing
//   - ErrBlocked: the certificate exists but is administratively blocked
//   - ErrUnavailable: an external collaborator (file store, renderer,
//     broker) failed transiently
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrBlocked          = errors.New("blocked")
	ErrUnavailable      = errors.New("unavailable")
)
