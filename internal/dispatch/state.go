package dispatch

import "github.com/tbourn/go-advocacy-backend/internal/domain"

// EvaluateState maps a job's attempt tally to its terminal state. Callers
// invoke it once an attempt exists for every expected office; the result is
// a pure function of the counts.
//
// A job is completed only when every expected office has a successful
// attempt. With nothing expected and nothing attempted that holds vacuously,
// so a zero-office job completes. Failed means everything that was tried
// came back unsuccessful; anything in between is partial.
func EvaluateState(succeeded, attempted, expected int) domain.JobState {
	switch {
	case succeeded == expected:
		return domain.JobStateCompleted
	case succeeded > 0:
		return domain.JobStatePartial
	case attempted > 0:
		return domain.JobStateFailed
	default:
		// Offices were expected but no attempt was recorded. Nothing was
		// delivered, so the honest verdict is failed.
		return domain.JobStateFailed
	}
}
