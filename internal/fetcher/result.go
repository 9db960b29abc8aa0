package fetcher

import "time"

// OutcomeKind classifies the result of one URL fetch attempt.
type OutcomeKind int

const (
	// OutcomeStored means the payload reached the content store.
	OutcomeStored OutcomeKind = iota
	// OutcomeSkipped means the server answered with a non-2xx status; no
	// record was created or updated.
	OutcomeSkipped
	// OutcomeFailed means the attempt errored (network, body read or store).
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeStored:
		return "stored"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchOutcome is the explicit per-URL result a cycle aggregates. Failures
// are values here, not control flow: a failed outcome never aborts sibling
// fetches or the cycle.
type FetchOutcome struct {
	URL        string
	Kind       OutcomeKind
	Hash       string
	IsNew      bool
	StatusCode int
	Elapsed    time.Duration
	Err        error
	// Fatal marks a store failure confirmed by a failed health probe. It is
	// the only outcome that terminates the fetch loop.
	Fatal bool
}
