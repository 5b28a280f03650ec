package remotedata

import (
	"fmt"
	"time"
)

// State is the lifecycle position of a snapshot.
type State int

const (
	// StateRequestPending means the request is known but not dispatched.
	StateRequestPending State = iota
	// StateResponsePending means the request is in flight.
	StateResponsePending
	// StateSuccess means the request completed with a payload (possibly empty).
	StateSuccess
	// StateFailed means the request completed with an error.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRequestPending:
		return "RequestPending"
	case StateResponsePending:
		return "ResponsePending"
	case StateSuccess:
		return "Success"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateRequestPending, StateResponsePending, StateSuccess, StateFailed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// IsTerminal reports whether s is Success or Failed.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

// RemoteData is one snapshot of a fetch. The zero value is RequestPending.
type RemoteData[T any] struct {
	state      State
	payload    T
	hasPayload bool
	err        *ErrorInfo
	completed  time.Time
	stale      bool
}

// RequestPending returns a snapshot for a request not yet dispatched.
func RequestPending[T any]() RemoteData[T] {
	return RemoteData[T]{state: StateRequestPending}
}

// ResponsePending returns a snapshot for a request in flight.
func ResponsePending[T any]() RemoteData[T] {
	return RemoteData[T]{state: StateResponsePending}
}

// Success returns a completed snapshot carrying payload.
func Success[T any](payload T) RemoteData[T] {
	return RemoteData[T]{state: StateSuccess, payload: payload, hasPayload: true, completed: time.Now()}
}

// SuccessEmpty returns a completed snapshot without a payload, as produced by
// a 204 response.
func SuccessEmpty[T any]() RemoteData[T] {
	return RemoteData[T]{state: StateSuccess, completed: time.Now()}
}

// Failed returns a completed snapshot carrying info.
func Failed[T any](info ErrorInfo) RemoteData[T] {
	return RemoteData[T]{state: StateFailed, err: &info, completed: time.Now()}
}

// State returns the lifecycle state.
func (r RemoteData[T]) State() State { return r.state }

// IsRequestPending reports whether the request is not yet dispatched.
func (r RemoteData[T]) IsRequestPending() bool { return r.state == StateRequestPending }

// IsResponsePending reports whether the request is in flight.
func (r RemoteData[T]) IsResponsePending() bool { return r.state == StateResponsePending }

// IsLoading reports whether either pending state holds.
func (r RemoteData[T]) IsLoading() bool { return !r.state.IsTerminal() }

// HasSucceeded reports whether the fetch completed successfully.
func (r RemoteData[T]) HasSucceeded() bool { return r.state == StateSuccess }

// HasFailed reports whether the fetch completed with an error.
func (r RemoteData[T]) HasFailed() bool { return r.state == StateFailed }

// HasCompleted reports whether the fetch reached a terminal state.
func (r RemoteData[T]) HasCompleted() bool { return r.state.IsTerminal() }

// Payload returns the payload and whether there is one. Only Success
// snapshots carry a payload.
func (r RemoteData[T]) Payload() (T, bool) {
	return r.payload, r.hasPayload
}

// Error returns the failure details of a Failed snapshot, nil otherwise.
func (r RemoteData[T]) Error() *ErrorInfo {
	return r.err
}

// TimeCompleted returns when the snapshot reached a terminal state.
func (r RemoteData[T]) TimeCompleted() time.Time {
	return r.completed
}

// IsStale reports whether a Success was served from a stale cache entry.
func (r RemoteData[T]) IsStale() bool {
	return r.stale
}

// WithStale marks a Success snapshot as served from a stale cache entry.
// Other states are returned unchanged.
func (r RemoteData[T]) WithStale() RemoteData[T] {
	if r.state == StateSuccess {
		r.stale = true
	}
	return r
}

// WithTimeCompleted overrides the completion time, for snapshots rebuilt from
// cache.
func (r RemoteData[T]) WithTimeCompleted(t time.Time) RemoteData[T] {
	if r.state.IsTerminal() {
		r.completed = t
	}
	return r
}

// String renders the snapshot for logs.
func (r RemoteData[T]) String() string {
	switch r.state {
	case StateFailed:
		return fmt.Sprintf("Failed(%d %s)", r.err.StatusCode, r.err.Message)
	case StateSuccess:
		if r.stale {
			return "Success(stale)"
		}
		return "Success"
	default:
		return r.state.String()
	}
}

// Convert maps a non-success snapshot to another payload type. Success
// snapshots must go through a mapping function instead; Convert turns them
// into SuccessEmpty.
func Convert[B, A any](r RemoteData[A]) RemoteData[B] {
	return RemoteData[B]{state: r.state, err: r.err, completed: r.completed, stale: r.stale}
}
