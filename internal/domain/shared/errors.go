package shared

import "errors"

// ErrUnavailable marks failures caused by an unreachable or timed-out store.
// Callers decide whether to retry; the engine never does.
var ErrUnavailable = errors.New("store unavailable")
