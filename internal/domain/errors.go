package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateRangeError rejects an out-of-policy query range before any I/O happens.
type DateRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s to %s: %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Reason)
}

// ValidationError reports a structurally malformed raw payload. It is
// batch-fatal: no partial output is produced once validation fails.
type ValidationError struct {
	Kind    EventKind
	Index   int      // position of the offending record in the payload
	Missing []string // required fields absent from the record
	Reason  string   // set when the problem is not a missing field
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s record %d: missing required fields: %s",
			e.Kind, e.Index, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s record %d: %s", e.Kind, e.Index, e.Reason)
}

// FetchError reports a failed retrieval: either retry exhaustion on a
// transient failure or an immediate non-retryable rejection.
type FetchError struct {
	Kind       EventKind
	StatusCode int  // 0 when the request never produced a response
	Retryable  bool // whether the failure class was retried before surfacing
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
