package coreerr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Rule maps an upstream status, optionally narrowed by an upstream error
// code, to a Kind. An empty Code matches any code, including a missing one.
type Rule struct {
	Status int
	Code   string
	Kind   Kind
}

// Table classifies upstream failures of one integration. Rules with an exact
// code match win over wildcard rules for the same status; anything that
// matches no rule falls back to Fallback.
type Table struct {
	Rules []Rule

	// Timeout is the kind for transport failures that timed out. Falls back
	// to Fallback when unset.
	Timeout Kind

	// Fallback is the kind for everything the rules do not cover.
	Fallback Kind
}

// Classify returns the kind for an upstream response with the given status
// and error code. An empty code means the body carried no usable code.
func (t Table) Classify(status int, code string) Kind {
	if code != "" {
		for _, r := range t.Rules {
			if r.Status == status && r.Code == code {
				return r.Kind
			}
		}
	}

	for _, r := range t.Rules {
		if r.Status == status && r.Code == "" {
			return r.Kind
		}
	}

	return t.Fallback
}

// ClassifyTransport returns the kind for a failure that carries no upstream
// status: timeouts map to Timeout, everything else to Fallback.
func (t Table) ClassifyTransport(err error) Kind {
	if t.Timeout != Unspecified && IsTimeout(err) {
		return t.Timeout
	}
	return t.Fallback
}

// UpstreamError is the cause attached to errors classified from an upstream
// response.
type UpstreamError struct {
	Status int
	Code   string
}

func (e *UpstreamError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d, code %q", e.Status, e.Code)
}

// UpstreamStatus returns the upstream HTTP status carried by err, if any.
func UpstreamStatus(err error) (int, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status, true
	}
	return 0, false
}

// FromResponse classifies an upstream error response into an *Error. The
// status and code are kept in an *UpstreamError cause.
func (t Table) FromResponse(status int, code string) *Error {
	return Wrap(t.Classify(status, code), &UpstreamError{Status: status, Code: code})
}

// FromTransport classifies a status-less failure into an *Error. An err that
// already is an *Error is returned unchanged.
func (t Table) FromTransport(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(t.ClassifyTransport(err), err)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
