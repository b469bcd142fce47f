package scan

import (
	"net/http"
	"time"

	"github.com/tdh8316/handlecheck/internal/pace"
)

// Verdict is the outcome of a single availability check.
type Verdict int

const (
	Unknown Verdict = iota
	Available
	Taken
)

func (v Verdict) String() string {
	switch v {
	case Available:
		return "available"
	case Taken:
		return "taken"
	default:
		return "unknown"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Check paths recorded in Result.Method.
const (
	MethodValidation = "validation"
	MethodSignup     = "signup_api"
	MethodProfile    = "profile_page"
)

const StatusInvalidFormat = "invalid format"

type Result struct {
	Username  string
	Verdict   Verdict
	Status    string
	Method    string
	Timestamp time.Time
}

// Available collapses the verdict; Unknown reads as not available.
func (r Result) Available() bool {
	return r.Verdict == Available
}

type Config struct {
	ProfileURL    string
	SignupURL     string
	SignupReferer string
	CSRFToken     string

	Headers      http.Header
	MaxBodyBytes int64

	// UsernamePattern is an optional regexp2 expression every normalized
	// username must match, on top of the length check.
	UsernamePattern string

	Indicators Indicators
	Fallback   pace.Pacer
}

// Observer receives progress from Scanner.Check.
type Observer interface {
	Checking(username string)
	Result(Result)
}

type nopObserver struct{}

func (nopObserver) Checking(string) {}
func (nopObserver) Result(Result)   {}
