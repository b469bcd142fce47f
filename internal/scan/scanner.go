package scan

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/handlecheck/internal/httpx"
)

const MaxUsernameLength = 30

// PatternMatchTimeout bounds one UsernamePattern match; regexp2 backtracks.
const PatternMatchTimeout = 100 * time.Millisecond

type Scanner struct {
	client   httpx.Doer
	cfg      Config
	log      logrus.FieldLogger
	observer Observer
	pattern  *regexp2.Regexp
	now      func() time.Time
}

func NewScanner(client httpx.Doer, cfg Config, logger logrus.FieldLogger, observer Observer) (*Scanner, error) {
	if client == nil {
		return nil, errors.New("scan: nil http client")
	}
	if cfg.Headers == nil {
		cfg.Headers = httpx.BrowserHeaders("")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	if cfg.Indicators.Presence == nil && cfg.Indicators.Absence == nil {
		unclear := cfg.Indicators.UnclearAsUnknown
		threshold := cfg.Indicators.SmallBodyThreshold
		cfg.Indicators = DefaultIndicators()
		cfg.Indicators.UnclearAsUnknown = unclear
		if threshold > 0 {
			cfg.Indicators.SmallBodyThreshold = threshold
		}
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	if observer == nil {
		observer = nopObserver{}
	}

	s := &Scanner{
		client:   client,
		cfg:      cfg,
		log:      logger,
		observer: observer,
		now:      time.Now,
	}

	if cfg.UsernamePattern != "" {
		re, err := regexp2.Compile(cfg.UsernamePattern, 0)
		if err != nil {
			return nil, errors.Wrap(err, "invalid username pattern")
		}
		re.MatchTimeout = PatternMatchTimeout
		s.pattern = re
	}
	return s, nil
}

// Normalize trims and lower-cases a raw username.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidFormat reports whether a normalized username may be sent to the platform.
func (s *Scanner) ValidFormat(username string) bool {
	n := utf8.RuneCountInString(username)
	if n < 1 || n > MaxUsernameLength {
		return false
	}
	if s.pattern == nil {
		return true
	}
	ok, err := s.pattern.MatchString(username)
	if err != nil {
		s.log.WithError(err).WithField("username", username).Warn("username pattern match failed")
		return false
	}
	return ok
}

// Check runs the signup probe and, when it is inconclusive, the profile
// probe. It never returns an error: failures become an Unknown verdict.
func (s *Scanner) Check(ctx context.Context, raw string) Result {
	s.observer.Checking(raw)

	username := Normalize(raw)
	log := s.log.WithField("username", username)

	if !s.ValidFormat(username) {
		return s.finish(log, Result{
			Username: username,
			Verdict:  Taken,
			Status:   StatusInvalidFormat,
			Method:   MethodValidation,
		})
	}

	verdict, status := s.SignupProbe(ctx, username)
	method := MethodSignup

	if verdict == Unknown {
		log.WithField("status", status).Debug("signup check inconclusive, falling back to profile page")
		if d, err := s.cfg.Fallback.Wait(ctx); err != nil {
			log.WithError(err).Debug("fallback delay interrupted")
		} else {
			log.WithField("delay", d).Debug("fallback delay done")
		}
		verdict, status = s.ProfileProbe(ctx, username)
		method = MethodProfile
	}

	return s.finish(log, Result{
		Username: username,
		Verdict:  verdict,
		Status:   status,
		Method:   method,
	})
}

func (s *Scanner) finish(log logrus.FieldLogger, res Result) Result {
	res.Timestamp = s.now()
	log.WithFields(logrus.Fields{
		"verdict": res.Verdict.String(),
		"status":  res.Status,
		"method":  res.Method,
	}).Debug("check finished")
	s.observer.Result(res)
	return res
}
