// Package batch checks a list of usernames one at a time with randomized
// pacing between requests and sorts the results into buckets.
package batch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tdh8316/handlecheck/internal/pace"
	"github.com/tdh8316/handlecheck/internal/scan"
)

// Checker is satisfied by *scan.Scanner.
type Checker interface {
	Check(ctx context.Context, raw string) scan.Result
}

// Progress receives the running i/total indicator.
type Progress interface {
	Start(total int)
	Step(i, total int)
}

type Buckets struct {
	Available   []scan.Result
	Unavailable []scan.Result
	Errors      []scan.Result
}

// Add routes r by verdict. Buckets keep processing order and are never
// deduplicated.
func (b *Buckets) Add(r scan.Result) {
	switch r.Verdict {
	case scan.Available:
		b.Available = append(b.Available, r)
	case scan.Taken:
		b.Unavailable = append(b.Unavailable, r)
	default:
		b.Errors = append(b.Errors, r)
	}
}

func (b Buckets) Total() int {
	return len(b.Available) + len(b.Unavailable) + len(b.Errors)
}

type Summary struct {
	TotalChecked     int `json:"total_checked"`
	AvailableCount   int `json:"available_count"`
	UnavailableCount int `json:"unavailable_count"`
	ErrorCount       int `json:"error_count"`
}

func (b Buckets) Summary() Summary {
	return Summary{
		TotalChecked:     b.Total(),
		AvailableCount:   len(b.Available),
		UnavailableCount: len(b.Unavailable),
		ErrorCount:       len(b.Errors),
	}
}

type Outcome struct {
	Results     []scan.Result
	Buckets     Buckets
	CompletedAt time.Time
}

type Runner struct {
	checker  Checker
	pacing   pace.Pacer
	log      logrus.FieldLogger
	progress Progress
	now      func() time.Time
}

func NewRunner(checker Checker, pacing pace.Pacer, logger logrus.FieldLogger, progress Progress) *Runner {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	if progress == nil {
		progress = nopProgress{}
	}
	return &Runner{
		checker:  checker,
		pacing:   pacing,
		log:      logger,
		progress: progress,
		now:      time.Now,
	}
}

// Run checks usernames in order. It stops early only when ctx is cancelled,
// in which case the partial outcome is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context, usernames []string) (Outcome, error) {
	total := len(usernames)
	out := Outcome{Results: make([]scan.Result, 0, total)}
	r.progress.Start(total)

	var err error
	for i, raw := range usernames {
		if err = ctx.Err(); err != nil {
			break
		}

		r.progress.Step(i+1, total)
		res := r.checker.Check(ctx, raw)
		out.Results = append(out.Results, res)
		out.Buckets.Add(res)

		if i+1 < total {
			d, werr := r.pacing.Wait(ctx)
			if werr != nil {
				err = werr
				break
			}
			r.log.WithField("delay", d).Debug("paced before next username")
		}
	}

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"checked": len(out.Results),
			"total":   total,
		}).WithError(err).Warn("batch interrupted")
	}

	out.CompletedAt = r.now()
	return out, err
}

type nopProgress struct{}

func (nopProgress) Start(int)     {}
func (nopProgress) Step(int, int) {}
