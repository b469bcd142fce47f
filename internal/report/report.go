// Package report writes the bucketed results of a run to disk: a text list of
// available usernames, a text list of unavailable usernames with reasons, and
// a detailed JSON document with a summary.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tdh8316/handlecheck/internal/batch"
	"github.com/tdh8316/handlecheck/internal/scan"
)

const (
	DefaultPrefix   = "instagram_check"
	TimestampLayout = "20060102_150405"
)

var rule = strings.Repeat("=", 50)

type Options struct {
	Dir    string
	Prefix string
	RunID  string
}

// Files lists what Write produced. Text lists are skipped when their bucket
// is empty and then left blank here.
type Files struct {
	Available   string
	Unavailable string
	Detailed    string
}

type entry struct {
	Username  string       `json:"username"`
	Available bool         `json:"available"`
	Verdict   scan.Verdict `json:"verdict"`
	Status    string       `json:"status"`
	Method    string       `json:"method"`
	Timestamp time.Time    `json:"timestamp"`
}

type document struct {
	RunID       string        `json:"run_id"`
	CompletedAt time.Time     `json:"completed_at"`
	Available   []entry       `json:"available"`
	Unavailable []entry       `json:"unavailable"`
	Errors      []entry       `json:"errors"`
	Summary     batch.Summary `json:"summary"`
}

// Write stores out under opts.Dir, naming files after out.CompletedAt.
func Write(out batch.Outcome, opts Options) (Files, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return Files{}, errors.Wrapf(err, "create results dir %q", opts.Dir)
	}

	completed := out.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	ts := completed.Format(TimestampLayout)
	name := func(kind, ext string) string {
		return filepath.Join(opts.Dir, fmt.Sprintf("%s_%s_%s.%s", opts.Prefix, kind, ts, ext))
	}

	var files Files
	b := out.Buckets

	if len(b.Available) > 0 {
		files.Available = name("available", "txt")
		if err := writeFileAtomic(files.Available, AvailableText(b.Available)); err != nil {
			return files, err
		}
	}

	if len(b.Unavailable) > 0 {
		files.Unavailable = name("unavailable", "txt")
		if err := writeFileAtomic(files.Unavailable, UnavailableText(b.Unavailable)); err != nil {
			return files, err
		}
	}

	doc, err := Detailed(out, opts.RunID, completed)
	if err != nil {
		return files, err
	}
	files.Detailed = name("detailed", "json")
	if err := writeFileAtomic(files.Detailed, doc); err != nil {
		return files, err
	}

	return files, nil
}

func AvailableText(rs []scan.Result) []byte {
	var buf bytes.Buffer
	buf.WriteString("AVAILABLE USERNAMES\n")
	buf.WriteString(rule + "\n\n")
	for _, r := range rs {
		buf.WriteString(r.Username + "\n")
	}
	return buf.Bytes()
}

func UnavailableText(rs []scan.Result) []byte {
	var buf bytes.Buffer
	buf.WriteString("UNAVAILABLE USERNAMES\n")
	buf.WriteString(rule + "\n\n")
	for _, r := range rs {
		fmt.Fprintf(&buf, "%s - %s\n", r.Username, r.Status)
	}
	return buf.Bytes()
}

// Detailed renders the JSON document. Unknown verdicts appear with
// "available": false; the verdict field keeps the distinction.
func Detailed(out batch.Outcome, runID string, completed time.Time) ([]byte, error) {
	doc := document{
		RunID:       runID,
		CompletedAt: completed,
		Available:   entries(out.Buckets.Available),
		Unavailable: entries(out.Buckets.Unavailable),
		Errors:      entries(out.Buckets.Errors),
		Summary:     out.Buckets.Summary(),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "encode detailed report")
	}
	return buf.Bytes(), nil
}

func entries(rs []scan.Result) []entry {
	out := make([]entry, 0, len(rs))
	for _, r := range rs {
		out = append(out, entry{
			Username:  r.Username,
			Available: r.Available(),
			Verdict:   r.Verdict,
			Status:    r.Status,
			Method:    r.Method,
			Timestamp: r.Timestamp,
		})
	}
	return out
}

func writeFileAtomic(path string, body []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return errors.Wrapf(err, "write %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "rename %q", tmp)
	}
	return nil
}
