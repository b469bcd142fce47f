package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tdh8316/handlecheck/internal/batch"
	"github.com/tdh8316/handlecheck/internal/report"
	"github.com/tdh8316/handlecheck/internal/scan"
)

func TestPrinter_ResultLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	p.Result(scan.Result{Username: "free", Verdict: scan.Available, Status: "Available (API)"})
	p.Result(scan.Result{Username: "alice", Verdict: scan.Taken, Status: "Taken (API)"})
	p.Result(scan.Result{Username: "ghost", Verdict: scan.Unknown, Status: "HTTP 429"})

	assert.Equal(t,
		"[+] free: AVAILABLE\n"+
			"[-] alice: TAKEN (Taken (API))\n"+
			"[?] ghost: ERROR: HTTP 429\n",
		buf.String())
}

func TestPrinter_VerboseShowsReason(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, true)
	p.Result(scan.Result{Username: "free", Verdict: scan.Available, Status: "Available (404)"})
	assert.Equal(t, "[+] free: AVAILABLE (Available (404))\n", buf.String())
}

func TestPrinter_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	p.Start(2)
	p.Step(1, 2)
	p.Checking(" Alice ")

	assert.Equal(t, "Checking 2 usernames...\n\nProgress: 1/2\nChecking:  Alice \n", buf.String())
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	var b batch.Buckets
	b.Add(scan.Result{Username: "free", Verdict: scan.Available})
	b.Add(scan.Result{Username: "alice", Verdict: scan.Taken})
	p.Summary(b)

	out := buf.String()
	assert.Contains(t, out, "SUMMARY\n")
	assert.Contains(t, out, "Total checked: 2\n")
	assert.Contains(t, out, "Available: 1\n")
	assert.Contains(t, out, "Unavailable: 1\n")
	assert.Contains(t, out, "Errors: 0\n")
	assert.Contains(t, out, "  • free\n")
}

func TestPrinter_Saved(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	p.Saved(report.Files{Detailed: "out.json"})
	assert.Equal(t, "[*] Detailed results saved to: out.json\n", buf.String())
}
