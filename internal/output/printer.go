package output

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/fatih/color"

	"github.com/tdh8316/handlecheck/internal/batch"
	"github.com/tdh8316/handlecheck/internal/report"
	"github.com/tdh8316/handlecheck/internal/scan"
)

// Printer writes user-facing progress. It implements scan.Observer and
// batch.Progress.
type Printer struct {
	noColor bool
	verbose bool

	logger *log.Logger
}

func NewPrinter(stdout io.Writer, noColor, verbose bool) *Printer {
	return &Printer{
		noColor: noColor,
		verbose: verbose,
		logger:  log.New(stdout, "", 0),
	}
}

func (p *Printer) Logger() *log.Logger {
	return p.logger
}

func (p *Printer) paint(fn func(string, ...interface{}) string, s string) string {
	if p.noColor {
		return s
	}
	return fn("%s", s)
}

func (p *Printer) Start(total int) {
	p.logger.Printf("Checking %d usernames...\n\n", total)
}

func (p *Printer) Step(i, total int) {
	p.logger.Printf("%s %d/%d", p.paint(color.HiBlueString, "Progress:"), i, total)
}

func (p *Printer) Checking(username string) {
	p.logger.Printf("Checking: %s", username)
}

func (p *Printer) Result(r scan.Result) {
	switch r.Verdict {
	case scan.Available:
		line := fmt.Sprintf("[%s] %s: %s", p.paint(color.HiGreenString, "+"), p.paint(color.HiWhiteString, r.Username), p.paint(color.HiGreenString, "AVAILABLE"))
		if p.verbose {
			line += " (" + r.Status + ")"
		}
		p.logger.Print(line)
	case scan.Taken:
		p.logger.Printf("[%s] %s: %s (%s)", p.paint(color.HiRedString, "-"), r.Username, p.paint(color.HiYellowString, "TAKEN"), r.Status)
	default:
		p.logger.Printf("[%s] %s: %s: %s",
			p.paint(color.HiRedString, "?"),
			r.Username,
			p.paint(color.HiMagentaString, "ERROR"),
			p.paint(color.HiRedString, r.Status),
		)
	}
}

func (p *Printer) Summary(b batch.Buckets) {
	rule := strings.Repeat("=", 50)
	p.logger.Print("\n" + rule)
	p.logger.Print("SUMMARY")
	p.logger.Print(rule)
	p.logger.Printf("Total checked: %d", b.Total())
	p.logger.Printf("Available: %s", p.paint(color.HiGreenString, fmt.Sprint(len(b.Available))))
	p.logger.Printf("Unavailable: %d", len(b.Unavailable))
	p.logger.Printf("Errors: %s", p.paint(color.HiRedString, fmt.Sprint(len(b.Errors))))

	if len(b.Available) > 0 {
		p.logger.Print("\nAvailable usernames:")
		for _, r := range b.Available {
			p.logger.Printf("  • %s", r.Username)
		}
	}
}

func (p *Printer) Saved(f report.Files) {
	if f.Available != "" {
		p.logger.Printf("\n[%s] Available usernames saved to: %s", p.paint(color.HiGreenString, "+"), f.Available)
	}
	if f.Unavailable != "" {
		p.logger.Printf("[%s] Unavailable usernames saved to: %s", p.paint(color.HiRedString, "-"), f.Unavailable)
	}
	if f.Detailed != "" {
		p.logger.Printf("[%s] Detailed results saved to: %s", p.paint(color.HiBlueString, "*"), f.Detailed)
	}
}

// Notice prints an informational "[!]" line.
func (p *Printer) Notice(format string, args ...interface{}) {
	p.logger.Printf("[%s] %s", p.paint(color.HiRedString, "!"), p.paint(color.HiYellowString, fmt.Sprintf(format, args...)))
}
