package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

var ErrHelp = errors.New("help requested")

// Options holds command-line overrides. Zero values mean "use the config
// file / environment value".
type Options struct {
	NoColor  bool
	NoOutput bool
	Verbose  bool
	WithTor  bool
	Test     bool

	ConfigFile    string
	InputFile     string
	ResultsDir    string
	Prefix        string
	TimeoutS      int
	UnclearPolicy string
}

const usageText = `
usage:
  handlecheck [flags] [USERNAME ...]
  handlecheck --input usernames.txt
  handlecheck --test

With no usernames and no --input, handlecheck asks interactively when run in a
terminal and reads usernames.txt otherwise.

positional arguments:
  USERNAMES              usernames to check

flags:
  -h, --help             show this help message and exit
  --no-color             disable colored stdout output
  --no-output            do not write report files
  -t, --tor              use tor proxy
  -v, --verbose          verbose output and debug logging
  --test                 check the configured claimed/unclaimed username pair

options:
  --config PATH          config file (default: handlecheck.yml)
  -i, --input PATH       file with one username per line
  --results DIR          report output directory (default: .)
  --prefix NAME          report file prefix (default: instagram_check)
  --timeout SECONDS      HTTP request timeout (default: 10)
  --unclear-policy P     verdict for large profile pages without markers:
                         available (default) or unknown
`

func Parse(args []string, stdout, stderr io.Writer) (Options, []string, error) {
	var opts Options
	var help bool

	fs := flag.NewFlagSet("handlecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usageText)
	}

	// Help
	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	// Behavior flags
	fs.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&opts.NoOutput, "no-output", false, "disable file output")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose output")
	fs.BoolVar(&opts.Verbose, "verbose", false, "verbose output")
	fs.BoolVar(&opts.WithTor, "t", false, "use tor proxy")
	fs.BoolVar(&opts.WithTor, "tor", false, "use tor proxy")
	fs.BoolVar(&opts.Test, "test", false, "validate heuristics")

	// Options
	fs.StringVar(&opts.ConfigFile, "config", "handlecheck.yml", "config file path")
	fs.StringVar(&opts.InputFile, "i", "", "usernames file")
	fs.StringVar(&opts.InputFile, "input", "", "usernames file")
	fs.StringVar(&opts.ResultsDir, "results", "", "results output directory")
	fs.StringVar(&opts.Prefix, "prefix", "", "report file prefix")
	fs.IntVar(&opts.TimeoutS, "timeout", 0, "request timeout in seconds")
	fs.StringVar(&opts.UnclearPolicy, "unclear-policy", "", "available or unknown")

	if err := fs.Parse(args); err != nil {
		return Options{}, nil, err
	}
	if help {
		fs.Usage()
		return Options{}, nil, ErrHelp
	}

	if opts.TimeoutS < 0 {
		return Options{}, nil, fmt.Errorf("invalid --timeout %d: must be positive", opts.TimeoutS)
	}

	opts.UnclearPolicy = strings.ToLower(strings.TrimSpace(opts.UnclearPolicy))
	switch opts.UnclearPolicy {
	case "", "available", "unknown":
	default:
		return Options{}, nil, fmt.Errorf("invalid --unclear-policy %q: want available or unknown", opts.UnclearPolicy)
	}

	usernames := fs.Args()
	return opts, usernames, nil
}
