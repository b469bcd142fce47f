package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/handlecheck/internal/batch"
	"github.com/tdh8316/handlecheck/internal/cli"
	"github.com/tdh8316/handlecheck/internal/config"
	"github.com/tdh8316/handlecheck/internal/data"
	"github.com/tdh8316/handlecheck/internal/httpx"
	"github.com/tdh8316/handlecheck/internal/output"
	"github.com/tdh8316/handlecheck/internal/pace"
	"github.com/tdh8316/handlecheck/internal/report"
	"github.com/tdh8316/handlecheck/internal/scan"
)

// isInteractive is replaced in tests.
var isInteractive = func(stdin io.Reader) bool {
	f, ok := stdin.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "Handlecheck - Username Availability Checker")
	fmt.Fprintln(stdout, strings.Repeat("=", 50))

	opts, usernames, err := cli.Parse(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	applyOverrides(cfg, opts)

	logger := newLogger(stderr, opts.Verbose, opts.NoColor)
	if opts.Verbose {
		dump := pp.New()
		dump.SetOutput(stderr)
		dump.SetColoringEnabled(!opts.NoColor)
		dump.Println("config:", cfg)
	}

	printer := output.NewPrinter(stdout, opts.NoColor, opts.Verbose)

	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:     cfg.Timeout(),
		WithTor:     cfg.HTTP.WithTor,
		TorProxyURL: cfg.HTTP.TorProxyURL,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize HTTP client: %v\n", err)
		return 1
	}

	scanner, err := scan.NewScanner(httpClient, scanConfig(cfg), logger.WithField("component", "scan"), printer)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if opts.Test {
		return runTest(ctx, printer, scanner, cfg)
	}

	if len(usernames) == 0 {
		var code int
		usernames, code = collectUsernames(opts, cfg, stdin, stdout, printer)
		if code != 0 {
			return code
		}
	}
	if len(usernames) == 0 {
		fmt.Fprintln(stdout, "No usernames were checked.")
		return 0
	}

	if cfg.HTTP.WithTor {
		printer.Notice("Using tor proxy %s", cfg.HTTP.TorProxyURL)
	}

	pacing := pace.New(cfg.Delay.Pacing.Min(), cfg.Delay.Pacing.Max())
	runner := batch.NewRunner(scanner, pacing, logger.WithField("component", "batch"), printer)

	out, err := runner.Run(ctx, usernames)
	if err != nil {
		printer.Notice("Interrupted (%v); reporting %d of %d usernames", err, len(out.Results), len(usernames))
	}

	if len(out.Results) == 0 {
		fmt.Fprintln(stdout, "No usernames were checked.")
		return 0
	}

	printer.Summary(out.Buckets)

	if !opts.NoOutput {
		files, err := report.Write(out, report.Options{
			Dir:    cfg.Output.ResultsDir,
			Prefix: cfg.Output.Prefix,
		})
		if err != nil {
			fmt.Fprintf(stderr, "failed to write results: %v\n", err)
			return 1
		}
		printer.Saved(files)
	}

	return 0
}

func applyOverrides(cfg *config.Config, opts cli.Options) {
	if opts.TimeoutS > 0 {
		cfg.HTTP.TimeoutSeconds = opts.TimeoutS
	}
	if opts.WithTor {
		cfg.HTTP.WithTor = true
	}
	if opts.ResultsDir != "" {
		cfg.Output.ResultsDir = opts.ResultsDir
	}
	if opts.Prefix != "" {
		cfg.Output.Prefix = opts.Prefix
	}
	if opts.InputFile != "" {
		cfg.Output.InputFile = opts.InputFile
	}
	if opts.UnclearPolicy != "" {
		cfg.Classifier.UnclearPolicy = opts.UnclearPolicy
	}
}

func scanConfig(cfg *config.Config) scan.Config {
	ind := scan.DefaultIndicators()
	ind.SmallBodyThreshold = cfg.Classifier.SmallBodyThreshold
	ind.UnclearAsUnknown = cfg.Classifier.UnclearPolicy == config.PolicyUnknown

	return scan.Config{
		ProfileURL:      cfg.Platform.ProfileURL,
		SignupURL:       cfg.Platform.SignupURL,
		SignupReferer:   cfg.Platform.SignupReferer,
		CSRFToken:       cfg.Platform.CSRFToken,
		Headers:         httpx.BrowserHeaders(cfg.HTTP.UserAgent),
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		UsernamePattern: cfg.Classifier.UsernamePattern,
		Indicators:      ind,
		Fallback:        pace.New(cfg.Delay.Fallback.Min(), cfg.Delay.Fallback.Max()),
	}
}

func newLogger(stderr io.Writer, verbose, noColor bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: noColor,
		FullTimestamp: true,
	})
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// collectUsernames resolves the input source: --input, the interactive menu,
// or the default file. A non-zero code means the run should stop.
func collectUsernames(opts cli.Options, cfg *config.Config, stdin io.Reader, stdout io.Writer, printer *output.Printer) ([]string, int) {
	if opts.InputFile != "" || !isInteractive(stdin) {
		return loadFile(cfg.Output.InputFile, printer), 0
	}

	r := bufio.NewReader(stdin)
	fmt.Fprintln(stdout, "Choose an option:")
	fmt.Fprintf(stdout, "1. Check usernames from file (%s)\n", cfg.Output.InputFile)
	fmt.Fprintln(stdout, "2. Enter usernames manually")

	choice, err := prompt(r, stdout, "Enter choice (1 or 2): ")
	if err != nil {
		fmt.Fprintf(stdout, "\nRunning in non-interactive mode, checking %s\n", cfg.Output.InputFile)
		return loadFile(cfg.Output.InputFile, printer), 0
	}

	switch choice {
	case "1":
		name, err := prompt(r, stdout, fmt.Sprintf("Enter filename (default: %s): ", cfg.Output.InputFile))
		if err != nil || name == "" {
			name = cfg.Output.InputFile
		}
		return loadFile(name, printer), 0
	case "2":
		line, err := prompt(r, stdout, "Enter usernames separated by commas: ")
		if err != nil && line == "" {
			fmt.Fprintf(stdout, "\nRunning in non-interactive mode, checking %s\n", cfg.Output.InputFile)
			return loadFile(cfg.Output.InputFile, printer), 0
		}
		return data.SplitList(line), 0
	default:
		fmt.Fprintln(stdout, "Invalid choice!")
		return nil, 2
	}
}

// prompt returns the trimmed line. io.EOF is returned only when nothing was typed.
func prompt(r *bufio.Reader, stdout io.Writer, question string) (string, error) {
	fmt.Fprint(stdout, question)
	line, err := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}

func loadFile(name string, printer *output.Printer) []string {
	names, err := data.LoadUsernames(name)
	if err != nil {
		if data.IsNotFound(err) {
			printer.Notice("Error: File '%s' not found.", name)
		} else {
			printer.Notice("Error: %v", err)
		}
		return nil
	}
	return names
}

// runTest checks the configured claimed/unclaimed pair and reports whether
// the heuristics still tell them apart.
func runTest(ctx context.Context, printer *output.Printer, scanner *scan.Scanner, cfg *config.Config) int {
	printer.Notice("Checking heuristics against %s (claimed) and %s (unclaimed)...",
		cfg.Platform.ClaimedUsername, cfg.Platform.UnclaimedUsername)

	claimed := scanner.Check(ctx, cfg.Platform.ClaimedUsername)
	unclaimed := scanner.Check(ctx, cfg.Platform.UnclaimedUsername)

	if claimed.Verdict == scan.Taken && unclaimed.Verdict == scan.Available {
		printer.Logger().Print("[Done] heuristics are working")
		return 0
	}

	printer.Logger().Printf("[-] Not working (%s: expected taken, result is %s [%s] | %s: expected available, result is %s [%s])",
		claimed.Username, claimed.Verdict, claimed.Status,
		unclaimed.Username, unclaimed.Verdict, unclaimed.Status,
	)
	return 1
}
