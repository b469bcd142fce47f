package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// platform answers like the real one for a handful of fixed names:
// free is available, alice is taken, ghost is only resolvable via its
// profile page (404), vague gets a large profile page with no markers, and
// everything else fails both probes.
func platform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signup/", func(w http.ResponseWriter, r *http.Request) {
		switch r.FormValue("username") {
		case "free":
			fmt.Fprint(w, `{"available":true}`)
		case "alice":
			fmt.Fprint(w, `{"available":false}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET /{user}/", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("user") {
		case "ghost":
			w.WriteHeader(http.StatusNotFound)
		case "vague":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, strings.Repeat("<div>filler</div>", 4000))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	dir     string
	config  string
	results string
	input   string
}

func newEnv(t *testing.T, extra string) env {
	t.Helper()
	srv := platform(t)
	dir := t.TempDir()
	e := env{
		dir:     dir,
		config:  filepath.Join(dir, "handlecheck.yml"),
		results: filepath.Join(dir, "results"),
		input:   filepath.Join(dir, "usernames.txt"),
	}
	cfg := fmt.Sprintf(`
platform:
  profile_url: "%[1]s/{}/"
  signup_url: "%[1]s/signup/"
  claimed_username: alice
  unclaimed_username: free
delay:
  fallback: {min_seconds: 0.001, max_seconds: 0.002}
  pacing: {min_seconds: 0.001, max_seconds: 0.002}
output:
  results_dir: "%[2]s"
  input_file: "%[3]s"
%[4]s`, srv.URL, e.results, e.input, extra)
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))
	return e
}

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func withInteractive(t *testing.T) {
	t.Helper()
	prev := isInteractive
	isInteractive = func(io.Reader) bool { return true }
	t.Cleanup(func() { isInteractive = prev })
}

func detailedReport(t *testing.T, dir string) map[string]any {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "instagram_check_detailed_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestRun_PositionalUsernames(t *testing.T) {
	e := newEnv(t, "")

	code, stdout, _ := run(t, "", "--config", e.config, "--no-color",
		"Free", "alice", "ghost", "bob", strings.Repeat("x", 31))
	require.Equal(t, 0, code)

	assert.Contains(t, stdout, "Checking 5 usernames...")
	assert.Contains(t, stdout, "Progress: 5/5")
	assert.Contains(t, stdout, "[+] free: AVAILABLE")
	assert.Contains(t, stdout, "[-] alice: TAKEN (Taken (API))")
	assert.Contains(t, stdout, "[+] ghost: AVAILABLE")
	assert.Contains(t, stdout, "[?] bob: ERROR: HTTP 429")
	assert.Contains(t, stdout, "TAKEN (invalid format)")
	assert.Contains(t, stdout, "Total checked: 5")

	doc := detailedReport(t, e.results)
	assert.Equal(t, map[string]any{
		"total_checked":     float64(5),
		"available_count":   float64(2),
		"unavailable_count": float64(2),
		"error_count":       float64(1),
	}, doc["summary"])

	avail, err := filepath.Glob(filepath.Join(e.results, "instagram_check_available_*.txt"))
	require.NoError(t, err)
	require.Len(t, avail, 1)
	body, err := os.ReadFile(avail[0])
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(body), "\n\nfree\nghost\n"))
}

func TestRun_DefaultFileWhenNotInteractive(t *testing.T) {
	e := newEnv(t, "")
	require.NoError(t, os.WriteFile(e.input, []byte("free\n\nalice\n"), 0o600))

	code, stdout, _ := run(t, "", "--config", e.config, "--no-color", "--no-output")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Progress: 2/2")
	assert.NoDirExists(t, e.results)
}

func TestRun_MissingFileIsEmptyRun(t *testing.T) {
	e := newEnv(t, "")

	code, stdout, _ := run(t, "", "--config", e.config, "--no-color")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "not found")
	assert.Contains(t, stdout, "No usernames were checked.")
}

func TestRun_InteractiveManualEntry(t *testing.T) {
	withInteractive(t)
	e := newEnv(t, "")

	code, stdout, _ := run(t, "2\nfree, alice,\n", "--config", e.config, "--no-color", "--no-output")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Enter usernames separated by commas: ")
	assert.Contains(t, stdout, "Progress: 2/2")
	assert.Contains(t, stdout, "[+] free: AVAILABLE")
}

func TestRun_InteractiveFileEntry(t *testing.T) {
	withInteractive(t)
	e := newEnv(t, "")
	other := filepath.Join(e.dir, "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("ghost\n"), 0o600))

	code, stdout, _ := run(t, "1\n"+other+"\n", "--config", e.config, "--no-color", "--no-output")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "[+] ghost: AVAILABLE")
}

func TestRun_InteractiveEOFFallsBackToDefaultFile(t *testing.T) {
	withInteractive(t)
	e := newEnv(t, "")
	require.NoError(t, os.WriteFile(e.input, []byte("alice\n"), 0o600))

	code, stdout, _ := run(t, "", "--config", e.config, "--no-color", "--no-output")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Running in non-interactive mode")
	assert.Contains(t, stdout, "[-] alice: TAKEN")
}

func TestRun_InteractiveInvalidChoice(t *testing.T) {
	withInteractive(t)
	e := newEnv(t, "")

	code, stdout, _ := run(t, "3\n", "--config", e.config, "--no-color")
	assert.Equal(t, 2, code)
	assert.Contains(t, stdout, "Invalid choice!")
}

func TestRun_UnclearPolicyFromFlag(t *testing.T) {
	e := newEnv(t, "")

	code, stdout, stderr := run(t, "", "--config", e.config, "--no-color", "--no-output", "vague")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "[+] vague: AVAILABLE")

	code, stdout, stderr = run(t, "", "--config", e.config, "--no-color", "--no-output", "--unclear-policy", "unknown", "vague")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "[?] vague: ERROR: Unclear (ambiguous profile page)")
	assert.NotContains(t, stdout, "[+] vague")
}

func TestRun_UnclearPolicyFromConfig(t *testing.T) {
	e := newEnv(t, "classifier:\n  unclear_policy: unknown\n")

	code, stdout, stderr := run(t, "", "--config", e.config, "--no-color", "--no-output", "vague")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "[?] vague: ERROR: Unclear (ambiguous profile page)")
}

func TestRun_SelfTest(t *testing.T) {
	e := newEnv(t, "")
	code, stdout, _ := run(t, "", "--config", e.config, "--no-color", "--test")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "heuristics are working")
}

func TestRun_SelfTestFails(t *testing.T) {
	e := newEnv(t, "")

	// Swap the pair so the verdicts no longer match expectations.
	cfg, err := os.ReadFile(e.config)
	require.NoError(t, err)
	swapped := strings.NewReplacer("  claimed_username: alice", "  claimed_username: free",
		"unclaimed_username: free", "unclaimed_username: alice").Replace(string(cfg))
	require.NoError(t, os.WriteFile(e.config, []byte(swapped), 0o600))

	code, stdout, _ := run(t, "", "--config", e.config, "--no-color", "--test")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Not working")
}

func TestRun_UsageErrors(t *testing.T) {
	code, _, _ := run(t, "", "-h")
	assert.Equal(t, 0, code)

	code, _, _ = run(t, "", "--bogus")
	assert.Equal(t, 2, code)

	e := newEnv(t, "classifier:\n  unclear_policy: maybe\n")
	code, _, stderr := run(t, "", "--config", e.config)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "config error")
}
