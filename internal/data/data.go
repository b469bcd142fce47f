package data

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const DefaultUsernamesFile = "usernames.txt"

var ErrNotFound = errors.New("usernames file not found")

// LoadUsernames reads one username per line, skipping blank lines.
// A missing file returns ErrNotFound (wrapped with the path).
func LoadUsernames(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%q", filename)
		}
		return nil, errors.Wrapf(err, "open %q", filename)
	}
	defer f.Close()

	names, err := ReadUsernames(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %q", filename)
	}
	return names, nil
}

func ReadUsernames(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// SplitList parses a comma-separated list as typed at the prompt.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsNotFound reports whether err came from a missing usernames file.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
