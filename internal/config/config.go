// Package config loads handlecheck settings from an optional YAML file and
// HANDLECHECK_* environment variables.
package config

import (
	"os"
	"time"

	"github.com/jinzhu/configor"
	"github.com/pkg/errors"
)

const (
	DefaultFile = "handlecheck.yml"
	EnvPrefix   = "HANDLECHECK"

	PolicyAvailable = "available"
	PolicyUnknown   = "unknown"
)

type Config struct {
	Platform struct {
		// ProfileURL uses {} as the username placeholder, like the site database.
		ProfileURL    string `default:"https://www.instagram.com/{}/" yaml:"profile_url"`
		SignupURL     string `default:"https://www.instagram.com/api/v1/users/check_username/" yaml:"signup_url"`
		SignupReferer string `default:"https://www.instagram.com/accounts/signup/" yaml:"signup_referer"`
		CSRFToken     string `default:"missing" yaml:"csrf_token"`

		// Known pair used by --test to confirm the heuristics still hold.
		ClaimedUsername   string `default:"instagram" yaml:"claimed_username"`
		UnclaimedUsername string `default:"noonewouldeverusethis7" yaml:"unclaimed_username"`
	} `yaml:"platform"`

	HTTP struct {
		UserAgent      string `default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" yaml:"user_agent"`
		TimeoutSeconds int    `default:"10" yaml:"timeout_seconds"`
		MaxBodyBytes   int64  `default:"8388608" yaml:"max_body_bytes"`
		WithTor        bool   `yaml:"with_tor"`
		TorProxyURL    string `default:"socks5://127.0.0.1:9050" yaml:"tor_proxy_url"`
	} `yaml:"http"`

	Delay struct {
		Fallback Range `yaml:"fallback"`
		Pacing   Range `yaml:"pacing"`
	} `yaml:"delay"`

	Classifier struct {
		SmallBodyThreshold int    `default:"50000" yaml:"small_body_threshold"`
		UnclearPolicy      string `default:"available" yaml:"unclear_policy"`
		UsernamePattern    string `yaml:"username_pattern"`
	} `yaml:"classifier"`

	Output struct {
		InputFile  string `default:"usernames.txt" yaml:"input_file"`
		ResultsDir string `default:"." yaml:"results_dir"`
		Prefix     string `default:"instagram_check" yaml:"prefix"`
	} `yaml:"output"`
}

// Range is a closed interval of seconds.
type Range struct {
	MinSeconds float64 `yaml:"min_seconds"`
	MaxSeconds float64 `yaml:"max_seconds"`
}

func (r Range) Min() time.Duration { return seconds(r.MinSeconds) }
func (r Range) Max() time.Duration { return seconds(r.MaxSeconds) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Load reads path (if it exists) and the environment. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	var cfg Config

	var files []string
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat config %q", path)
		}
	}

	loader := configor.New(&configor.Config{ENVPrefix: EnvPrefix})
	if err := loader.Load(&cfg, files...); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	cfg.applyDelayDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configor cannot carry different defaults for two fields of the same struct
// type, so the delay ranges are filled in here.
func (c *Config) applyDelayDefaults() {
	if c.Delay.Fallback == (Range{}) {
		c.Delay.Fallback = Range{MinSeconds: 1, MaxSeconds: 2}
	}
	if c.Delay.Pacing == (Range{}) {
		c.Delay.Pacing = Range{MinSeconds: 2, MaxSeconds: 4}
	}
}

func (c *Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.Errorf("http.timeout_seconds must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	for name, r := range map[string]Range{"fallback": c.Delay.Fallback, "pacing": c.Delay.Pacing} {
		if r.MinSeconds < 0 || r.MaxSeconds < r.MinSeconds {
			return errors.Errorf("delay.%s: invalid range [%v, %v]", name, r.MinSeconds, r.MaxSeconds)
		}
	}
	switch c.Classifier.UnclearPolicy {
	case PolicyAvailable, PolicyUnknown:
	default:
		return errors.Errorf("classifier.unclear_policy must be %q or %q, got %q",
			PolicyAvailable, PolicyUnknown, c.Classifier.UnclearPolicy)
	}
	if c.Platform.ProfileURL == "" || c.Platform.SignupURL == "" {
		return errors.New("platform urls must not be empty")
	}
	return nil
}
