package scan

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/tdh8316/handlecheck/internal/httpx"
)

// SignupProbe asks the signup validation endpoint whether username is free.
func (s *Scanner) SignupProbe(ctx context.Context, username string) (Verdict, string) {
	form := url.Values{"username": {username}}

	headers := s.cfg.Headers.Clone()
	headers.Set("X-Requested-With", "XMLHttpRequest")
	headers.Set("X-CSRFToken", s.cfg.CSRFToken)
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.cfg.SignupReferer != "" {
		headers.Set("Referer", s.cfg.SignupReferer)
	}

	req, err := httpx.NewRequest(ctx, http.MethodPost, s.cfg.SignupURL, strings.NewReader(form.Encode()), headers)
	if err != nil {
		return Unknown, networkError(err)
	}

	resp, err := s.fetch(req)
	if err != nil {
		return Unknown, networkError(err)
	}
	return ClassifySignup(resp)
}

// ProfileProbe loads the public profile page for username.
func (s *Scanner) ProfileProbe(ctx context.Context, username string) (Verdict, string) {
	req, err := httpx.NewRequest(ctx, http.MethodGet, s.ProfileURL(username), nil, s.cfg.Headers)
	if err != nil {
		return Unknown, networkError(err)
	}

	resp, err := s.fetch(req)
	if err != nil {
		return Unknown, networkError(err)
	}
	return s.cfg.Indicators.ClassifyProfile(username, resp)
}

func (s *Scanner) ProfileURL(username string) string {
	return strings.ReplaceAll(s.cfg.ProfileURL, "{}", url.PathEscape(username))
}

func (s *Scanner) fetch(req *http.Request) (Response, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return Response{}, errors.Wrapf(err, "read %s body", req.URL.Host)
	}

	return Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func networkError(err error) string {
	return "Network error: " + err.Error()
}
