package scan

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html/charset"
)

// Response is a captured HTTP response. Classification only ever looks at
// this, never at the live *http.Response, so the same capture always yields
// the same verdict.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

const DefaultSmallBodyThreshold = 50000

// Presence fragments imply a real profile. The username echo is added per check.
var DefaultPresence = []string{
	`"edge_followed_by":{`,
	`"edge_follow":{`,
	`"biography":"`,
	`"profile_pic_url_hd":"`,
	`"full_name":"`,
	`"is_verified":true`,
	`"is_private":true`,
	`"is_private":false`,
}

// Absence fragments are the platform's "not found" markers.
var DefaultAbsence = []string{
	"sorry, this page isn't available",
	"the link you followed may be broken",
	`"user":null`,
	`"graphql":{"user":null}`,
}

type Indicators struct {
	Presence []string
	Absence  []string

	// Pages shorter than this (in characters) without presence markers are
	// the platform's lightweight not-found shell.
	SmallBodyThreshold int

	// UnclearAsUnknown reports large pages with no markers as Unknown
	// instead of Available.
	UnclearAsUnknown bool
}

func DefaultIndicators() Indicators {
	return Indicators{
		Presence:           DefaultPresence,
		Absence:            DefaultAbsence,
		SmallBodyThreshold: DefaultSmallBodyThreshold,
	}
}

// ClassifySignup reads the signup validation endpoint's answer. Anything it
// does not recognize is Unknown so the caller can fall back to the profile page.
func ClassifySignup(resp Response) (Verdict, string) {
	if resp.StatusCode == http.StatusOK && gjson.ValidBytes(resp.Body) {
		doc := gjson.ParseBytes(resp.Body)
		if doc.IsObject() {
			if flag := doc.Get("available"); flag.Exists() {
				if truthy(flag) {
					return Available, "Available (API)"
				}
				return Taken, "Taken (API)"
			}
			if errs := doc.Get("errors"); errs.Exists() && namesUsername(errs) {
				return Taken, "Taken (validation error)"
			}
		}
	}
	return Unknown, fmt.Sprintf("API check failed (%d)", resp.StatusCode)
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		if v.IsArray() {
			return len(v.Array()) > 0
		}
		return len(v.Map()) > 0
	default:
		return false
	}
}

// namesUsername reports whether a validation error block mentions the
// username field, as a key, a listed field name or inside a message.
func namesUsername(errs gjson.Result) bool {
	switch {
	case errs.IsObject():
		return errs.Get("username").Exists()
	case errs.Type == gjson.String:
		return strings.Contains(errs.Str, "username")
	case errs.IsArray():
		for _, e := range errs.Array() {
			if e.Type == gjson.String && e.Str == "username" {
				return true
			}
		}
	}
	return false
}

// ClassifyProfile reads a public profile page.
func (ind Indicators) ClassifyProfile(username string, resp Response) (Verdict, string) {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return Available, "Available (404)"
	case http.StatusOK:
	default:
		return Unknown, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	text, err := decodeBody(resp)
	if err != nil {
		return Unknown, "Unicode decode error"
	}
	content := strings.ToLower(text)

	echo := fmt.Sprintf(`"username":"%s"`, strings.ToLower(username))
	if strings.Contains(content, echo) || containsAny(content, ind.Presence) {
		return Taken, "Taken"
	}

	threshold := ind.SmallBodyThreshold
	if threshold <= 0 {
		threshold = DefaultSmallBodyThreshold
	}
	if containsAny(content, ind.Absence) || utf8.RuneCountInString(content) < threshold {
		return Available, "Available"
	}

	if ind.UnclearAsUnknown {
		return Unknown, "Unclear (ambiguous profile page)"
	}
	return Available, "Available (unclear)"
}

func containsAny(content string, fragments []string) bool {
	for _, f := range fragments {
		if f != "" && strings.Contains(content, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset.
// A body that claims UTF-8 must actually be valid UTF-8. Without a declared
// charset the body is read as UTF-8 unless a meta tag names another encoding.
func decodeBody(resp Response) (string, error) {
	if len(resp.Body) == 0 {
		return "", nil
	}

	enc, name, certain := charset.DetermineEncoding(resp.Body, resp.ContentType)
	if !certain && utf8.Valid(resp.Body) {
		name = "utf-8"
	}
	// windows-1252 is also the sniffer's fallback when it found nothing.
	if name == "utf-8" || (!certain && name == "windows-1252") {
		if !utf8.Valid(resp.Body) {
			return "", fmt.Errorf("body is not valid utf-8")
		}
		return string(resp.Body), nil
	}

	out, err := enc.NewDecoder().Bytes(resp.Body)
	if err != nil {
		return "", fmt.Errorf("decode %s body: %w", name, err)
	}
	return string(out), nil
}
