package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NormalizePhone strips formatting so fixture lookups match user input.
func NormalizePhone(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "+")
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(p)
}

// ValidatePhoneNumber accepts 10 to 15 digits including the country code.
func ValidatePhoneNumber(p string) bool {
	n := NormalizePhone(p)
	if len(n) < 10 || len(n) > 15 {
		return false
	}
	if n[0] == '0' {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RenderTemplate fills positional {{1}}..{{n}} placeholders and named {key} placeholders.
func RenderTemplate(body string, params []string, vars map[string]string) string {
	out := body
	for i, v := range params {
		out = strings.ReplaceAll(out, "{{"+strconv.Itoa(i+1)+"}}", v)
	}
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// NewMessageID returns a wamid-prefixed ULID. ulid.Make is monotonic within a process,
// so ids never collide even when minted in the same millisecond.
func NewMessageID() string {
	return "wamid." + ulid.Make().String()
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
