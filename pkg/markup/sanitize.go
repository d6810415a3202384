package markup

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	messagePolicyOnce sync.Once
	messagePolicy     *bluemonday.Policy
)

// Sanitize strips everything from server-supplied banner text except line
// breaks and simple emphasis.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(messageSanitizer().Sanitize(trimmed))
}

// JoinLines escapes each message and joins them with <br> the way global
// error lists are shown in a banner.
func JoinLines(messages []string) string {
	escaped := make([]string, 0, len(messages))
	for _, message := range messages {
		if trimmed := strings.TrimSpace(message); trimmed != "" {
			escaped = append(escaped, html.EscapeString(trimmed))
		}
	}
	return strings.Join(escaped, "<br>")
}

func messageSanitizer() *bluemonday.Policy {
	messagePolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("br", "strong", "em", "b", "i", "span")
		policy.AllowAttrs("class").OnElements("span", "i")
		messagePolicy = policy
	})
	return messagePolicy
}
