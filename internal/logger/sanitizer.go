package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// Log sanitization for credential-adjacent output. Email local-parts and
// token-shaped substrings are masked before the message reaches any sink.
var (
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	apiKeyPattern = regexp.MustCompile(`sk-ant-[A-Za-z0-9-]+`)
	tokenPattern  = regexp.MustCompile(`ya29\.[A-Za-z0-9_-]+`)
)

// Sanitize masks PII and secret-shaped substrings in a log message.
// Email addresses keep their domain for correlation; API keys and OAuth
// tokens are collapsed to their recognizable prefix.
func Sanitize(text string) string {
	text = emailPattern.ReplaceAllStringFunc(text, func(match string) string {
		return "***" + match[strings.Index(match, "@"):]
	})
	text = apiKeyPattern.ReplaceAllString(text, "sk-ant-***")
	text = tokenPattern.ReplaceAllString(text, "ya29.***")
	return text
}

func sprintfSanitized(template string, args ...interface{}) string {
	return Sanitize(fmt.Sprintf(template, args...))
}

func sanitizeArgs(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			out[i] = Sanitize(s)
		} else {
			out[i] = arg
		}
	}
	return out
}
