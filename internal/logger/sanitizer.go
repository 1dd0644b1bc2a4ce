package logger

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Sanitizer masks secrets, email addresses and user home directories in log output.
//
// Only values under sensitive keys are masked in key/value args; a secret
// embedded in the value of an ordinary key (e.g. a path) is only caught by
// the message-level patterns.
type Sanitizer struct {
	mu       sync.RWMutex
	patterns []SanitizeRule
}

// SanitizeRule is a single replacement
type SanitizeRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"token", "secret", "api_key", "apikey",
	"credential", "auth", "email",
}

// NewSanitizer returns a sanitizer with the default rules
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultSanitizeRules(),
	}
}

func defaultSanitizeRules() []SanitizeRule {
	return []SanitizeRule{
		{regexp.MustCompile(`(?i)password=\S+`), "password=***"},
		{regexp.MustCompile(`(?i)token=\S+`), "token=***"},
		{regexp.MustCompile(`(?i)bearer\s+\S+`), "bearer ***"},
		{regexp.MustCompile(`(?i)api[_-]?key=\S+`), "api_key=***"},

		// The user profile stores an email; keep only the domain
		{regexp.MustCompile(`[A-Za-z0-9._%+-]+@([A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,})`), "***@$1"},

		// Workspace roots usually live under the user's home directory
		{regexp.MustCompile(`(?i)[A-Z]:\\Users\\[^\\]+`), "***:\\Users\\***"},
		{regexp.MustCompile(`/home/[^/\s]+`), "/home/***"},
		{regexp.MustCompile(`/Users/[^/\s]+`), "/Users/***"},
	}
}

// Sanitize applies every pattern to input
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := input
	for _, rule := range s.patterns {
		result = rule.Pattern.ReplaceAllString(result, rule.Replacement)
	}
	return result
}

// SanitizeArgs masks the values of sensitive keys and runs string values
// through the message patterns
func (s *Sanitizer) SanitizeArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}

		switch v := result[i+1].(type) {
		case string:
			if isSensitiveKey(key) {
				result[i+1] = maskValue(v)
			} else {
				result[i+1] = s.Sanitize(v)
			}
		case error:
			if isSensitiveKey(key) {
				result[i+1] = maskValue(v.Error())
			} else {
				result[i+1] = s.Sanitize(v.Error())
			}
		}
	}

	return result
}

// AddRule appends a custom pattern
func (s *Sanitizer) AddRule(pattern string, replacement string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, SanitizeRule{Pattern: re, Replacement: replacement})
	return nil
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sk := range sensitiveKeys {
		if strings.Contains(lowerKey, sk) {
			return true
		}
	}
	return false
}

// maskValue keeps the first and last character of long values
func maskValue(value string) string {
	if len(value) <= 2 {
		return "***"
	}
	if len(value) <= 8 {
		return fmt.Sprintf("%s***", string(value[0]))
	}
	return fmt.Sprintf("%s***%s", string(value[0]), string(value[len(value)-1]))
}
