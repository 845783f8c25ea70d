package logger

import (
	"regexp"
	"strings"
)

// SensitiveDataPatterns contains regex patterns for sensitive data that should be redacted in logs
var SensitiveDataPatterns = []*regexp.Regexp{
	// Auth tokens (Bearer, JWT, etc.)
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)(eyJ[a-zA-Z0-9_-]{5,}\.eyJ[a-zA-Z0-9_-]{5,})\.[a-zA-Z0-9_-]{5,}`),

	// API keys, tokens and secrets
	regexp.MustCompile(`(?i)((api|access|auth|token|secret|key|passw(or)?d)[0-9a-z\-_\.]*[\s:=]+)([^;,\s]{5,})`),

	// Credentials embedded in broker and websocket URLs
	regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://[^:/@\s]+:)[^@\s]+`),
}

// SensitiveKeywords are keywords that indicate fields may contain sensitive data
var SensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "auth", "api_key",
	"apikey", "access_token", "secret_key", "authorization",
}

// RedactSensitiveData replaces sensitive information with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	// Apply all regex patterns
	for _, pattern := range SensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "$1[REDACTED]")
	}

	return input
}

// RedactSensitiveFields returns a copy of fields with values of sensitive keys replaced
func RedactSensitiveFields(fields []Field) []Field {
	result := make([]Field, len(fields))
	for i, f := range fields {
		result[i] = redactField(f)
	}
	return result
}

// redactField masks non-empty string values under sensitive keys
func redactField(f Field) Field {
	value, ok := f.Value.(string)
	if !ok || value == "" {
		return f
	}
	key := strings.ToLower(f.Key)
	for _, keyword := range SensitiveKeywords {
		if strings.Contains(key, keyword) {
			f.Value = "[REDACTED]"
			return f
		}
	}
	return f
}
