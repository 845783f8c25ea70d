package errors

import (
	stderrors "errors"
	"runtime"
	"strings"
	"sync"
)

const selfPackage = "github.com/tphakala/pendant-go/internal/errors"

var (
	registryMu sync.RWMutex
	registry   = map[string]string{}
)

// RegisterComponent maps a package path fragment to a component name
func RegisterComponent(packagePattern, componentName string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[packagePattern] = componentName
}

func init() {
	for pattern, name := range map[string]string{
		"streambuf":         "streambuf",
		"audiocore/sources": "audiocore.sources",
		"audiocore":         "audiocore",
		"pipeline":          "pipeline",
		"connection":        "connection",
		"radio/wslink":      "radio.wslink",
		"radio/loopback":    "radio.loopback",
		"radio":             "radio",
		"receiver":          "receiver",
		"diagnostics":       "diagnostics",
		"observability":     "observability",
		"mqtt":              "mqtt",
		"device":            "device",
		"conf":              "configuration",
	} {
		RegisterComponent(pattern, name)
	}
}

// detectComponent walks the caller stack to the first frame outside this
// package and maps it through the registry
func detectComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, selfPackage) {
			return lookupComponent(frame.Function)
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// lookupComponent returns the component of the longest matching pattern,
// falling back to the package name
func lookupComponent(funcName string) string {
	registryMu.RLock()
	best, bestLen := "", 0
	for pattern, component := range registry {
		if len(pattern) > bestLen && strings.Contains(funcName, pattern) {
			best, bestLen = component, len(pattern)
		}
	}
	registryMu.RUnlock()
	if best != "" {
		return best
	}

	last := funcName[strings.LastIndex(funcName, "/")+1:]
	if dot := strings.Index(last, "."); dot > 0 {
		return last[:dot]
	}
	return ComponentUnknown
}

// detectCategory infers a category from the error chain, then the message,
// then the component
func detectCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var categorized CategorizedError
	if stderrors.As(err, &categorized) {
		return categorized.ErrorCategory()
	}
	var enhanced *EnhancedError
	if stderrors.As(err, &enhanced) && enhanced.Category != "" {
		return enhanced.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return CategoryTimeout
	case strings.Contains(msg, "mtu") || strings.Contains(msg, "notify"):
		return CategoryRadio
	case strings.Contains(msg, "file") || strings.Contains(msg, "open"):
		return CategoryFileIO
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial"):
		return CategoryNetwork
	case strings.Contains(msg, "invalid"):
		return CategoryValidation
	}

	switch component {
	case "audiocore", "audiocore.sources":
		return CategoryAudioSource
	case "streambuf":
		return CategoryBuffer
	case "radio", "radio.wslink", "radio.loopback":
		return CategoryRadio
	case "connection":
		return CategoryConnection
	case "configuration":
		return CategoryConfiguration
	}
	return CategoryGeneric
}
