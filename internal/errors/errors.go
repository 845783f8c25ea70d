// Package errors provides categorized, component-aware errors built through
// a fluent builder. Registered hooks see every built error, which is how
// diagnostics counts failures per category.
package errors

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrorCategory groups errors for counting and matching
type ErrorCategory string

const (
	CategoryGeneric        ErrorCategory = "generic"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryFileIO         ErrorCategory = "file-io"
	CategoryNetwork        ErrorCategory = "network"
	CategorySystem         ErrorCategory = "system-resource"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryNotFound       ErrorCategory = "not-found"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryState          ErrorCategory = "state"
	CategoryMQTTConnection ErrorCategory = "mqtt-connection"
	CategoryMQTTPublish    ErrorCategory = "mqtt-publish"

	CategoryAudioSource ErrorCategory = "audio-source"     // capture devices, files, generators
	CategoryBuffer      ErrorCategory = "audio-buffer"     // byte buffer between capture and transmit
	CategoryRadio       ErrorCategory = "radio-link"       // notification delivery to the paired client
	CategoryConnection  ErrorCategory = "connection-state" // attach and detach bookkeeping
	CategoryProtocol    ErrorCategory = "protocol"         // control frames, MTU exchange
)

// CategorizedError lets a plain error type declare its own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

// ComponentUnknown is used when the component cannot be determined
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with its component, category and context
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	mu        sync.Mutex
	component string // detected on first GetComponent when empty
	reported  bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is matches another EnhancedError of the same category, or the wrapped error
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component, detecting it from the stack if the
// builder did not set one
func (ee *EnhancedError) GetComponent() string {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.component == "" {
		ee.component = detectComponent()
	}
	return ee.component
}

// GetCategory returns the category as a string
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the context map
func (ee *EnhancedError) GetContext() map[string]any {
	return maps.Clone(ee.Context)
}

// IsReported reports whether hooks have seen the error
func (ee *EnhancedError) IsReported() bool {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	return ee.reported
}

func (ee *EnhancedError) markReported() bool {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	already := ee.reported
	ee.reported = true
	return already
}

// ErrorBuilder assembles an EnhancedError
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder around err
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a formatted error
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component; without it the component is detected
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the category; without it the category is inferred
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds one key/value pair
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// LinkContext records the MTU and payload size of a failed notification
func (eb *ErrorBuilder) LinkContext(mtu uint16, payloadSize int) *ErrorBuilder {
	return eb.Context("mtu", mtu).Context("payload_size", payloadSize)
}

// FileContext records the file extension and size class, never the path
func (eb *ErrorBuilder) FileContext(path string, size int64) *ErrorBuilder {
	if path != "" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if ext == "" {
			ext = "none"
		}
		eb.Context("file_extension", ext)
	}
	if size > 0 {
		eb.Context("file_size_category", sizeClass(size))
	}
	return eb
}

// Build creates the error. With hooks registered the component and category
// are resolved eagerly and every hook runs on the calling goroutine.
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: eb.component,
	}

	if !hasActiveReporting.Load() {
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
		if ee.Category == "" {
			ee.Category = CategoryGeneric
		}
		return ee
	}

	if ee.component == "" {
		ee.component = detectComponent()
	}
	if ee.Category == "" {
		ee.Category = detectCategory(eb.err, ee.component)
	}
	runHooks(ee)
	return ee
}

func sizeClass(size int64) string {
	switch {
	case size < 1<<10:
		return "tiny"
	case size < 1<<20:
		return "small"
	case size < 10<<20:
		return "medium"
	case size < 100<<20:
		return "large"
	default:
		return "very-large"
	}
}
