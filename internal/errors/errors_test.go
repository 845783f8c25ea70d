package errors

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFastPathNoHooks(t *testing.T) {
	ClearErrorHooks()

	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.GetComponent() != "unknown" {
		t.Errorf("Expected component 'unknown' in fast path, got '%s'", ee.GetComponent())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic' in fast path, got '%s'", ee.Category)
	}
}

func TestHooksReceiveBuiltErrors(t *testing.T) {
	ClearErrorHooks()
	t.Cleanup(ClearErrorHooks)

	var seen atomic.Int32
	var lastCategory atomic.Value
	AddErrorHook(func(ee *EnhancedError) {
		seen.Add(1)
		lastCategory.Store(ee.Category)
	})

	ee := Newf("notify failed").Component("radio.wslink").Category(CategoryRadio).Build()

	if seen.Load() != 1 {
		t.Fatalf("Expected hook to run once, ran %d times", seen.Load())
	}
	if got := lastCategory.Load().(ErrorCategory); got != CategoryRadio {
		t.Errorf("Expected hook to see category %q, got %q", CategoryRadio, got)
	}
	if !ee.IsReported() {
		t.Error("Expected error to be marked reported after hooks ran")
	}
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"timeout message", fmt.Errorf("read timeout"), "", CategoryTimeout},
		{"mtu message", fmt.Errorf("mtu below minimum"), "", CategoryRadio},
		{"buffer component", fmt.Errorf("something odd"), "streambuf", CategoryBuffer},
		{"source component", fmt.Errorf("device gone"), "audiocore.sources", CategoryAudioSource},
		{"enhanced passthrough", New(fmt.Errorf("x")).Category(CategoryState).Build(), "", CategoryState},
		{"unknown", fmt.Errorf("something odd"), "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectCategory(tt.err, tt.component); got != tt.want {
				t.Errorf("detectCategory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLookupComponentPrefersLongestPattern(t *testing.T) {
	got := lookupComponent("github.com/tphakala/pendant-go/internal/audiocore/sources/pattern.(*Source).Capture")
	if got != "audiocore.sources" {
		t.Errorf("Expected 'audiocore.sources', got '%s'", got)
	}
}

func TestIsCategory(t *testing.T) {
	base := NewStd("boom")
	ee := New(base).Category(CategoryBuffer).Build()
	wrapped := fmt.Errorf("outer: %w", ee)

	if !IsCategory(wrapped, CategoryBuffer) {
		t.Error("Expected wrapped error to match CategoryBuffer")
	}
	if IsCategory(wrapped, CategoryRadio) {
		t.Error("Did not expect wrapped error to match CategoryRadio")
	}
	if !Is(wrapped, base) {
		t.Error("Expected errors.Is to find the base error")
	}
}

func TestFileContextOmitsPath(t *testing.T) {
	ee := FileError(NewStd("disk full"), "/home/user/recordings/take.WAV", 4<<20)

	ctx := ee.GetContext()
	if ctx["file_extension"] != "wav" {
		t.Errorf("Expected extension 'wav', got %v", ctx["file_extension"])
	}
	if ctx["file_size_category"] != "medium" {
		t.Errorf("Expected size class 'medium', got %v", ctx["file_size_category"])
	}
	for key, value := range ctx {
		if s, ok := value.(string); ok && strings.Contains(s, "recordings") {
			t.Errorf("Context key %q leaks the path: %q", key, s)
		}
	}
}

func TestLookupComponentFallsBackToPackageName(t *testing.T) {
	if got := lookupComponent("example.com/vendor/widget.(*Widget).Run"); got != "widget" {
		t.Errorf("Expected 'widget', got %q", got)
	}
	if got := lookupComponent("main"); got != ComponentUnknown {
		t.Errorf("Expected %q, got %q", ComponentUnknown, got)
	}
}

func TestHookRunsOncePerError(t *testing.T) {
	ClearErrorHooks()
	t.Cleanup(ClearErrorHooks)

	var calls atomic.Int32
	AddErrorHook(func(*EnhancedError) { calls.Add(1) })

	ee := Newf("boom").Category(CategoryBuffer).Build()
	runHooks(ee)

	if calls.Load() != 1 {
		t.Errorf("Expected one hook call, got %d", calls.Load())
	}
}
