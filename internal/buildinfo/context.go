// Package buildinfo holds build-time metadata injected at link time, kept
// apart from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable
type Context struct {
	// Version is the git version tag from the build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// NewContext creates a Context from linker-injected values
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version or UnknownValue
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// String renders the version line shown by --version
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s)", c.GetVersion(), c.GetBuildDate())
}
