package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/pendant-go/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Component("configuration").
				Category(errors.CategorySystem).
				Context("operation", "get-executable-path").
				Build()
		}
		return []string{
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", "pendant-go"),
		}, nil
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "pendant-go"),
		"/etc/pendant-go",
	}, nil
}
