package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Timezone     string            `yaml:"timezone"`      // "Local", "UTC" or an IANA name
	DefaultLevel string            `yaml:"default_level"` // level for modules without an override
	Console      *ConsoleOutput    `yaml:"console"`
	FileOutput   *FileOutput       `yaml:"file_output"`
	ModuleLevels map[string]string `yaml:"module_levels"` // e.g. pipeline: debug
}

// ConsoleOutput is human-readable text on stdout, without timestamps
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

// FileOutput is JSON with RFC3339 timestamps, rotated by lumberjack when
// MaxSize is set
type FileOutput struct {
	Enabled         bool   `yaml:"enabled"`
	Path            string `yaml:"path"`
	Level           string `yaml:"level"`
	MaxSize         int    `yaml:"max_size"` // MB, 0 disables rotation
	MaxAge          int    `yaml:"max_age"`  // days
	MaxRotatedFiles int    `yaml:"max_rotated_files"`
	Compress        bool   `yaml:"compress"`
}

// Defaults used when a section is missing; they mirror conf/defaults.go
const (
	DefaultLogLevel        = "info"
	DefaultLogPath         = "logs/pendant.log"
	DefaultMaxSize         = 50
	DefaultMaxAge          = 14
	DefaultMaxRotatedFiles = 5
)

// applyConfigDefaults fills the default level and nil sections. A missing
// console section means console on; a missing file section means file off.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: true, Level: cfg.DefaultLevel}
	}
	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Path:            DefaultLogPath,
			Level:           cfg.DefaultLevel,
			MaxSize:         DefaultMaxSize,
			MaxAge:          DefaultMaxAge,
			MaxRotatedFiles: DefaultMaxRotatedFiles,
		}
	}
}

// RotationConfig controls size-based rotation of a log file
type RotationConfig struct {
	MaxSize    int  // megabytes, 0 disables rotation
	MaxAge     int  // days
	MaxBackups int  // rotated files to keep
	Compress   bool // gzip rotated files
}

// IsEnabled reports whether rotation should be applied
func (r RotationConfig) IsEnabled() bool {
	return r.MaxSize > 0
}

// RotationConfigFromFileOutput extracts rotation settings from the main file output
func RotationConfigFromFileOutput(fo *FileOutput) RotationConfig {
	if fo == nil {
		return RotationConfig{}
	}
	return RotationConfig{
		MaxSize:    fo.MaxSize,
		MaxAge:     fo.MaxAge,
		MaxBackups: fo.MaxRotatedFiles,
		Compress:   fo.Compress,
	}
}
