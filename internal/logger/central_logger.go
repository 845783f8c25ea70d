package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	// Embedded timezone database; time.LoadLocation fails on hosts without one.
	_ "time/tzdata"
)

const (
	// traceLevelValue sits below slog.LevelDebug (-4)
	traceLevelValue = slog.Level(-8)

	// console level column width, "ERROR" and "TRACE" are the longest
	maxLevelWidth = 5

	// LogFilePermissions is the mode used when creating log files
	LogFilePermissions = 0o600

	logDirPermissions = 0o700
)

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal installs cl as the process logger. Module loggers bind to the
// CentralLogger that was global when they were created.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	globalLogger = cl
	globalLoggerMu.Unlock()
}

// Global returns the process logger, creating an info-level console logger
// if SetGlobal was never called.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger == nil {
		globalLogger = &CentralLogger{
			defaultLevel: slog.LevelInfo,
			timezone:     time.Local,
			base:         newTextHandler(os.Stdout, slog.LevelInfo, time.Local),
		}
	}
	return globalLogger
}

// CentralLogger owns the output handlers and hands out module loggers
type CentralLogger struct {
	timezone     *time.Location
	defaultLevel slog.Level
	moduleLevels map[string]slog.Level // keyed by top-level module name
	base         slog.Handler

	mu   sync.RWMutex
	file *BufferedFileWriter // nil unless file output is enabled
}

// NewCentralLogger builds console and file handlers from cfg
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		timezone:     tz,
		defaultLevel: parseLogLevel(cfg.DefaultLevel),
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(level)
	}

	var handlers []slog.Handler
	if cfg.Console.Enabled {
		handlers = append(handlers, newTextHandler(os.Stdout, parseLogLevel(cfg.Console.Level), tz))
	}
	if cfg.FileOutput.Enabled {
		h, err := cl.openFile(cfg.FileOutput)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}

	switch len(handlers) {
	case 0:
		cl.base = newTextHandler(os.Stdout, cl.defaultLevel, tz)
	case 1:
		cl.base = handlers[0]
	default:
		cl.base = newMultiWriterHandler(handlers...)
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

// openFile creates the JSON file handler, rotated by size when configured
func (cl *CentralLogger) openFile(fo *FileOutput) (slog.Handler, error) {
	if dir := filepath.Dir(fo.Path); dir != "." {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	var opts []BufferedWriterOption
	if rotation := RotationConfigFromFileOutput(fo); rotation.IsEnabled() {
		opts = append(opts, WithRotation(rotation))
	}
	writer, err := NewBufferedFileWriter(fo.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}
	cl.file = writer

	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:       parseLogLevel(fo.Level),
		ReplaceAttr: jsonReplaceAttr(cl.timezone),
	}), nil
}

// Module returns a logger tagged with name. A level configured for name
// overrides the default level.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	level := cl.defaultLevel
	if l, ok := cl.moduleLevels[name]; ok {
		level = l
	}
	return &moduleLogger{
		module: name,
		logger: slog.New(cl.base),
		level:  level,
	}
}

// Close flushes and closes the log file
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.file == nil {
		return nil
	}
	err := cl.file.Close()
	cl.file = nil
	if err != nil {
		return fmt.Errorf("failed to close log writer: %w", err)
	}
	return nil
}

// Flush writes buffered entries to the OS without fsync. Close syncs.
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if cl.file == nil {
		return nil
	}
	return cl.file.Flush()
}

// Rotate starts a new log file, typically on SIGHUP
func (cl *CentralLogger) Rotate() error {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if cl.file == nil {
		return nil
	}
	return cl.file.Rotate()
}

// parseLogLevel converts a level name to slog.Level, info when unknown
func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// moduleLogger implements Logger for one module path
type moduleLogger struct {
	module string
	logger *slog.Logger
	level  slog.Level
	fields []Field
}

// Module appends name to the module path. Fields are copied.
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	module := name
	if m.module != "" {
		module = m.module + "." + name
	}
	return &moduleLogger{
		module: module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Clone(m.fields),
	}
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.log(traceLevelValue, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.log(slog.LevelError, msg, fields) }

// Log logs at an explicit level
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(parseLogLevel(string(level)), msg, fields)
}

// With returns a logger that adds fields to every entry
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return &moduleLogger{
		module: m.module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Concat(m.fields, fields),
	}
}

// Flush is a no-op; CentralLogger owns the writers
func (m *moduleLogger) Flush() error {
	return nil
}

func (m *moduleLogger) log(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for _, f := range m.fields {
		attrs = append(attrs, fieldToAttr(redactField(f)))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(redactField(f)))
	}
	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// fieldToAttr converts a Field; floats are rounded to three decimals
func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case float32:
		return slog.Float64(f.Key, math.Round(float64(v)*1000)/1000)
	case float64:
		return slog.Float64(f.Key, math.Round(v*1000)/1000)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}
