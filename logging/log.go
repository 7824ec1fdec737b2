// Package logging wires the subsystem loggers of the account service.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags
const (
	SubsystemAccount = "ACCT"
	SubsystemHTTP    = "HTTP"
	SubsystemStorage = "STOR"
	SubsystemMail    = "MAIL"
)

// logWriter writes to standard output and, once initialized, to the
// log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)

	mu.Lock()
	r := logRotator
	mu.Unlock()
	if r == nil {
		return len(p), nil
	}
	return r.Write(p)
}

var (
	mu sync.Mutex

	backendLog = slog.NewBackend(logWriter{})

	// logRotator should be closed on shutdown
	logRotator *rotator.Rotator

	subsystemLoggers = map[string]slog.Logger{
		SubsystemAccount: backendLog.Logger(SubsystemAccount),
		SubsystemHTTP:    backendLog.Logger(SubsystemHTTP),
		SubsystemStorage: backendLog.Logger(SubsystemStorage),
		SubsystemMail:    backendLog.Logger(SubsystemMail),
	}
)

// InitLogRotator starts writing logs to logFile, rolling files in the
// same directory. It must be called before the loggers write to disk.
func InitLogRotator(logFile string, maxRolls int) error {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	mu.Lock()
	logRotator = r
	mu.Unlock()
	return nil
}

// Close flushes and closes the log rotator
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logRotator == nil {
		return nil
	}
	err := logRotator.Close()
	logRotator = nil
	return err
}

// Logger returns the logger of a subsystem. Unknown subsystems are
// created on demand.
func Logger(subsystemID string) slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		logger = backendLog.Logger(subsystemID)
		subsystemLoggers[subsystemID] = logger
	}
	return logger
}

// SupportedSubsystems returns the sorted subsystem tags
func SupportedSubsystems() []string {
	mu.Lock()
	defer mu.Unlock()

	subsystems := make([]string, 0, len(subsystemLoggers))
	for id := range subsystemLoggers {
		subsystems = append(subsystems, id)
	}
	sort.Strings(subsystems)
	return subsystems
}

func hasSubsystem(id string) bool {
	mu.Lock()
	defer mu.Unlock()
	_, ok := subsystemLoggers[id]
	return ok
}

// SetLogLevel sets the level of one subsystem. Invalid subsystems are
// ignored, invalid levels default to info.
func SetLogLevel(subsystemID, logLevel string) {
	mu.Lock()
	logger, ok := subsystemLoggers[subsystemID]
	mu.Unlock()
	if !ok {
		return
	}

	level, _ := slog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets every subsystem to logLevel
func SetLogLevels(logLevel string) {
	for _, id := range SupportedSubsystems() {
		SetLogLevel(id, logLevel)
	}
}

// ParseAndSetDebugLevels accepts either a single level for every
// subsystem or a comma separated list of subsystem=level pairs
func ParseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if _, ok := slog.LevelFromString(debugLevel); !ok {
			return fmt.Errorf("the specified debug level [%v] is invalid", debugLevel)
		}
		SetLogLevels(debugLevel)
		return nil
	}

	for _, pair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(pair, "=") {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%v]", pair)
		}

		fields := strings.Split(pair, "=")
		subsysID, level := fields[0], fields[1]

		if !hasSubsystem(subsysID) {
			return fmt.Errorf("the specified subsystem [%v] is invalid -- supported subsystems %v",
				subsysID, SupportedSubsystems())
		}

		if _, ok := slog.LevelFromString(level); !ok {
			return fmt.Errorf("the specified debug level [%v] is invalid", level)
		}

		SetLogLevel(subsysID, level)
	}

	return nil
}

// Writer returns an io.Writer printing each write at info level on the
// subsystem logger, for middleware that wants a plain writer
func Writer(subsystemID string) io.Writer {
	return lineWriter{logger: Logger(subsystemID)}
}

type lineWriter struct {
	logger slog.Logger
}

func (w lineWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
