package logging

import (
	"fmt"
	"strings"

	"github.com/decred/slog"
)

// Printf adapts a slog.Logger to the printf style Logger interface used
// across the module
type Printf struct {
	slog.Logger
}

// For returns the printf adapter of a subsystem
func For(subsystemID string) Printf {
	return Printf{Logger: Logger(subsystemID)}
}

func (l Printf) Debug(format string, args ...any) { l.Logger.Debugf(format, args...) }
func (l Printf) Info(format string, args ...any)  { l.Logger.Infof(format, args...) }
func (l Printf) Warn(format string, args ...any)  { l.Logger.Warnf(format, args...) }
func (l Printf) Error(format string, args ...any) { l.Logger.Errorf(format, args...) }

// Goose adapts a slog.Logger to goose.Logger
type Goose struct {
	slog.Logger
}

func (g Goose) Fatalf(format string, v ...any) {
	g.Logger.Criticalf(format, v...)
	panic(fmt.Sprintf(format, v...))
}

func (g Goose) Printf(format string, v ...any) {
	g.Logger.Infof(strings.TrimRight(format, "\n"), v...)
}
