package utils

import (
	"log"
	"os"
)

// Logger is the app-wide logger handed to every service constructor.
// Keeping it as a value type avoids nil checks sprinkled across callers,
// but callers still guard against a nil pointer for optional wiring.
type Logger struct {
	std *log.Logger
	err *log.Logger
}

func NewLogger() *Logger {
	return &Logger{
		std: log.New(os.Stdout, "", log.LstdFlags),
		err: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.std.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.err.Printf("ERROR "+format, args...)
}
