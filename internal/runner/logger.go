package runner

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// StdLogger writes run progress for a terminal. Info and Verbose go to the
// output writer, Error to the error writer.
type StdLogger struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
	quiet   bool
}

// NewStdLogger creates a logger on stdout and stderr.
func NewStdLogger(verbose, quiet bool) *StdLogger {
	return &StdLogger{out: os.Stdout, errOut: os.Stderr, verbose: verbose, quiet: quiet}
}

// WithOutput redirects the logger, for tests and embedding.
func (l *StdLogger) WithOutput(out, errOut io.Writer) *StdLogger {
	l.out, l.errOut = out, errOut
	return l
}

// Info logs unless quiet.
func (l *StdLogger) Info(format string, args ...interface{}) {
	if !l.quiet {
		l.write(l.out, "", format, args)
	}
}

// Verbose logs only when verbose and not quiet.
func (l *StdLogger) Verbose(format string, args ...interface{}) {
	if l.verbose && !l.quiet {
		l.write(l.out, "[DEBUG] ", format, args)
	}
}

// Error always logs.
func (l *StdLogger) Error(format string, args ...interface{}) {
	l.write(l.errOut, "Error: ", format, args)
}

func (l *StdLogger) write(w io.Writer, prefix, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(w, prefix+format+"\n", args...)
}
