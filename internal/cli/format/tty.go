package format

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether w should receive terminal formatting: it must be a
// terminal file, NO_COLOR must be unset and TERM must not be "dumb" or empty.
// Buffers and pipes are never terminals.
func IsTTY(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	termEnv := os.Getenv("TERM")
	if termEnv == "dumb" || termEnv == "" {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
