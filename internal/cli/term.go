package cli

import "os"

const (
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// isTerminal reports whether v is an *os.File connected to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok || f == nil {
		return false
	}

	return isTerminalFd(f.Fd())
}
