//go:build !linux

package cli

func isTerminalFd(uintptr) bool {
	return false
}
