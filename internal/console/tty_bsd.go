//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package console

import "golang.org/x/sys/unix"

const (
	ioctlReadTermios  = unix.TIOCGETA
	ioctlWriteTermios = unix.TIOCSETAW // drains pending output first
)

// FREAD selects the input queue for TIOCFLUSH.
const ttyFlushRead = 0x1

func getTermios(fd int) (*unix.Termios, error) {
	return unix.IoctlGetTermios(fd, ioctlReadTermios)
}

func setTermios(fd int, t *unix.Termios) error {
	return unix.IoctlSetTermios(fd, ioctlWriteTermios, t)
}

func flushInput(fd int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCFLUSH, ttyFlushRead)
}
