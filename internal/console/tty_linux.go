package console

import "golang.org/x/sys/unix"

const (
	ioctlReadTermios  = unix.TCGETS
	ioctlWriteTermios = unix.TCSETSW // drains pending output first
)

func getTermios(fd int) (*unix.Termios, error) {
	return unix.IoctlGetTermios(fd, ioctlReadTermios)
}

func setTermios(fd int, t *unix.Termios) error {
	return unix.IoctlSetTermios(fd, ioctlWriteTermios, t)
}

func flushInput(fd int) error {
	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
}
