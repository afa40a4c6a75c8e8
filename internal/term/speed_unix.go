//go:build unix

package term

import "golang.org/x/sys/unix"

// rates maps termios output-speed codes to bits per second. On platforms
// where speed_t already holds the literal rate the mapping is the
// identity, which the table also covers.
var rates = map[uint64]int{
	uint64(unix.B0):      0,
	uint64(unix.B50):     50,
	uint64(unix.B75):     75,
	uint64(unix.B110):    110,
	uint64(unix.B134):    134,
	uint64(unix.B150):    150,
	uint64(unix.B200):    200,
	uint64(unix.B300):    300,
	uint64(unix.B600):    600,
	uint64(unix.B1200):   1200,
	uint64(unix.B1800):   1800,
	uint64(unix.B2400):   2400,
	uint64(unix.B4800):   4800,
	uint64(unix.B9600):   9600,
	uint64(unix.B19200):  19200,
	uint64(unix.B38400):  38400,
	uint64(unix.B57600):  57600,
	uint64(unix.B115200): 115200,
	uint64(unix.B230400): 230400,
}

// BaudRate converts a termios output-speed code to bits per second.
// Returns 0 when the code is unknown, which disables pad-based pacing.
func BaudRate(code uint64) int {
	if bps, ok := rates[code]; ok {
		return bps
	}
	// Codes above the symbolic range are literal rates (speed_t on BSDs,
	// BOTHER-style values on Linux).
	if code > 0x100f {
		return int(code)
	}
	return 0
}
