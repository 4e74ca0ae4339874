package cmd

import (
	"os"

	"golang.org/x/term"
)

// readKey puts the terminal into raw mode just long enough to read a
// single keypress without waiting for Enter, then restores it. Used for
// both "press any key to continue" and digit-driven choice selection.
func readKey() (byte, error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		// Not a terminal (piped input, CI) — fall back to a plain byte read.
		buf := make([]byte, 1)
		if _, err := os.Stdin.Read(buf); err != nil {
			return 0, err
		}
		return buf[0], nil
	}
	defer term.Restore(fd, state)

	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}
