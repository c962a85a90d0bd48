package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// readPasscodeNoEcho reads one line from a terminal with echo switched off.
func readPasscodeNoEcho(stdin *os.File) (string, error) {
	if stdin == nil {
		return "", errors.New("stdin is not available")
	}

	restore, err := disableEcho(stdin)
	if err != nil {
		return "", err
	}
	defer restore()

	return readPasscodeLine(stdin)
}

func readPasscodeLine(input io.Reader) (string, error) {
	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
