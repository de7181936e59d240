package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// GetSimpleText prints a prompt to w and reads a single line of input from
// reader. The trailing newline is trimmed. If EOF occurs after some input was
// read, the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetOptionalText is GetSimpleText where an empty answer means "unchanged".
// ok is false for an empty answer.
func GetOptionalText(reader *bufio.Reader, prompt string, w io.Writer) (value string, ok bool, err error) {
	v, err := GetSimpleText(reader, prompt+" (blank keeps current)", w)
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}
