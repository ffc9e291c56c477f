package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptYesNoWithReader asks a yes/no question on writer and reads the
// answer from reader, asking again on anything else. Closed input is a no.
func PromptYesNoWithReader(prompt string, reader io.Reader, writer io.Writer) bool {
	scanner := bufio.NewScanner(reader)

	for {
		_, _ = fmt.Fprintf(writer, "%s (y/n): ", prompt)
		if !scanner.Scan() {
			return false
		}

		input := strings.TrimSpace(strings.ToLower(scanner.Text()))

		switch input {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		// Invalid input, loop continues
	}
}
