package cliutil

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var stdin = bufio.NewReader(os.Stdin)

// Pause blocks until the user presses Enter. The attended login flows
// depend on this: the user solves the CAPTCHA in the browser window and
// only then lets the bot continue.
func Pause(message string) {
	fmt.Printf("\n%s", message)
	stdin.ReadString('\n')
}

func Confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// ReadLine prompts for one line of input, returning the fallback when
// the user just presses Enter.
func ReadLine(prompt, fallback string) string {
	fmt.Printf("%s", prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return fallback
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}
