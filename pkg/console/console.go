package console

import (
	"fmt"
	"io"
)

const (
	DefaultMaxLines = 8

	clearScreen = "\033[H\033[2J"
)

const Help = `
Ackermann Control
---------------------------
Moving around:
             ^
            w/i
   < a/j    s/k    d/l >
---------------------------
w/i : increase speed
s/k : decrease speed
a/j : turn left
d/l : turn right
r/o : steering angle to 0
q   : to stop and quit
`

func New(out io.Writer, maxLines int) *Log {
	return &Log{
		out:      out,
		maxLines: maxLines,
		lines:    make([]string, 0, maxLines+1),
	}
}

// Log prints status lines and clears the screen once more than maxLines are displayed
type Log struct {
	out      io.Writer
	maxLines int
	lines    []string
}

func (l *Log) Banner() error {
	if _, err := fmt.Fprint(l.out, Help); err != nil {
		return fmt.Errorf("unable to print help: %w", err)
	}
	return nil
}

// Print writes line without keeping it in scrollback
func (l *Log) Print(line string) error {
	if _, err := fmt.Fprintln(l.out, line); err != nil {
		return fmt.Errorf("unable to print status: %w", err)
	}
	return nil
}

func (l *Log) Append(line string) error {
	if err := l.Print(line); err != nil {
		return err
	}
	l.lines = append(l.lines, line)
	if len(l.lines) <= l.maxLines {
		return nil
	}

	l.lines = l.lines[:0]
	if _, err := io.WriteString(l.out, clearScreen); err != nil {
		return fmt.Errorf("unable to clear screen: %w", err)
	}
	return l.Print(line)
}

func (l *Log) Len() int {
	return len(l.lines)
}

func (l *Log) Lines() []string {
	lines := make([]string, len(l.lines))
	copy(lines, l.lines)
	return lines
}
