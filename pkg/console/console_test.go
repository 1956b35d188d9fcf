package console

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestLog_Append(t *testing.T) {
	out := bytes.Buffer{}
	l := New(&out, DefaultMaxLines)

	for i := 1; i <= 8; i++ {
		if err := l.Append(fmt.Sprintf("line %d", i)); err != nil {
			t.Fatalf("unable to append line: %v", err)
		}
		if l.Len() != i {
			t.Errorf("bad scrollback length: %v, wants %v", l.Len(), i)
		}
	}
	if strings.Contains(out.String(), clearScreen) {
		t.Errorf("screen cleared before scrollback is full: %q", out.String())
	}

	out.Reset()
	if err := l.Append("line 9"); err != nil {
		t.Fatalf("unable to append line: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("scrollback not emptied: %v", l.Lines())
	}
	expected := "line 9\n" + clearScreen + "line 9\n"
	if out.String() != expected {
		t.Errorf("bad output: %q, wants %q", out.String(), expected)
	}

	out.Reset()
	if err := l.Append("line 10"); err != nil {
		t.Fatalf("unable to append line: %v", err)
	}
	if lines := l.Lines(); len(lines) != 1 || lines[0] != "line 10" {
		t.Errorf("bad scrollback after clear: %v", lines)
	}
	if out.String() != "line 10\n" {
		t.Errorf("bad output: %q", out.String())
	}
}

func TestLog_Print(t *testing.T) {
	out := bytes.Buffer{}
	l := New(&out, DefaultMaxLines)

	if err := l.Print("speed: 0.0 steering_angle: 0.0"); err != nil {
		t.Fatalf("unable to print: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("printed line kept in scrollback")
	}
	if out.String() != "speed: 0.0 steering_angle: 0.0\n" {
		t.Errorf("bad output: %q", out.String())
	}
}

type failingWriter struct{}

func (f failingWriter) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("broken pipe")
}

func TestLog_AppendError(t *testing.T) {
	l := New(failingWriter{}, DefaultMaxLines)
	if err := l.Append("line"); err == nil {
		t.Errorf("no error on broken output")
	}
}
