package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestIsTermination(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"bye", true},
		{"BYE", true},
		{" bye ", true},
		{"\tByE\t", true},
		{"bye now", false},
		{"goodbye", false},
		{"", false},
		{"b ye", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := IsTermination(tt.line); got != tt.want {
				t.Errorf("IsTermination(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestEcho(t *testing.T) {
	for _, line := range []string{"hello", "", "  spaced  ", "bye now", "héllo wörld"} {
		if got, want := Echo(line), "Echo: "+line; got != want {
			t.Errorf("Echo(%q) = %q, want %q", line, got, want)
		}
	}
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLine(&buf, "Echo: hi"); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Echo: hi\n" {
		t.Errorf("got %q", got)
	}
}

func TestLineReader(t *testing.T) {
	lr := NewLineReader(strings.NewReader("one\r\ntwo\n\nlast"), 1024)
	defer lr.Release()

	for _, want := range []string{"one", "two", "", "last"} {
		got, err := lr.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if _, err := lr.ReadLine(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestLineReader_TooLong(t *testing.T) {
	long := strings.Repeat("x", 64*1024) + "\n"
	lr := NewLineReader(strings.NewReader(long), 8*1024)
	defer lr.Release()

	_, err := lr.ReadLine()
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Errorf("expected bufio.ErrTooLong, got %v", err)
	}
}

func TestLineReader_ReleaseTwice(t *testing.T) {
	lr := NewLineReader(strings.NewReader(""), 1024)
	lr.Release()
	lr.Release() // must not double-return the buffer
}
