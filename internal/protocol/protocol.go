// Package protocol holds the line-oriented wire format shared by the
// server sessions and the interactive client.
//
// Each request is one line of UTF-8 text terminated by "\n" (a
// preceding "\r" is dropped).  The server answers every request with
// exactly one line before reading the next.
package protocol

import (
	"bufio"
	"io"
	"strings"

	"gecho/util"
)

const (
	// EchoPrefix starts every normal response line.
	EchoPrefix = "Echo: "

	// TerminationKeyword ends a session when a trimmed request line
	// matches it case-insensitively.
	TerminationKeyword = "bye"

	// Farewell is the server's acknowledgement of the termination
	// keyword, sent right before it closes the connection.
	Farewell = "Goodbye!"
)

// IsTermination reports whether line is the termination command.
// Only the bare keyword counts: "bye now" is an ordinary request.
func IsTermination(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), TerminationKeyword)
}

// Echo formats the normal response to line.
func Echo(line string) string {
	return EchoPrefix + line
}

// WriteLine sends s followed by a newline in a single write.
func WriteLine(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+"\n")
	return err
}

// LineReader reads newline-delimited lines with a buffer borrowed from
// util.BufPool.  It is not safe for concurrent use.
type LineReader struct {
	sc  *bufio.Scanner
	buf *[]byte
}

// NewLineReader wraps r.  Lines longer than max bytes (or the pooled
// buffer size, whichever is larger) fail with bufio.ErrTooLong.
func NewLineReader(r io.Reader, max int) *LineReader {
	buf := util.GetBuf()
	sc := bufio.NewScanner(r)
	sc.Buffer(*buf, max)
	return &LineReader{sc: sc, buf: buf}
}

// ReadLine returns the next line without its terminator.  At end of
// stream it returns io.EOF; a final unterminated line is still
// returned first.
func (lr *LineReader) ReadLine() (string, error) {
	if lr.sc.Scan() {
		return lr.sc.Text(), nil
	}
	if err := lr.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Release hands the buffer back to the pool.  The reader must not be
// used afterwards.
func (lr *LineReader) Release() {
	if lr.buf != nil {
		util.PutBuf(lr.buf)
		lr.buf = nil
	}
}
