// Package wire implements the Unix-socket protocol used between the build
// orchestrator and the recursive "remake" invocations its scripts make:
// a 4-byte native-endian job id, a NUL-delimited target list terminated by
// an extra empty record, and a single reply byte.
package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrMalformed is returned when a request frame cannot be parsed: a short
// read, or a missing double-NUL terminator.
var ErrMalformed = errors.New("malformed client message")

// ReadJobID reads the 4-byte native-endian job id that starts a request.
func ReadJobID(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, ErrMalformed
	}
	return int32(binary.NativeEndian.Uint32(buf[:])), nil
}

// ReadTargets reads NUL-terminated target strings until it hits the
// double-NUL terminator (an extra empty record), returning the targets
// without that trailing empty one.
func ReadTargets(r *bufio.Reader) ([]string, error) {
	var targets []string
	for {
		word, err := r.ReadString(0)
		if err != nil {
			return nil, ErrMalformed
		}
		word = word[:len(word)-1] // drop the trailing NUL
		if word == "" {
			return targets, nil
		}
		targets = append(targets, word)
	}
}

// WriteRequest writes a full request frame: the job id, each target
// NUL-terminated, and a final empty NUL-terminated record.
func WriteRequest(w io.Writer, jobID int32, targets []string) error {
	var buf bytes.Buffer
	var idBytes [4]byte
	binary.NativeEndian.PutUint32(idBytes[:], uint32(jobID))
	buf.Write(idBytes[:])
	for _, t := range targets {
		buf.WriteString(t)
		buf.WriteByte(0)
	}
	buf.WriteByte(0)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteReply sends the single reply byte: 1 for success, 0 for failure.
func WriteReply(w io.Writer, success bool) error {
	b := byte(0)
	if success {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

// ReadReply reads the single reply byte. A short read counts as failure,
// matching the client's documented behavior on a dropped connection.
func ReadReply(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, err
	}
	return buf[0] == 1, nil
}
