package wire

import (
	"bufio"
	"fmt"
	"net"
)

// SendRequest connects to the server at socketPath, sends a request frame
// for jobID and targets, and waits for the reply byte. A dropped connection
// or short reply is treated as failure, matching the documented behavior
// of a script's recursive remake invocation.
func SendRequest(socketPath string, jobID int32, targets []string) (bool, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	if err := WriteRequest(conn, jobID, targets); err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}

	ok, err := ReadReply(bufio.NewReader(conn))
	if err != nil {
		return false, nil
	}
	return ok, nil
}
