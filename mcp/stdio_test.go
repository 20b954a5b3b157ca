package mcp

import (
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The read loop must terminate after Close even when it is blocked sending a
// line nobody will receive.
func Test_Stdio_CloseReleasesBlockedReader(t *testing.T) {
	outR, outW := io.Pipe()
	_, stdinW := io.Pipe()

	tr := &stdioTransport{
		cmd:   exec.Command("unused"),
		stdin: stdinW,
		lines: make(chan []byte, 1),
		done:  make(chan struct{}),
	}

	finished := make(chan struct{})
	go func() {
		tr.readLoop(outR, DefaultMaxMessageBytes)
		close(finished)
	}()

	// First line fills the buffer, second blocks the loop on the send.
	_, err := outW.Write([]byte(`{"jsonrpc":"2.0","id":"1"}` + "\n"))
	require.NoError(t, err)
	_, err = outW.Write([]byte(`{"jsonrpc":"2.0","id":"2"}` + "\n"))
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	_ = outW.Close()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop after Close")
	}
}
