package mcp

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// DefaultMaxMessageBytes caps a single server message. Larger lines abort the
// read instead of buffering without bound.
const DefaultMaxMessageBytes = 1 << 20

// StdioConfig describes how to spawn a tool server speaking the protocol over
// its standard streams.
type StdioConfig struct {
	Command string
	Args    []string
	Dir     string
	// Env entries are appended to the parent environment.
	Env []string

	// Stderr receives the child's standard error; defaults to os.Stderr.
	Stderr io.Writer

	// MaxMessageBytes bounds one server message; 0 means
	// DefaultMaxMessageBytes.
	MaxMessageBytes int

	Info ClientInfo
}

// NewStdioClient spawns the configured command and binds its stdin/stdout to
// the client transport. The caller owns the returned client and must Close it
// to terminate the child process.
func NewStdioClient(ctx context.Context, cfg StdioConfig) (*Client, error) {
	if cfg.Command == "" {
		return nil, errors.New("mcp: stdio command is required")
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "mcp: stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "mcp: stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "mcp: start %s", cfg.Command)
	}

	maxBytes := cfg.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}

	t := &stdioTransport{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan []byte, 8),
		done:  make(chan struct{}),
	}
	go t.readLoop(stdout, maxBytes)

	client, err := NewClient(ctx, t, cfg.Info)
	if err != nil {
		// NewClient already closed the transport, which kills the child.
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "spawned",
		"command", cfg.Command,
		"pid", cmd.Process.Pid,
	)
	return client, nil
}

// stdioTransport frames newline-delimited JSON over a child process's
// standard streams. A background goroutine owns stdout so Receive can honor
// context cancellation, and its termination doubles as liveness detection.
type stdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan []byte
	done   chan struct{}
	exited atomic.Bool
	closed atomic.Bool
}

func (t *stdioTransport) readLoop(stdout io.Reader, maxBytes int) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxBytes)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		// The send blocks when the receiver falls behind; done releases it on
		// Close so the goroutine cannot outlive the transport.
		select {
		case t.lines <- line:
		case <-t.done:
			close(t.lines)
			_ = t.cmd.Wait()
			t.exited.Store(true)
			return
		}
	}
	close(t.lines)
	_ = t.cmd.Wait()
	t.exited.Store(true)
}

func (t *stdioTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.exited.Load() {
		return errors.New("tool server process exited")
	}
	if _, err := t.stdin.Write(append(payload, '\n')); err != nil {
		return err
	}
	return nil
}

func (t *stdioTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case line, ok := <-t.lines:
		if !ok {
			return nil, errors.New("tool server process exited")
		}
		return line, nil
	}
}

func (t *stdioTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)
	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	return nil
}
