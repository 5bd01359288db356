package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Transport carries UCI lines in both directions. ReadLine is only ever called
// from a single reader goroutine; WriteLine may be called concurrently.
type Transport interface {
	WriteLine(ctx context.Context, line string) error
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// Dialer opens a fresh transport for a new engine handle.
type Dialer func(ctx context.Context) (Transport, error)

var errTransportClosed = errors.New("uci: transport closed")

// ProcessTransport talks to a local engine binary over stdin/stdout.
type ProcessTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu     sync.Mutex
	closed bool
}

// ProcessDialer starts binaryPath for every new handle.
func ProcessDialer(binaryPath string) Dialer {
	return func(ctx context.Context) (Transport, error) {
		return StartProcess(binaryPath)
	}
}

// StartProcess launches the engine. The process outlives the dial context and
// is stopped by Close.
func StartProcess(binaryPath string) (*ProcessTransport, error) {
	if strings.TrimSpace(binaryPath) == "" {
		return nil, fmt.Errorf("engine binary path is required")
	}
	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	return &ProcessTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}, nil
}

func (p *ProcessTransport) WriteLine(_ context.Context, line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errTransportClosed
	}
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

// ReadLine blocks until the engine prints a line or the process exits.
func (p *ProcessTransport) ReadLine(_ context.Context) (string, error) {
	line, err := p.stdout.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ProcessTransport) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	if p.cmd != nil {
		_ = p.cmd.Wait()
	}
	return nil
}
