// Package helper runs the external download helper and turns its output
// streams into status events.
package helper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/logger"
)

const (
	eventBuffer = 16
	maxLineSize = 1 << 20
)

// Launcher starts helper processes. Args are placed before the JSON command.
type Launcher struct {
	Binary string
	Args   []string
	Env    []string
}

// Exit describes how a helper process ended. Code is -1 when the process was
// killed or never reported an exit status.
type Exit struct {
	Code int
	Err  error
}

// Process is one running helper.
type Process struct {
	cmd    *exec.Cmd
	events chan Event
	done   chan struct{}
	exit   Exit
}

// Spawn starts the helper with c as its argument. The process is killed when
// ctx ends. Decoded events are delivered on Events until both output streams
// are drained; the caller must keep receiving.
func (l *Launcher) Spawn(ctx context.Context, c Command) (*Process, error) {
	payload, err := Encode(c)
	if err != nil {
		return nil, errors.NewInvalidError("spawn", "", err)
	}

	binary, err := l.lookPath()
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(l.Args)+1)
	args = append(args, l.Args...)
	args = append(args, payload)

	cmd := exec.CommandContext(ctx, binary, args...)
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewSpawnError(binary, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.NewSpawnError(binary, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.NewSpawnError(binary, err)
	}

	logger.Debugf("Started helper %s (pid %d) with %s", binary, cmd.Process.Pid, payload)

	p := &Process{
		cmd:    cmd,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}

	go p.run(stdout, stderr)

	return p, nil
}

// Send starts a helper for c and reaps it in the background. Only a failure
// to start is reported.
func (l *Launcher) Send(ctx context.Context, c Command) error {
	p, err := l.Spawn(ctx, c)
	if err != nil {
		return err
	}

	go func() {
		for ev := range p.Events() {
			logger.Debugf("Ignoring event from command helper: %+v", ev)
		}

		if exit := p.Wait(); exit.Code != 0 {
			logger.Warnf("Command helper exited with code %d: %v", exit.Code, exit.Err)
		}
	}()

	return nil
}

func (l *Launcher) lookPath() (string, error) {
	if l.Binary == "" {
		return "", errors.NewSpawnError("helper", errors.ErrBinaryNotFound)
	}

	path, err := exec.LookPath(l.Binary)
	if err != nil {
		return "", errors.NewSpawnError(l.Binary, fmt.Errorf("%w: %v", errors.ErrBinaryNotFound, err))
	}

	return path, nil
}

// Events is closed once both output streams reach EOF.
func (p *Process) Events() <-chan Event {
	return p.events
}

// Wait blocks until the process has exited and its output was consumed.
func (p *Process) Wait() Exit {
	<-p.done
	return p.exit
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *Process) run(stdout, stderr io.Reader) {
	var g errgroup.Group
	g.Go(func() error { return p.consume("stdout", stdout) })
	g.Go(func() error { return p.consume("stderr", stderr) })

	streamErr := g.Wait()
	waitErr := p.cmd.Wait()
	close(p.events)

	p.exit = exitOf(waitErr, streamErr)
	logger.Debugf("Helper pid %d exited with code %d", p.cmd.Process.Pid, p.exit.Code)
	close(p.done)
}

func (p *Process) consume(name string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debugf("Helper %s: %s", name, line)

		ev, err := DecodeEvent(line)
		if err != nil {
			continue
		}

		p.events <- ev
	}

	if err := scanner.Err(); err != nil {
		// Keep draining so the helper never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("reading helper %s: %w", name, err)
	}

	return nil
}

func exitOf(waitErr, streamErr error) Exit {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return Exit{Code: 0, Err: streamErr}
	case errors.As(waitErr, &exitErr):
		return Exit{Code: exitErr.ExitCode(), Err: waitErr}
	default:
		return Exit{Code: -1, Err: waitErr}
	}
}
