package main

import (
	"context"
	"fmt"

	"github.com/sweeney/dryeye-sensor/internal/logic"
	"github.com/sweeney/dryeye-sensor/internal/web"
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
)

// command is a session control request delivered to runLoop.
type command struct {
	kind     commandKind
	duration int
	reply    chan commandResult
}

type commandResult struct {
	sessionID  string
	assessment logic.Assessment
	err        error
}

func (d *daemon) handleCommand(cmd command) commandResult {
	switch cmd.kind {
	case cmdStart:
		id, err := d.startSession(cmd.duration)
		return commandResult{sessionID: id, err: err}
	case cmdStop:
		a, err := d.stopSession()
		return commandResult{assessment: a, err: err}
	default:
		return commandResult{err: fmt.Errorf("unknown command %d", cmd.kind)}
	}
}

// loopController implements web.Controller by forwarding to runLoop.
// done is closed once runLoop has returned; later requests fail fast.
type loopController struct {
	commands chan<- command
	done     <-chan struct{}
}

func (c loopController) do(ctx context.Context, cmd command) (commandResult, error) {
	cmd.reply = make(chan commandResult, 1)
	select {
	case c.commands <- cmd:
	case <-c.done:
		return commandResult{}, web.ErrUnavailable
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
	// A received command is always answered before runLoop returns.
	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

func (c loopController) StartSession(ctx context.Context, durationSeconds int) (string, error) {
	res, err := c.do(ctx, command{kind: cmdStart, duration: durationSeconds})
	return res.sessionID, err
}

func (c loopController) StopSession(ctx context.Context) (logic.Assessment, error) {
	res, err := c.do(ctx, command{kind: cmdStop})
	return res.assessment, err
}
