package main

import (
	"bufio"
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-arcaluminis/internal/status"
)

// stateSetter is the part of the controller the loop drives.
type stateSetter interface {
	SetState(s status.State, value int) error
}

// looper feeds control lines to the controller until a quit command arrives
// or ctx is cancelled. The end of the input does not stop it.
type looper struct {
	ctrl stateSetter
	in   io.Reader
	log  zerolog.Logger
}

func (l *looper) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(l.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		done <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			if err != nil {
				return err
			}
			// the ring keeps animating without a control input
			l.log.Debug().Msg("control input closed, waiting for a signal")
			done = nil
		case line := <-lines:
			cmd, ok, err := parseCommand(line)
			if err != nil {
				l.log.Warn().Err(err).Str("line", line).Msg("bad command")
				continue
			}
			if !ok {
				continue
			}
			if cmd.quit {
				return nil
			}
			if err := l.ctrl.SetState(cmd.state, cmd.value); err != nil {
				l.log.Warn().Err(err).Stringer("state", cmd.state).Msg("set state")
				continue
			}
			l.log.Debug().Stringer("state", cmd.state).Int("value", cmd.value).Msg("state requested")
		}
	}
}
