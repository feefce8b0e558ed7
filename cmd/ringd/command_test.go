package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-arcaluminis/internal/status"
)

func TestParseCommand(t *testing.T) {
	for _, tc := range []struct {
		line  string
		state status.State
		value int
	}{
		{"volume 5", status.Volume, 5},
		{"  Dialog ", status.Dialog, 0},
		{"config_success 12 # full bars", status.ConfigSuccess, 12},
		{"rssi -55", status.ConfigSuccess, 8},
		{"rssi -20", status.ConfigSuccess, 12},
		{"vol% 40", status.Volume, 4},
		{"vol% 250", status.Volume, 12},
		{"standby", status.Standby, 0},
		{`"volume" '7'`, status.Volume, 7},
	} {
		t.Run(tc.line, func(t *testing.T) {
			cmd, ok, err := parseCommand(tc.line)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tc.state, cmd.state)
			assert.Equal(t, tc.value, cmd.value)
			assert.False(t, cmd.quit)
		})
	}
}

func TestParseCommandSkipsAndRejects(t *testing.T) {
	for _, line := range []string{"", "   ", "# comment"} {
		_, ok, err := parseCommand(line)
		assert.NoError(t, err, line)
		assert.False(t, ok, line)
	}

	cmd, ok, err := parseCommand("quit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, cmd.quit)

	for _, line := range []string{"disco", "volume loud", "rssi", "vol%", "volume 1 2", `volume "5`} {
		_, _, err := parseCommand(line)
		assert.Error(t, err, line)
	}
}

type call struct {
	state status.State
	value int
}

type recorder struct{ calls []call }

func (r *recorder) SetState(s status.State, v int) error {
	r.calls = append(r.calls, call{s, v})
	return nil
}

func TestLooperStopsAtQuit(t *testing.T) {
	rec := &recorder{}
	l := &looper{
		ctrl: rec,
		in:   strings.NewReader("volume 3\nnonsense\n\nrssi -90\nquit\nidle\n"),
		log:  zerolog.Nop(),
	}
	require.NoError(t, l.run(context.Background()))
	assert.Equal(t, []call{{status.Volume, 3}, {status.ConfigSuccess, 1}}, rec.calls)
}

func TestLooperOutlivesInput(t *testing.T) {
	rec := &recorder{}
	l := &looper{ctrl: rec, in: strings.NewReader("breathing"), log: zerolog.Nop()}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.run(ctx))
	assert.Equal(t, context.DeadlineExceeded, ctx.Err())
	assert.Equal(t, []call{{status.Breathing, 0}}, rec.calls)
}

// blockingReader never returns, like an idle terminal.
type blockingReader struct{ ch chan struct{} }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.ch
	return 0, nil
}

func TestLooperCancel(t *testing.T) {
	in := blockingReader{ch: make(chan struct{})}
	defer close(in.ch)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	l := &looper{ctrl: &recorder{}, in: in, log: zerolog.Nop()}
	assert.NoError(t, l.run(ctx))
}
