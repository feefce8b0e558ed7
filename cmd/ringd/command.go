package main

import (
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/coreman2200/funtimes-arcaluminis/internal/level"
	"github.com/coreman2200/funtimes-arcaluminis/internal/status"
)

// command is one line read from the control input:
//
//	<state> [value]   e.g. "volume 5", "dialog"
//	rssi <dBm>        signal strength shown as config_success
//	vol% <percent>    volume in percent shown as volume
//	quit
type command struct {
	state status.State
	value int
	quit  bool
}

// parseCommand returns ok=false for blank lines and comments.
func parseCommand(line string) (cmd command, ok bool, err error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return command{}, false, errors.Wrapf(err, "split %q", line)
	}
	if len(fields) == 0 {
		return command{}, false, nil
	}
	if len(fields) > 2 {
		return command{}, false, errors.Errorf("too many fields in %q", line)
	}

	name := strings.ToLower(fields[0])
	var arg int
	if len(fields) == 2 {
		arg, err = strconv.Atoi(fields[1])
		if err != nil {
			return command{}, false, errors.Wrapf(err, "value for %s", name)
		}
	}

	switch name {
	case "quit", "exit":
		return command{quit: true}, true, nil
	case "rssi":
		if len(fields) != 2 {
			return command{}, false, errors.New("rssi needs a dBm value")
		}
		return command{state: status.ConfigSuccess, value: level.FromRSSI(arg)}, true, nil
	case "vol%":
		if len(fields) != 2 {
			return command{}, false, errors.New("vol% needs a percentage")
		}
		return command{state: status.Volume, value: level.FromVolume(arg)}, true, nil
	}

	s, err := status.ParseState(name)
	if err != nil {
		return command{}, false, err
	}
	return command{state: s, value: arg}, true, nil
}
