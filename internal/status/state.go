package status

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// State is what the ring is currently showing.
type State uint8

const (
	Idle          State = iota // all off
	SelfTest                   // power-on red, green, blue
	Configuring                // green breathing while pairing
	ConfigSuccess              // signal strength in green, then off
	NetError                   // solid red
	Dialog                     // blue blinking while listening
	Volume                     // volume level in yellow, then off
	Breathing                  // blue breathing while speaking
	Wake                       // two blue flashes, then solid blue
	Standby                    // one green LED walking around the ring

	numStates
)

var stateNames = [numStates]string{
	Idle:          "idle",
	SelfTest:      "selftest",
	Configuring:   "configuring",
	ConfigSuccess: "config_success",
	NetError:      "net_error",
	Dialog:        "dialog",
	Volume:        "volume",
	Breathing:     "breathing",
	Wake:          "wake",
	Standby:       "standby",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool { return s < numStates }

// ParseState maps a state name, as returned by String, back to a State.
func ParseState(name string) (State, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, v := range stateNames {
		if v == n {
			return State(i), nil
		}
	}
	return Idle, errors.Wrapf(ErrUnknownState, "%q", name)
}
