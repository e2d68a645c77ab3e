package icpmanager

import (
	"fmt"

	"github.com/go-i2p/go-icp/lib/config"
)

// State is the observable listener state.
type State struct {
	Running bool
	// Port is config.NoPort while stopped.
	Port int
}

// Stopped is the state with no bound socket.
var Stopped = State{Port: config.NoPort}

func (s State) String() string {
	if !s.Running {
		return "Stopped"
	}
	return fmt.Sprintf("Running(%d)", s.Port)
}

// Action is the socket side effect a Transition requires.
type Action int

const (
	// ActionNone leaves the socket untouched.
	ActionNone Action = iota
	// ActionStart binds a socket where none exists.
	ActionStart
	// ActionRebind closes the current socket and binds another port.
	ActionRebind
	// ActionStop closes the current socket.
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionRebind:
		return "rebind"
	case ActionStop:
		return "stop"
	}
	return "none"
}

// Transition moves the listener from one state to another.
type Transition struct {
	From   State
	To     State
	Action Action
}

// Plan decides what cfg asks of a listener currently in state current.
// It has no side effects.
func Plan(current State, cfg *config.ICPConfig) Transition {
	target := Stopped
	if r := cfg.Resolve(); r.ShouldRun() {
		target = State{Running: true, Port: r.Port}
	}
	t := Transition{From: current, To: target}
	switch {
	case !current.Running && target.Running:
		t.Action = ActionStart
	case current.Running && !target.Running:
		t.Action = ActionStop
	case current.Running && target.Running && current.Port != target.Port:
		t.Action = ActionRebind
	}
	return t
}
