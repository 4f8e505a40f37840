// Package finitestate wraps go-fsm with the lifecycle states shared by every
// scriptgate runnable.
package finitestate

import (
	"context"
	"log/slog"
	"time"

	"github.com/robbyt/go-fsm"
)

const (
	StatusNew       = fsm.StatusNew
	StatusBooting   = fsm.StatusBooting
	StatusRunning   = fsm.StatusRunning
	StatusReloading = fsm.StatusReloading
	StatusStopping  = fsm.StatusStopping
	StatusStopped   = fsm.StatusStopped
	StatusError     = fsm.StatusError
	StatusUnknown   = fsm.StatusUnknown
)

// TypicalTransitions is a set of standard transitions for a finite state machine.
var TypicalTransitions = fsm.TypicalTransitions

// SubscriberOption is a functional option for configuring state channel behavior
type SubscriberOption = fsm.SubscriberOption

// WithSyncTimeout sets a timeout for synchronous broadcast operations
var WithSyncTimeout = fsm.WithSyncTimeout

// stateBroadcastTimeout bounds delivery of a state change to a subscriber.
const stateBroadcastTimeout = 5 * time.Second

// Machine is the lifecycle state machine of a runnable.
type Machine interface {
	Transition(state string) error
	TransitionBool(state string) bool
	TransitionIfCurrentState(currentState, newState string) error
	SetState(state string) error
	GetState() string

	// GetStateChan returns a channel that emits the state whenever it changes.
	// The channel is closed when ctx is canceled.
	GetStateChan(ctx context.Context) <-chan string
	GetStateChanWithOptions(ctx context.Context, opts ...SubscriberOption) <-chan string
}

// RunnableFSM delivers state changes synchronously so subscribers observe
// Stopping and Stopped during shutdown.
type RunnableFSM struct {
	*fsm.Machine
}

func (m *RunnableFSM) GetStateChan(ctx context.Context) <-chan string {
	return m.GetStateChanWithOptions(ctx, WithSyncTimeout(stateBroadcastTimeout))
}

// New creates a machine in StatusNew using the typical transitions.
func New(handler slog.Handler) (Machine, error) {
	machine, err := fsm.New(handler, StatusNew, TypicalTransitions)
	if err != nil {
		return nil, err
	}
	return &RunnableFSM{Machine: machine}, nil
}

// Stop moves m through Stopping to Stopped, logging rather than failing when
// a step is not allowed from the current state.
func Stop(m Machine, logger *slog.Logger) {
	if m.GetState() != StatusStopping {
		if err := m.Transition(StatusStopping); err != nil {
			logger.Debug("Failed to transition to stopping state", "error", err)
		}
	}
	if err := m.Transition(StatusStopped); err != nil {
		logger.Debug("Failed to transition to stopped state", "error", err)
	}
}
