// Package reconcile drives remote state toward a release plan. Every run is
// a fresh check-then-act pass: observe the provider, diff against the plan,
// mutate only what differs. Running twice in a row performs zero mutations
// the second time.
package reconcile

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Events driving a reconciliation run.
const (
	EventPRMissing statekit.EventType = "PR_MISSING"
	EventPRStale   statekit.EventType = "PR_STALE"
	EventPRCurrent statekit.EventType = "PR_CURRENT"
	EventMutated   statekit.EventType = "MUTATED"

	EventTagMissing     statekit.EventType = "TAG_MISSING"
	EventTagPresent     statekit.EventType = "TAG_PRESENT"
	EventReleaseMissing statekit.EventType = "RELEASE_MISSING"
	EventReleasePresent statekit.EventType = "RELEASE_PRESENT"

	EventFail statekit.EventType = "FAIL"
)

// States of the release PR flow.
var (
	StateObservingPR statekit.StateID = "observing_pr"
	StateCreatingPR  statekit.StateID = "creating_pr"
	StateUpdatingPR  statekit.StateID = "updating_pr"
	StateConverged   statekit.StateID = "converged"
	StateFailed      statekit.StateID = "failed"
)

// States of the publish (tag and release) flow.
var (
	StateObservingTag     statekit.StateID = "observing_tag"
	StateCreatingTag      statekit.StateID = "creating_tag"
	StateObservingRelease statekit.StateID = "observing_release"
	StateCreatingRelease  statekit.StateID = "creating_release"
)

// Machine wraps a statekit interpreter for one reconciliation run. It tracks
// where the run is, so failures report the exact step that broke.
type Machine struct {
	interpreter *statekit.Interpreter[struct{}]
}

// newPRMachine builds the release PR flow:
// observe, then create, update or nothing, then converged.
func newPRMachine() (*Machine, error) {
	machine, err := statekit.NewMachine[struct{}]("release-pr").
		WithInitial(StateObservingPR).
		State(StateObservingPR).
		On(EventPRMissing).Target(StateCreatingPR).
		On(EventPRStale).Target(StateUpdatingPR).
		On(EventPRCurrent).Target(StateConverged).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateCreatingPR).
		On(EventMutated).Target(StateConverged).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateUpdatingPR).
		On(EventMutated).Target(StateConverged).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateConverged).
		Final().
		Done().
		State(StateFailed).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build release-pr machine: %w", err)
	}
	return newMachine(statekit.NewInterpreter(machine)), nil
}

// newPublishMachine builds the tag and release flow. The tag check always
// precedes the release check: a provider release cannot exist without its tag.
func newPublishMachine() (*Machine, error) {
	machine, err := statekit.NewMachine[struct{}]("release-publish").
		WithInitial(StateObservingTag).
		State(StateObservingTag).
		On(EventTagMissing).Target(StateCreatingTag).
		On(EventTagPresent).Target(StateObservingRelease).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateCreatingTag).
		On(EventMutated).Target(StateObservingRelease).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateObservingRelease).
		On(EventReleaseMissing).Target(StateCreatingRelease).
		On(EventReleasePresent).Target(StateConverged).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateCreatingRelease).
		On(EventMutated).Target(StateConverged).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateConverged).
		Final().
		Done().
		State(StateFailed).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build release-publish machine: %w", err)
	}
	return newMachine(statekit.NewInterpreter(machine)), nil
}

func newMachine(interp *statekit.Interpreter[struct{}]) *Machine {
	interp.Start()
	return &Machine{interpreter: interp}
}

// Send advances the machine.
func (m *Machine) Send(event statekit.EventType) {
	m.interpreter.Send(statekit.Event{Type: event})
}

// State returns the current state ID.
func (m *Machine) State() statekit.StateID {
	return m.interpreter.State().Value
}

// Done reports whether the machine reached a final state.
func (m *Machine) Done() bool {
	return m.interpreter.Done()
}
