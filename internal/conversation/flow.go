// Package conversation drives the multi-turn Add-Trip, Edit-Trip and
// Profile-Form dialogs.
//
// Each flow is a value holding an explicit state and the data collected so
// far. Handle is a pure transition: it never touches the store, it returns a
// Step describing the next flow value, the reply and an optional Mutation.
// The Manager owns one flow per user and applies mutations through the store.
package conversation

import (
	"strings"

	"github.com/m3rciful/tripbot/internal/domain"
)

// Kind names a flow.
type Kind string

const (
	KindAddTrip  Kind = "addtrip"
	KindEditTrip Kind = "edittrip"
	KindProfile  Kind = "profile"
)

// State is a step inside a flow.
type State string

// EventKind distinguishes the inputs a flow can receive.
type EventKind int

const (
	EventText EventKind = iota
	EventFile
	// EventFinish is the /finish completion signal.
	EventFinish
)

// Event is one user input routed to the active flow.
type Event struct {
	Kind EventKind
	Text string
	File domain.FileRef
}

// TextEvent wraps a free-text message.
func TextEvent(s string) Event { return Event{Kind: EventText, Text: s} }

// FileEvent wraps a received document reference.
func FileEvent(ref domain.FileRef) Event { return Event{Kind: EventFile, File: ref} }

// FinishEvent is the completion signal.
func FinishEvent() Event { return Event{Kind: EventFinish} }

// Mutation changes one user's record. It runs inside Store.Update.
type Mutation func(*domain.UserRecord) error

// Outcome classifies a transition for logs and metrics.
type Outcome string

const (
	OutcomeAdvance  Outcome = "advance"
	OutcomeReprompt Outcome = "reprompt"
	OutcomeCommit   Outcome = "commit"
	OutcomeDone     Outcome = "done"
)

// Step is the result of a transition.
type Step struct {
	Next    Flow
	Reply   string
	Commit  Mutation
	Done    bool
	Outcome Outcome
}

// Flow is one conversation state machine.
type Flow interface {
	Kind() Kind
	State() State
	Handle(ev Event) Step
}

// resyncer refreshes data a flow copied from the store after its mutation
// has been committed.
type resyncer interface {
	Resync(rec domain.UserRecord) Flow
}

// questioner repeats the question of the flow's current state.
type questioner interface {
	currentPrompt() string
}

func advance(next Flow, reply string) Step {
	return Step{Next: next, Reply: reply, Outcome: OutcomeAdvance}
}

func reprompt(cur Flow, reply string) Step {
	return Step{Next: cur, Reply: reply, Outcome: OutcomeReprompt}
}

func commit(next Flow, reply string, m Mutation) Step {
	return Step{Next: next, Reply: reply, Commit: m, Outcome: OutcomeCommit}
}

func finish(reply string, m Mutation) Step {
	return Step{Reply: reply, Commit: m, Done: true, Outcome: OutcomeDone}
}

func cleanText(ev Event) string { return strings.TrimSpace(ev.Text) }
