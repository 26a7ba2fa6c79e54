package conversation

import (
	"slices"
	"strconv"
	"strings"

	"github.com/m3rciful/tripbot/internal/domain"
)

// Edit-Trip states.
const (
	StateSelectTrip      State = "select_trip"
	StateSelectField     State = "select_field"
	StateAwaitNewValue   State = "await_new_value"
	StateEditDocuments   State = "edit_documents"
	StateAfterEditChoice State = "after_edit_choice"
)

// Field is an editable trip attribute.
type Field string

const (
	FieldTitle     Field = "title"
	FieldStartDate Field = "start-date"
	FieldEndDate   Field = "end-date"
	FieldDocuments Field = "documents"
)

// ParseField matches user input against the editable fields, ignoring case.
func ParseField(s string) (Field, bool) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldTitle, FieldStartDate, FieldEndDate, FieldDocuments:
		return f, true
	}
	return "", false
}

// EditTrip edits the trips captured in its snapshot. Every committed change
// is written through to the snapshot via Resync.
type EditTrip struct {
	state    State
	snapshot []domain.NamedTrip
	index    int
	field    Field
}

// NewEditTrip snapshots the user's trips in display order. ok is false when
// there is nothing to edit.
func NewEditTrip(rec domain.UserRecord) (EditTrip, bool) {
	snap := rec.SortedTrips()
	if len(snap) == 0 {
		return EditTrip{}, false
	}
	return EditTrip{state: StateSelectTrip, snapshot: snap, index: -1}, true
}

func (f EditTrip) Kind() Kind   { return KindEditTrip }
func (f EditTrip) State() State { return f.state }

// Prompt is the trip list shown on entry.
func (f EditTrip) Prompt() string { return tripList(f.snapshot) }

// Snapshot returns a copy of the trips being edited.
func (f EditTrip) Snapshot() []domain.NamedTrip { return slices.Clone(f.snapshot) }

// Selected returns the trip being edited, if one was picked.
func (f EditTrip) Selected() (domain.NamedTrip, bool) {
	if f.index < 0 || f.index >= len(f.snapshot) {
		return domain.NamedTrip{}, false
	}
	return f.snapshot[f.index], true
}

// Resync reloads every snapshot entry that still exists in rec.
func (f EditTrip) Resync(rec domain.UserRecord) Flow {
	snap := slices.Clone(f.snapshot)
	for i, nt := range snap {
		if t, ok := rec.Trips[nt.Name]; ok {
			snap[i].Trip = t.Clone()
		}
	}
	f.snapshot = snap
	return f
}

func (f EditTrip) Handle(ev Event) Step {
	if f.state == StateEditDocuments {
		return f.handleDocuments(ev)
	}
	switch ev.Kind {
	case EventFinish:
		return reprompt(f, msgNotYet+"\n\n"+f.currentPrompt())
	case EventFile:
		return reprompt(f, msgTextOnly+"\n\n"+f.currentPrompt())
	}

	text := cleanText(ev)
	switch f.state {
	case StateSelectTrip:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > len(f.snapshot) {
			return reprompt(f, msgInvalidIndex)
		}
		f.index = n - 1
		f.state = StateSelectField
		return advance(f, promptSelectField)

	case StateSelectField:
		field, ok := ParseField(text)
		if !ok {
			return reprompt(f, msgInvalidField)
		}
		f.field = field
		switch field {
		case FieldDocuments:
			f.state = StateEditDocuments
			return advance(f, promptEditDocs)
		case FieldTitle:
			f.state = StateAwaitNewValue
			return advance(f, promptNewTitle)
		case FieldStartDate:
			f.state = StateAwaitNewValue
			return advance(f, promptNewStart)
		default:
			f.state = StateAwaitNewValue
			return advance(f, promptNewEnd)
		}

	case StateAwaitNewValue:
		return f.handleNewValue(text)

	case StateAfterEditChoice:
		switch text {
		case "1":
			f.state = StateSelectField
			return advance(f, promptSelectField)
		case "2":
			f.state = StateSelectTrip
			f.index = -1
			return advance(f, tripList(f.snapshot))
		case "3":
			return finish(msgEditDone, nil)
		}
		return reprompt(f, msgInvalidChoice)
	}
	return reprompt(f, f.currentPrompt())
}

func (f EditTrip) handleNewValue(text string) Step {
	name := f.snapshot[f.index].Name

	switch f.field {
	case FieldTitle:
		if text == "" {
			return reprompt(f, msgEmptyText+"\n\n"+promptNewTitle)
		}
		for i, nt := range f.snapshot {
			if i != f.index && nt.Name == text {
				return reprompt(f, tripExists(text))
			}
		}
		newName := text
		f.snapshot = slices.Clone(f.snapshot)
		f.snapshot[f.index].Name = newName
		f.state = StateAfterEditChoice
		return commit(f, msgTripUpdated, func(rec *domain.UserRecord) error {
			return rec.RenameTrip(name, newName)
		})

	case FieldStartDate, FieldEndDate:
		d, err := domain.ParseDate(text)
		if err != nil {
			return reprompt(f, msgInvalidDate)
		}
		field := f.field
		f.state = StateAfterEditChoice
		return commit(f, msgTripUpdated, func(rec *domain.UserRecord) error {
			return rec.UpdateTrip(name, func(t *domain.Trip) {
				if field == FieldStartDate {
					t.StartDate = d
				} else {
					t.EndDate = d
				}
			})
		})
	}
	return reprompt(f, promptSelectField)
}

func (f EditTrip) handleDocuments(ev Event) Step {
	name := f.snapshot[f.index].Name
	switch ev.Kind {
	case EventFile:
		ref := ev.File
		return commit(f, fileAttached(name), func(rec *domain.UserRecord) error {
			return rec.AttachFile(name, ref)
		})
	case EventFinish:
		f.state = StateAfterEditChoice
		return advance(f, msgDocumentsAdded)
	default:
		return reprompt(f, promptDocumentsOnly)
	}
}

func (f EditTrip) currentPrompt() string {
	switch f.state {
	case StateSelectTrip:
		return tripList(f.snapshot)
	case StateSelectField:
		return promptSelectField
	case StateAfterEditChoice:
		return promptAfterEdit
	case StateAwaitNewValue:
		switch f.field {
		case FieldTitle:
			return promptNewTitle
		case FieldStartDate:
			return promptNewStart
		default:
			return promptNewEnd
		}
	}
	return promptEditDocs
}
