package conversation

import (
	"slices"

	"github.com/m3rciful/tripbot/internal/domain"
)

// Add-Trip states.
const (
	StateAwaitName        State = "await_name"
	StateAwaitDestination State = "await_destination"
	StateAwaitStartDate   State = "await_start_date"
	StateAwaitEndDate     State = "await_end_date"
	StateAwaitDocuments   State = "await_documents"
)

// AddTrip collects a new trip and commits it on /finish.
type AddTrip struct {
	state       State
	existing    domain.UserRecord
	name        string
	destination string
	start       domain.Date
	end         domain.Date
	files       []domain.FileRef
}

// NewAddTrip starts the interactive path. rec supplies the names already in
// use so duplicates are refused while typing rather than at commit time.
func NewAddTrip(rec domain.UserRecord) AddTrip {
	return AddTrip{state: StateAwaitName, existing: rec.Clone()}
}

func (f AddTrip) Kind() Kind   { return KindAddTrip }
func (f AddTrip) State() State { return f.state }

// Prompt is the question shown when the flow enters its current state.
func (f AddTrip) Prompt() string {
	switch f.state {
	case StateAwaitName:
		return promptTripName
	case StateAwaitDestination:
		return promptDestination
	case StateAwaitStartDate:
		return promptStartDate
	case StateAwaitEndDate:
		return promptEndDate
	default:
		return promptDocuments
	}
}

// Trip assembles the scratch data.
func (f AddTrip) Trip() domain.Trip {
	return domain.Trip{
		Destination: f.destination,
		StartDate:   f.start,
		EndDate:     f.end,
		Files:       slices.Clone(f.files),
	}
}

// Files returns the documents received so far.
func (f AddTrip) Files() []domain.FileRef { return slices.Clone(f.files) }

func (f AddTrip) Handle(ev Event) Step {
	if f.state == StateAwaitDocuments {
		return f.handleDocuments(ev)
	}
	switch ev.Kind {
	case EventFinish:
		return reprompt(f, msgNotYet+"\n\n"+f.Prompt())
	case EventFile:
		return reprompt(f, msgTextOnly+"\n\n"+f.Prompt())
	}

	text := cleanText(ev)
	switch f.state {
	case StateAwaitName:
		if text == "" {
			return reprompt(f, msgEmptyText+"\n\n"+promptTripName)
		}
		if f.existing.HasTrip(text) {
			return reprompt(f, tripExists(text))
		}
		f.name = text
		f.state = StateAwaitDestination
		return advance(f, promptDestination)

	case StateAwaitDestination:
		if text == "" {
			return reprompt(f, msgEmptyText+"\n\n"+promptDestination)
		}
		f.destination = text
		f.state = StateAwaitStartDate
		return advance(f, promptStartDate)

	case StateAwaitStartDate:
		d, err := domain.ParseDate(text)
		if err != nil {
			return reprompt(f, msgInvalidDate)
		}
		f.start = d
		f.state = StateAwaitEndDate
		return advance(f, promptEndDate)

	case StateAwaitEndDate:
		d, err := domain.ParseDate(text)
		if err != nil {
			return reprompt(f, msgInvalidDate)
		}
		if d.Before(f.start) {
			return reprompt(f, msgEndBeforeStart)
		}
		f.end = d
		f.state = StateAwaitDocuments
		return advance(f, promptDocuments)
	}
	return reprompt(f, f.Prompt())
}

func (f AddTrip) handleDocuments(ev Event) Step {
	switch ev.Kind {
	case EventFile:
		f.files = append(slices.Clip(f.files), ev.File)
		return advance(f, promptDocumentMore)
	case EventFinish:
		name, trip := f.name, f.Trip()
		return finish(tripSaved(name), func(rec *domain.UserRecord) error {
			return rec.AddTrip(name, trip)
		})
	default:
		return reprompt(f, promptDocumentsOnly)
	}
}

// DirectAddTrip is the two-argument /addtrip form: a single-day trip with no
// files. It returns the reply for a bad date and a nil mutation.
func DirectAddTrip(name, date string) (Mutation, string) {
	d, err := domain.ParseDate(date)
	if err != nil || name == "" {
		return nil, msgInvalidDate
	}
	trip := domain.Trip{StartDate: d, EndDate: d, Files: []domain.FileRef{}}
	return func(rec *domain.UserRecord) error {
		return rec.AddTrip(name, trip)
	}, tripSavedOn(name, d)
}
