package conversation

import (
	"github.com/m3rciful/tripbot/internal/domain"
)

// Profile-Form states.
const (
	StateAwaitFirstName    State = "await_first_name"
	StateAwaitLastName     State = "await_last_name"
	StateAwaitBirthDate    State = "await_birth_date"
	StateAwaitCertificates State = "await_certificates"
)

// ProfileForm collects the user's profile and overwrites any stored one.
type ProfileForm struct {
	state     State
	firstName string
	lastName  string
	birthDate domain.Date
}

func NewProfileForm() ProfileForm { return ProfileForm{state: StateAwaitFirstName} }

func (f ProfileForm) Kind() Kind   { return KindProfile }
func (f ProfileForm) State() State { return f.state }

// Prompt is the question for the current state.
func (f ProfileForm) Prompt() string {
	switch f.state {
	case StateAwaitLastName:
		return promptLastName
	case StateAwaitBirthDate:
		return promptBirthDate
	case StateAwaitCertificates:
		return promptCertificates
	default:
		return promptFirstName
	}
}

func (f ProfileForm) Handle(ev Event) Step {
	switch ev.Kind {
	case EventFinish:
		if f.birthDate.IsZero() {
			return reprompt(f, msgNoBirthDate)
		}
		return finish(msgProfileFinished, f.write(domain.CertificatesNone))
	case EventFile:
		return reprompt(f, msgTextOnly+"\n\n"+f.Prompt())
	}

	text := cleanText(ev)
	switch f.state {
	case StateAwaitFirstName:
		if text == "" {
			return reprompt(f, msgEmptyText+"\n\n"+promptFirstName)
		}
		f.firstName = text
		f.state = StateAwaitLastName
		return advance(f, promptLastName)

	case StateAwaitLastName:
		if text == "" {
			return reprompt(f, msgEmptyText+"\n\n"+promptLastName)
		}
		f.lastName = text
		f.state = StateAwaitBirthDate
		return advance(f, promptBirthDate)

	case StateAwaitBirthDate:
		d, err := domain.ParseDate(text)
		if err != nil {
			return reprompt(f, msgInvalidDate)
		}
		f.birthDate = d
		f.state = StateAwaitCertificates
		return advance(f, promptCertificates)

	default:
		certs := text
		if certs == "" {
			certs = domain.CertificatesNone
		}
		return finish(msgProfileSaved, f.write(certs))
	}
}

func (f ProfileForm) write(certificates string) Mutation {
	p := domain.Profile{
		FirstName:    f.firstName,
		LastName:     f.lastName,
		BirthDate:    f.birthDate,
		Certificates: certificates,
	}
	return func(rec *domain.UserRecord) error {
		rec.Profile = &p
		return nil
	}
}
