// Package domain holds the trip, profile and user record types shared by the
// store, the conversation flows and the Telegram adapter.
package domain

import (
	"fmt"
	"slices"
	"sort"
)

// CertificatesNone is stored when the user has no certificates to declare.
const CertificatesNone = "none"

// FileRef points at a file the transport can resolve back to bytes.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Trip is a named date range owned by one user. The name is the key in
// UserRecord.Trips and is not repeated here.
type Trip struct {
	Destination string    `json:"destination,omitempty"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	Files       []FileRef `json:"files"`
}

// Clone returns a copy that does not share the file list.
func (t Trip) Clone() Trip {
	t.Files = slices.Clone(t.Files)
	if t.Files == nil {
		t.Files = []FileRef{}
	}
	return t
}

// NamedTrip pairs a trip with its key for ordered enumeration.
type NamedTrip struct {
	Name string
	Trip Trip
}

// Profile is the personal data collected by the profile form.
type Profile struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BirthDate    Date   `json:"birth_date"`
	Certificates string `json:"certificates"`
}

// UserRecord is everything persisted for a single user.
type UserRecord struct {
	Trips         map[string]Trip `json:"trips"`
	Profile       *Profile        `json:"profile,omitempty"`
	Notifications bool            `json:"notifications,omitempty"`
}

// NewUserRecord returns an empty record with an initialized trip map.
func NewUserRecord() UserRecord {
	return UserRecord{Trips: make(map[string]Trip)}
}

// Clone deep-copies the record so callers can mutate it freely.
func (r UserRecord) Clone() UserRecord {
	out := UserRecord{
		Trips:         make(map[string]Trip, len(r.Trips)),
		Notifications: r.Notifications,
	}
	for name, t := range r.Trips {
		out.Trips[name] = t.Clone()
	}
	if r.Profile != nil {
		p := *r.Profile
		out.Profile = &p
	}
	return out
}

// SortedTrips enumerates trips by start date, then by name.
func (r UserRecord) SortedTrips() []NamedTrip {
	out := make([]NamedTrip, 0, len(r.Trips))
	for name, t := range r.Trips {
		out = append(out, NamedTrip{Name: name, Trip: t.Clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Trip.StartDate, out[j].Trip.StartDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// HasTrip reports whether name is already used.
func (r UserRecord) HasTrip(name string) bool {
	_, ok := r.Trips[name]
	return ok
}

// FileCount sums attachments over all trips.
func (r UserRecord) FileCount() int {
	n := 0
	for _, t := range r.Trips {
		n += len(t.Files)
	}
	return n
}

// AddTrip inserts a new trip and refuses to overwrite an existing name.
func (r *UserRecord) AddTrip(name string, t Trip) error {
	if r.Trips == nil {
		r.Trips = make(map[string]Trip)
	}
	if r.HasTrip(name) {
		return fmt.Errorf("trip %q: %w", name, ErrDuplicate)
	}
	r.Trips[name] = t.Clone()
	return nil
}

// RenameTrip moves a trip to a new key carrying every field over unchanged.
func (r *UserRecord) RenameTrip(oldName, newName string) error {
	t, ok := r.Trips[oldName]
	if !ok {
		return fmt.Errorf("trip %q: %w", oldName, ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if r.HasTrip(newName) {
		return fmt.Errorf("trip %q: %w", newName, ErrDuplicate)
	}
	delete(r.Trips, oldName)
	r.Trips[newName] = t
	return nil
}

// UpdateTrip applies fn to an existing trip.
func (r *UserRecord) UpdateTrip(name string, fn func(*Trip)) error {
	t, ok := r.Trips[name]
	if !ok {
		return fmt.Errorf("trip %q: %w", name, ErrNotFound)
	}
	fn(&t)
	r.Trips[name] = t
	return nil
}

// AttachFile appends a file reference to an existing trip.
func (r *UserRecord) AttachFile(name string, ref FileRef) error {
	return r.UpdateTrip(name, func(t *Trip) {
		t.Files = append(t.Files, ref)
	})
}
