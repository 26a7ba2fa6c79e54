// Package calendar renders a user's trips as an iCalendar document.
package calendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/m3rciful/tripbot/internal/domain"
)

// FileName is the attachment name used for the export.
const FileName = "trips.ics"

const productID = "-//m3rciful//tripbot//EN"

// eventNamespace keeps event UIDs stable across exports.
var eventNamespace = uuid.MustParse("8f4e5d86-6a1c-4c53-9a43-2d0f1c7e9b21")

// EventUID identifies a trip for calendar clients; re-importing updates the
// same event instead of duplicating it.
func EventUID(userID int64, name string) string {
	return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%d/%s", userID, name))).String() + "@tripbot"
}

// Export builds one all-day event per trip. DTEND is exclusive, so the event
// ends the day after the trip's end date.
func Export(userID int64, trips []domain.NamedTrip, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Trips")

	for _, nt := range trips {
		ev := cal.AddEvent(EventUID(userID, nt.Name))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(nt.Name)
		if nt.Trip.Destination != "" {
			ev.SetLocation(nt.Trip.Destination)
		}
		ev.SetAllDayStartAt(nt.Trip.StartDate.Time())
		end := nt.Trip.EndDate
		if end.IsZero() || end.Before(nt.Trip.StartDate) {
			end = nt.Trip.StartDate
		}
		ev.SetAllDayEndAt(end.AddDays(1).Time())
		if n := len(nt.Trip.Files); n > 0 {
			ev.SetDescription(fmt.Sprintf("%d document(s) attached in the bot", n))
		}
	}
	return cal.Serialize()
}
