package conversation

import (
	"fmt"
	"strings"

	"github.com/m3rciful/tripbot/internal/domain"
)

const (
	promptTripName      = "✏️ What is the trip called?"
	promptDestination   = "🌍 What is the destination of the trip?"
	promptStartDate     = "📅 When does the trip start? (format YYYY-MM-DD)"
	promptEndDate       = "📅 When does the trip end? (format YYYY-MM-DD)"
	promptDocuments     = "📎 Send the trip documents as files. Write /finish to save the trip or /cancel to discard it."
	promptDocumentMore  = "✅ File received. Send more, write /finish to save or /cancel to discard."
	promptDocumentsOnly = "❗ Please send documents as files, or write /finish when you are done."

	msgInvalidDate    = "❌ Invalid date. Use the format YYYY-MM-DD."
	msgEndBeforeStart = "❌ The end date cannot be before the start date. Try again."
	msgEmptyText      = "❗ Please send a non-empty text."
	msgTextOnly       = "❗ Please answer with a text message."
	msgNotYet         = "⚠️ The trip is not complete yet. Answer the question above or write /cancel."

	promptSelectField = "🛠️ Which field do you want to edit?\nSend one of: title, start-date, end-date, documents"
	msgInvalidField   = "❌ Invalid option. Send: title, start-date, end-date or documents."
	msgInvalidIndex   = "❌ Invalid number. Try again."
	promptNewTitle    = "✏️ Send the new title:"
	promptNewStart    = "✏️ Send the new start date (YYYY-MM-DD):"
	promptNewEnd      = "✏️ Send the new end date (YYYY-MM-DD):"
	promptEditDocs    = "📎 Send the new documents. Write /finish when you are done or /cancel to exit."
	promptAfterEdit   = "What do you want to do now?\n1️⃣ Keep editing this trip\n2️⃣ Pick another trip\n3️⃣ Finish editing\n\nSend 1, 2 or 3:"
	msgInvalidChoice  = "❌ Invalid option. Send 1, 2 or 3."
	msgEditDone       = "✅ Editing finished."
	msgNoTrips        = "📭 You have no saved trips."
	msgTripUpdated    = "✅ The trip was updated.\n\n" + promptAfterEdit
	msgDocumentsAdded = "✅ Documents added.\n\n" + promptAfterEdit

	promptFirstName    = "📝 Let's fill in your profile.\n\nPlease send your first name:"
	promptLastName     = "Now send your last name:"
	promptBirthDate    = "Send your birth date (format YYYY-MM-DD):"
	promptCertificates = "Do you have any certificates to add? If not, send 'none'."
	msgProfileSaved    = "✅ Your profile has been saved."
	msgProfileFinished = "✅ Form finished and profile saved."
	msgNoBirthDate     = "❌ You have not entered your birth date yet, so the form cannot be finished."

	msgCancelled = "❌ Operation cancelled."
)

func tripSaved(name string) string { return fmt.Sprintf("✅ Trip '%s' saved.", name) }

func tripSavedOn(name string, d domain.Date) string {
	return fmt.Sprintf("✅ Trip '%s' saved for %s.", name, d)
}

func tripExists(name string) string {
	return fmt.Sprintf("❌ A trip named '%s' already exists. Choose another name.", name)
}

func fileAttached(name string) string {
	return fmt.Sprintf("✅ File saved to '%s'. Send more, write /finish when you are done or /cancel to exit.", name)
}

func tripList(snapshot []domain.NamedTrip) string {
	var b strings.Builder
	b.WriteString("📝 Your saved trips:\n")
	for i, nt := range snapshot {
		fmt.Fprintf(&b, "%d. %s (%s → %s)\n", i+1, nt.Name, nt.Trip.StartDate, nt.Trip.EndDate)
	}
	b.WriteString("\n📌 Send the number of the trip you want to edit:")
	return b.String()
}
