// Package bot adapts the conversation manager and the trip service to
// telebot: it registers the commands, routes free text and documents into
// the active conversation and answers errors.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/tripbot/core/telegram/helpers"
	"github.com/m3rciful/tripbot/internal/calendar"
	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/trips"
)

const (
	MsgError           = "An error occurred, please try again."
	MsgNothingToEnd    = "ℹ️ There is nothing to finish right now."
	MsgUnknownText     = "🤔 I did not get that. Send /help to see what I can do."
	MsgCalendarCaption = "🗓 Your trips as a calendar file."
	msgWelcome         = "👋 Hi! I keep your trips, their documents and your profile in one place.\n\n"
	msgHelpHeader      = "Available commands:\n"
)

// Handlers holds the services behind every command.
type Handlers struct {
	flows *conversation.Manager
	trips *trips.Service
	now   func() time.Time
}

// New constructs Handlers.
func New(flows *conversation.Manager, svc *trips.Service) *Handlers {
	return &Handlers{flows: flows, trips: svc, now: time.Now}
}

// Register adds every command and the text/document fallbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{Handler: h.welcome(reg), Description: "Start the bot", Hidden: true})
	reg.RegisterCommand("/help", commands.Command{Handler: h.help(reg), Description: "Show available commands"})
	reg.RegisterCommand("/addtrip", commands.Command{
		Handler:     h.startFlow(conversation.KindAddTrip),
		Description: "Add a trip (or /addtrip <name> <YYYY-MM-DD>)",
		Aliases:     []string{"newtrip"},
	})
	reg.RegisterCommand("/edittrip", commands.Command{Handler: h.startFlow(conversation.KindEditTrip), Description: "Edit a saved trip"})
	reg.RegisterCommand("/infoform", commands.Command{
		Handler:     h.startFlow(conversation.KindProfile),
		Description: "Fill in your profile",
		Aliases:     []string{"profileform"},
	})
	reg.RegisterCommand("/finish", commands.Command{Handler: h.finish, Description: "Finish adding documents"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: h.cancel, Description: "Cancel the current action"})
	reg.RegisterCommand("/listtrips", commands.Command{Handler: h.listTrips, Description: "List saved trips"})
	reg.RegisterCommand("/myprofile", commands.Command{Handler: h.myProfile, Description: "Show your profile"})
	reg.RegisterCommand("/calendar", commands.Command{Handler: h.exportCalendar, Description: "Export trips as an .ics file"})
	reg.RegisterCommand("/startnotifications", commands.Command{Handler: h.notifications(true), Description: "Enable trip reminders"})
	reg.RegisterCommand("/stopnotifications", commands.Command{Handler: h.notifications(false), Description: "Disable trip reminders"})
	reg.RegisterCommand("/getid", commands.Command{Handler: h.getID, Description: "Show your Telegram ID"})

	reg.SetTextFallback(h.unknownText)
	reg.SetDocumentFallback(h.attach)
}

func userID(c tele.Context) int64 {
	return tghelpers.UserID(c)
}

func reply(c tele.Context, text string) error {
	return tghelpers.SendText(c, text)
}

func (h *Handlers) ctx(c tele.Context) context.Context {
	return tghelpers.BuildContext(c)
}

func helpText(reg *tg.Registry) string {
	var b strings.Builder
	b.WriteString(msgHelpHeader)
	for _, cmd := range reg.ListCommands(true) {
		fmt.Fprintf(&b, "/%s - %s\n", cmd.Text, cmd.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handlers) welcome(reg *tg.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		return reply(c, msgWelcome+helpText(reg))
	}
}

func (h *Handlers) help(reg *tg.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		return reply(c, helpText(reg))
	}
}

func (h *Handlers) startFlow(kind conversation.Kind) tele.HandlerFunc {
	return func(c tele.Context) error {
		text, err := h.flows.Start(h.ctx(c), userID(c), kind, c.Args()...)
		if err != nil {
			return fmt.Errorf("start %s: %w", kind, err)
		}
		return reply(c, text)
	}
}

func (h *Handlers) cancel(c tele.Context) error {
	return reply(c, h.flows.Cancel(h.ctx(c), userID(c)))
}

func (h *Handlers) listTrips(c tele.Context) error {
	text, err := h.trips.List(h.ctx(c), userID(c))
	if err != nil {
		return err
	}
	return reply(c, text)
}

func (h *Handlers) myProfile(c tele.Context) error {
	text, err := h.trips.Profile(h.ctx(c), userID(c))
	if err != nil {
		return err
	}
	return reply(c, text)
}

func (h *Handlers) notifications(on bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		text, err := h.trips.SetNotifications(h.ctx(c), userID(c), on)
		if err != nil {
			return err
		}
		return reply(c, text)
	}
}

func (h *Handlers) getID(c tele.Context) error {
	return reply(c, fmt.Sprintf("🆔 Your Telegram ID: %d", userID(c)))
}

func (h *Handlers) exportCalendar(c tele.Context) error {
	id := userID(c)
	list, err := h.trips.Trips(h.ctx(c), id)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return reply(c, trips.MsgNoTrips)
	}
	doc := &tele.Document{
		File:     tele.FromReader(strings.NewReader(calendar.Export(id, list, h.now()))),
		FileName: calendar.FileName,
		MIME:     "text/calendar",
		Caption:  MsgCalendarCaption,
	}
	return tghelpers.SendDocument(c, doc)
}

func (h *Handlers) unknownText(c tele.Context) error {
	return reply(c, MsgUnknownText)
}
