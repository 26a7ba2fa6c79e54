package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tripbot/core/telegram"
)

// Conversations is the minimal interface required from a conversation manager.
type Conversations interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
	HandleDocument(c tele.Context) error
}

// TextRoutes builds the text and document handlers. Slash commands typed
// with an alias or a @bot suffix go to the registry and unknown ones to the
// text fallback. Other text from a user with a conversation in progress goes
// to the conversation; the rest reaches the registry fallbacks.
func TextRoutes(conv Conversations, reg *tg.Registry) []tg.Route {
	if reg == nil {
		reg = tg.NewRegistry()
	}
	inProgress := func(c tele.Context) bool {
		return conv != nil && c.Sender() != nil && conv.InProgress(c.Sender().ID)
	}

	fallback := func(c tele.Context, name string) error {
		if fb := reg.TextFallback(); fb != nil {
			return withSummary(name, fb)(c)
		}
		logSummary(c, "unknown_text", time.Now(), "skip", nil)
		return nil
	}

	text := func(c tele.Context) error {
		if t := c.Text(); isCommandText(t) {
			if key, cmd, ok := reg.LookupCommand(t); ok && cmd.Handler != nil {
				return withSummary(normalizeHandlerName(key), cmd.Handler)(c)
			}
			// Unknown commands are never flow answers.
			return fallback(c, "unknown_command")
		}
		if inProgress(c) {
			return withSummary("fsm", conv.HandleText)(c)
		}
		return fallback(c, "fallback")
	}

	document := func(c tele.Context) error {
		if inProgress(c) {
			return withSummary("fsm_document", conv.HandleDocument)(c)
		}
		if fb := reg.DocumentFallback(); fb != nil {
			return withSummary("document", fb)(c)
		}
		logSummary(c, "unexpected_document", time.Now(), "skip", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnDocument, Handler: document},
	}
}

// isCommandText reports whether free text looks like a slash command. Alias
// lookups only apply to such text, so answers like "title" inside a
// conversation never trigger a command.
func isCommandText(text string) bool {
	return len(text) > 1 && text[0] == '/'
}
