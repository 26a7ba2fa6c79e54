package bot

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/domain"
)

// InProgress reports whether free text from userID belongs to a conversation.
func (h *Handlers) InProgress(userID int64) bool {
	_, _, ok := h.flows.Active(userID)
	return ok
}

// HandleText feeds the message text to the user's conversation.
func (h *Handlers) HandleText(c tele.Context) error {
	return h.dispatch(c, conversation.TextEvent(c.Text()))
}

// HandleDocument feeds an uploaded document to the user's conversation.
func (h *Handlers) HandleDocument(c tele.Context) error {
	ref, ok := fileRef(c)
	if !ok {
		return nil
	}
	return h.dispatch(c, conversation.FileEvent(ref))
}

func (h *Handlers) finish(c tele.Context) error {
	return h.dispatch(c, conversation.FinishEvent())
}

func (h *Handlers) dispatch(c tele.Context, ev conversation.Event) error {
	text, err := h.flows.Dispatch(h.ctx(c), userID(c), ev)
	if errors.Is(err, conversation.ErrNoSession) {
		if ev.Kind == conversation.EventFinish {
			return reply(c, MsgNothingToEnd)
		}
		return reply(c, MsgUnknownText)
	}
	if err != nil {
		return err
	}
	return reply(c, text)
}

// attach handles a document sent outside any conversation: the caption names
// the trip it belongs to.
func (h *Handlers) attach(c tele.Context) error {
	ref, ok := fileRef(c)
	if !ok {
		return nil
	}
	text, err := h.trips.Attach(h.ctx(c), userID(c), c.Message().Caption, ref)
	if err != nil {
		return err
	}
	return reply(c, text)
}

func fileRef(c tele.Context) (domain.FileRef, bool) {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		return domain.FileRef{}, false
	}
	return domain.FileRef{ID: msg.Document.FileID, Name: msg.Document.FileName}, true
}
