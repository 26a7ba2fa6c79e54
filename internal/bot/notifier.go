package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/telegram/sender"
)

// Messenger is the part of *tele.Bot used to reach a user outside an update.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier delivers scheduled texts, retrying transient failures through the
// sender dispatcher when one is configured.
type Notifier struct {
	api  Messenger
	disp *sender.Dispatcher
}

// NewNotifier constructs a Notifier. disp may be nil.
func NewNotifier(api Messenger, disp *sender.Dispatcher) *Notifier {
	return &Notifier{api: api, disp: disp}
}

// SendText sends text to the private chat of userID.
func (n *Notifier) SendText(ctx context.Context, userID int64, text string) error {
	run := func() error {
		_, err := n.api.Send(&tele.User{ID: userID}, text)
		return err
	}
	if n.disp == nil {
		return run()
	}
	return n.disp.Do(ctx, "reminder.send", "sendMessage", run)
}
