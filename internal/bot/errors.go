package bot

import (
	"context"
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/logger"
	tghelpers "github.com/m3rciful/tripbot/core/telegram/helpers"
	"github.com/m3rciful/tripbot/internal/domain"
)

// OnError is the bot-wide error hook. Store failures and panics end up here;
// the user gets a generic apology and the session keeps its previous state.
func OnError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}

	code := "internal"
	var se *domain.StoreError
	if errors.As(err, &se) {
		code = se.Code()
	}
	logger.Error(ctx, "tg", "handler.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		slog.String("err_code", code),
		slog.String("handler", logger.HandlerFrom(ctx)),
	)

	if c == nil || c.Sender() == nil {
		return
	}
	if sendErr := c.Send(MsgError); sendErr != nil {
		logger.Warn(ctx, "tg", "handler.error_reply_failed",
			slog.String("err", sendErr.Error()),
		)
	}
}

// Reject answers users that are not on the allow list.
func Reject(message string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Send(message)
	}
}
