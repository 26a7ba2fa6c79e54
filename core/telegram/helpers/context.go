package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/logger"
)

const (
	ctxKey = "logger_ctx"
	ridKey = "rid"
)

// IDs returns the update, user and chat ids of c; missing parts are zero.
func IDs(c tele.Context) (updateID int, userID, chatID int64) {
	updateID = c.Update().ID
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	return updateID, userID, chatID
}

// UserID is the Telegram id of the update's sender, or 0.
func UserID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// Begin starts the per-update logging context: it assigns the request id,
// stores it on c and returns the context carrying update metadata.
func Begin(c tele.Context) context.Context {
	updateID, userID, chatID := IDs(c)
	rid := logger.BuildRID(updateID, chatID, userID)
	c.Set(ridKey, rid)
	return store(c, newContext(rid, updateID, userID, chatID))
}

// BuildContext returns the context stored by Begin, or builds one for
// handlers running outside the logger middleware.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok && ctx != nil {
		return ctx
	}
	updateID, userID, chatID := IDs(c)
	rid, _ := c.Get(ridKey).(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}
	return store(c, newContext(rid, updateID, userID, chatID))
}

// WithHandler adds the handler name to the stored context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	return store(c, logger.WithHandler(ctx, handler))
}

func newContext(rid string, updateID int, userID, chatID int64) context.Context {
	ctx := logger.WithRID(logger.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	return logger.WithLogger(ctx, logger.Component("tg"))
}

func store(c tele.Context, ctx context.Context) context.Context {
	c.Set(ctxKey, ctx)
	return ctx
}
