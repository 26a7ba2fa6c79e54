package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/metrics"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing.
// The panic is turned into an error so the bot's OnError hook still answers the user.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.Error("panic recovered",
					slog.String("event", "tg.panic"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				metrics.Updates.WithLabelValues(UpdateKind(c), "panic").Inc()
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return next(c)
	}
}
