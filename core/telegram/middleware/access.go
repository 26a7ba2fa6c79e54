package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/metrics"
)

// AllowList is the set of Telegram user IDs permitted to use the bot.
type AllowList map[int64]struct{}

// NewAllowList builds an AllowList from configured IDs.
func NewAllowList(ids []int64) AllowList {
	a := make(AllowList, len(ids))
	for _, id := range ids {
		a[id] = struct{}{}
	}
	return a
}

// IsAuthorized reports whether userID is on the list.
func (a AllowList) IsAuthorized(userID int64) bool {
	_, ok := a[userID]
	return ok
}

// AccessOptions defines how unauthorized updates are handled.
type AccessOptions struct {
	Authorize func(userID int64) bool
	OnReject  tele.HandlerFunc
}

// AccessMiddleware drops updates from users that Authorize rejects before any
// handler or state change runs.
func AccessMiddleware(opts AccessOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Authorize == nil {
				return next(c)
			}
			user := c.Sender()
			if user != nil && opts.Authorize(user.ID) {
				return next(c)
			}

			var userID int64
			if user != nil {
				userID = user.ID
			}
			logger.TG.Warn("access denied",
				slog.String("event", "tg.access_denied"),
				slog.Int64("user_id", userID),
			)
			metrics.Updates.WithLabelValues(UpdateKind(c), "unauthorized").Inc()
			if opts.OnReject != nil && user != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
