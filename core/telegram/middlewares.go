package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/tripbot/core/config"
	"github.com/m3rciful/tripbot/core/telegram/middleware"
)

// MiddlewareHooks lets the application answer rejected and throttled updates.
type MiddlewareHooks struct {
	OnLimited func(tele.Context) error
	OnReject  func(tele.Context) error
}

// DefaultMiddlewares builds the shared middleware chain for bots. The access
// check runs before rate limiting so strangers never consume a user's slot.
func DefaultMiddlewares(cfg *coreconfig.Config, hooks MiddlewareHooks) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}

	if cfg == nil {
		return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
	}

	allowed := middleware.NewAllowList(cfg.Access.AllowedUsers)
	mws = append(mws, Middleware{
		Name: "access",
		Use: middleware.AccessMiddleware(middleware.AccessOptions{
			Authorize: allowed.IsAuthorized,
			OnReject:  hooks.OnReject,
		}),
	})

	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  interval,
				Exclude:   ex,
				OnLimited: hooks.OnLimited,
			}),
		})
	}

	return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}
