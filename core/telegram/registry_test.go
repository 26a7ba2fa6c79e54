package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/tripbot/core/config"
	"github.com/m3rciful/tripbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/listtrips", commands.Command{Handler: noop, Description: "List trips"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start", Hidden: true})
	reg.RegisterCommand("/addtrip", commands.Command{Handler: noop, Description: "Add", Aliases: []string{"newtrip"}})
	reg.RegisterCommand("nosslash", commands.Command{Handler: noop, Description: "skipped"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})
	reg.RegisterCommand("/addtrip", commands.Command{Handler: noop, Description: "duplicate"})

	assert.Len(t, reg.Commands(), 3)
	assert.Equal(t, []tele.Command{
		{Text: "addtrip", Description: "Add"},
		{Text: "listtrips", Description: "List trips"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)

	key, cmd, ok := reg.LookupCommand("/newtrip@trip_bot Rome 2025-06-01")
	require.True(t, ok)
	assert.Equal(t, "/addtrip", key)
	assert.Equal(t, "Add", cmd.Description)

	key, _, ok = reg.LookupCommand("listtrips")
	require.True(t, ok)
	assert.Equal(t, "/listtrips", key)

	_, _, ok = reg.LookupCommand("")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("/unknown")
	assert.False(t, ok)
}

func TestBuildPoller(t *testing.T) {
	cfg := &coreconfig.Config{Telegram: coreconfig.TelegramConfig{RunMode: "longpoll"}}
	lp, ok := BuildPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)
	assert.Equal(t, []string{"message"}, lp.AllowedUpdates)

	cfg.Telegram.LongPollTimeoutSeconds = 25
	lp = BuildPoller(cfg).(*tele.LongPoller)
	assert.Equal(t, 25*time.Second, lp.Timeout)

	cfg = &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: " Webhook "},
		Webhook:  coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook", Secret: "s3"},
	}
	wh, ok := BuildPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "s3", wh.SecretToken)
	assert.Equal(t, "https://bot.example.com/hook", wh.Endpoint.PublicURL)
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	names := func(mws []Middleware) []string {
		out := make([]string, 0, len(mws))
		for _, mw := range mws {
			out = append(out, mw.Name)
		}
		return out
	}
	assert.Equal(t, []string{"recover", "metrics", "logger"}, names(DefaultMiddlewares(nil, MiddlewareHooks{})))

	cfg := &coreconfig.Config{
		Access:    coreconfig.AccessConfig{AllowedUsers: []int64{1}},
		RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500},
	}
	assert.Equal(t, []string{"recover", "metrics", "access", "rate_limit", "logger"}, names(DefaultMiddlewares(cfg, MiddlewareHooks{})))

	cfg.RateLimit.IntervalMS = 0
	assert.Equal(t, []string{"recover", "metrics", "access", "logger"}, names(DefaultMiddlewares(cfg, MiddlewareHooks{})))
}
