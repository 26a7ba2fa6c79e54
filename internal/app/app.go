// Package app assembles the store, the conversation manager, the Telegram
// routes and the background jobs into one runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	coreconfig "github.com/m3rciful/tripbot/core/config"
	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/metrics"
	coretelegram "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/core/telegram/router"
	"github.com/m3rciful/tripbot/internal/bot"
	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/reminder"
	"github.com/m3rciful/tripbot/internal/store"
	"github.com/m3rciful/tripbot/internal/trips"
)

// App owns the long-lived components of a running bot.
type App struct {
	cfg      *coreconfig.Config
	store    *store.DocStore
	flows    *conversation.Manager
	handlers *bot.Handlers

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the services on top of st.
func New(cfg *coreconfig.Config, st *store.DocStore) *App {
	flows := conversation.NewManager(st)
	return &App{
		cfg:      cfg,
		store:    st,
		flows:    flows,
		handlers: bot.New(flows, trips.NewService(st)),
	}
}

// Registry builds the command registry with every bot command.
func (a *App) Registry() *coretelegram.Registry {
	reg := coretelegram.NewRegistry()
	a.handlers.Register(reg)
	return reg
}

// TelegramRunOptions composes middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if a.cfg == nil || a.store == nil {
		return coretelegram.RunOptions{}, errors.New("app: config and store are required")
	}
	reg := a.Registry()

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(a.handlers, reg)...)

	return coretelegram.RunOptions{
		Config:   a.cfg,
		Registry: reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, coretelegram.MiddlewareHooks{
			OnReject: bot.Reject(a.cfg.Access.RejectMessage),
		}),
		Routes:  routes,
		OnError: bot.OnError,
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	bg, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if !a.cfg.Reminder.Disabled {
		if rt.Bot == nil {
			cancel()
			return errors.New("app: reminder needs a bot to send through")
		}
		a.goRun("reminder", func() error {
			return a.Scheduler(bot.NewNotifier(rt.Bot, rt.Dispatcher)).Run(bg)
		})
	}

	if listen := a.cfg.Metrics.Listen; listen != "" {
		a.goRun("ops", func() error {
			return metrics.Serve(bg, listen, a.health)
		})
	}
	return nil
}

// Scheduler builds the daily reminder job sending through sender.
func (a *App) Scheduler(sender reminder.Sender) *reminder.Scheduler {
	hour, minute := a.cfg.Reminder.Clock()
	return reminder.New(a.store, sender, reminder.Options{
		Hour:     hour,
		Minute:   minute,
		Location: a.cfg.Reminder.Location(),
	})
}

func (a *App) goRun(name string, fn func() error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
			logger.L.With("component", "app").Error("background job stopped",
				slog.String("event", "app.job"),
				slog.String("job", name),
				slog.String("err", err.Error()),
			)
		}
	}()
}

func (a *App) stop(context.Context, coretelegram.Runtime) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("app: close store: %w", err)
	}
	return nil
}

// health reports whether the store answers reads.
func (a *App) health(ctx context.Context) error {
	_, err := a.store.Load(ctx, 0)
	return err
}
