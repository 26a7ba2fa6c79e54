package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/internal/bot"
	"github.com/m3rciful/tripbot/internal/domain"
	"github.com/m3rciful/tripbot/internal/reminder"
	"github.com/m3rciful/tripbot/internal/store"
)

func newRemindCmd() *cobra.Command {
	var (
		dateFlag string
		send     bool
	)
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Show (or send) the reminders due for trips starting the day after --date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadStorageConfig()
			if err != nil {
				return err
			}
			if err := logger.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()

			today := domain.DateOf(time.Now().In(cfg.Reminder.Location()))
			if dateFlag != "" {
				if today, err = domain.ParseDate(dateFlag); err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}

			ctx := cmd.Context()
			st, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if !send {
				sched := reminder.New(st, nil, reminder.Options{Location: cfg.Reminder.Location()})
				return printPlan(ctx, cmd.OutOrStdout(), sched, today)
			}

			if cfg.Telegram.Token == "" {
				return errors.New("--send needs telegram.token or BOT_TOKEN")
			}
			b, err := tele.NewBot(tele.Settings{Token: cfg.Telegram.Token, Offline: true})
			if err != nil {
				return fmt.Errorf("telegram: %w", err)
			}
			sched := reminder.New(st, bot.NewNotifier(b, nil), reminder.Options{Location: cfg.Reminder.Location()})
			res, err := sched.RunOnce(ctx, today)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "run %s for %s: found=%d skipped=%d sent=%d failed=%d\n",
				res.RunID, res.Date, res.Found, res.Skipped, res.Sent, res.Failed)
			return err
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "Reference day as YYYY-MM-DD (defaults to today in reminder.timezone)")
	cmd.Flags().BoolVar(&send, "send", false, "Deliver the reminders through the bot instead of printing them")
	return cmd
}

func printPlan(ctx context.Context, w io.Writer, sched *reminder.Scheduler, today domain.Date) error {
	due, err := sched.Plan(ctx, today)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		_, err = fmt.Fprintf(w, "no reminders for trips starting %s\n", today.AddDays(1))
		return err
	}
	for _, r := range due {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", r.UserID, r.TripName, reminder.Message(r)); err != nil {
			return err
		}
	}
	return nil
}
