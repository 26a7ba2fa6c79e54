package router

import (
	"log/slog"

	"github.com/m3rciful/tripbot/core/logger"
	tg "github.com/m3rciful/tripbot/core/telegram"
)

// CommandRoutes binds every registered command to its handler, wrapped with
// the handler summary log.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for cmd, def := range cmds {
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  withSummary(normalizeHandlerName(cmd), def.Handler),
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(cmds)),
	)
	return routes
}
