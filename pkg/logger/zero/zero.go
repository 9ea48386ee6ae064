// Package zero adapts a zerolog.Logger to the logger.Logger interface.
// The terminal adapter uses it for file logging, where zerolog's JSON
// output and sync writer are a better fit than a bare slog handler.
package zero

import (
	"fmt"

	"github.com/rs/zerolog"
)

type Handler struct {
	logger zerolog.Logger
}

func New(l zerolog.Logger) *Handler {
	return &Handler{logger: l}
}

func (h *Handler) Error(msg string, args ...any) {
	emit(h.logger.Error(), msg, args)
}

func (h *Handler) Warn(msg string, args ...any) {
	emit(h.logger.Warn(), msg, args)
}

func (h *Handler) Info(msg string, args ...any) {
	emit(h.logger.Info(), msg, args)
}

func (h *Handler) Debug(msg string, args ...any) {
	emit(h.logger.Debug(), msg, args)
}

func emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
