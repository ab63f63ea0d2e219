package eventlog

import (
	"context"
	"log/slog"
)

// SlogAdapter writes connection events to an slog.Logger.
// Useful for development when you want to see connection events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}

	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	// Add type-specific attributes
	switch {
	case event.Exchange != nil:
		attrs = append(attrs,
			slog.String("path", event.Exchange.Path),
			slog.String("code", event.Exchange.Code),
			slog.Int("payload_size", event.Exchange.PayloadSize),
		)
		if event.Exchange.RoundTrip != 0 {
			attrs = append(attrs, slog.Duration("round_trip", event.Exchange.RoundTrip))
		}
	case event.Update != nil:
		attrs = append(attrs,
			slog.String("path", event.Update.Path),
			slog.Int("payload_size", event.Update.PayloadSize),
			slog.Int("attributes", event.Update.Attributes),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "connection", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
