package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/3ll3d00d/jriver-bridge/mcws"
)

// Do wraps a state mutating command against the media server. On
// success it runs one out of band refresh so callers see the effect
// without waiting for the next scheduled tick. Transient connectivity
// and auth failures are logged and swallowed, a momentary command
// failure should not surface as a crash; anything else propagates.
func (c *Coordinator) Do(ctx context.Context, command, zone string, action func(context.Context) error) error {
	if err := action(ctx); err != nil {
		if errors.Is(err, mcws.ErrCannotConnect) || errors.Is(err, mcws.ErrInvalidAuth) {
			c.logger.Error("Command failed",
				slog.String("command", command),
				slog.String("zone", zone),
				slog.String("error", err.Error()))
			return nil
		}
		return err
	}
	if err := c.Refresh(ctx); err != nil {
		// The command itself succeeded, the next tick retries the
		// refresh anyway.
		c.logger.Debug("Post-command refresh failed",
			slog.String("command", command),
			slog.String("error", err.Error()))
	}
	return nil
}
