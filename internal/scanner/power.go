package scanner

import (
	"context"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// PowerGuard runs a callback when the radio reports it is powered off.
type PowerGuard struct {
	scanner    Scanner
	onPowerOff func()
	logger     Logger
}

// NewPowerGuard creates a guard over scanner. onPowerOff must not be nil.
func NewPowerGuard(scanner Scanner, onPowerOff func()) *PowerGuard {
	return &PowerGuard{
		scanner:    scanner,
		onPowerOff: onPowerOff,
	}
}

// SetLogger sets the logger for power state changes.
func (g *PowerGuard) SetLogger(logger Logger) {
	g.logger = logger
}

// Watch blocks until the radio powers off or ctx is cancelled.
// It returns ErrRadioPoweredOff after invoking the callback.
func (g *PowerGuard) Watch(ctx context.Context) error {
	states := g.scanner.PowerStates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-states:
			if !ok {
				return nil
			}
			if state != PoweredOff {
				if g.logger != nil {
					g.logger.Info("radio power state changed", "state", state.String())
				}
				continue
			}
			if g.logger != nil {
				g.logger.Error("radio powered off, no further readings are possible")
			}
			g.onPowerOff()
			return ErrRadioPoweredOff
		}
	}
}
