package hygro

import "errors"

// Domain errors for the sensor bridge package.
var (
	// ErrNoDevices is returned when a bridge is created without devices.
	ErrNoDevices = errors.New("hygro: no devices configured")

	// ErrAlreadyRunning is returned when Run is called on a running bridge.
	ErrAlreadyRunning = errors.New("hygro: bridge already running")
)
