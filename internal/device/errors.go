package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // sensor has never reported
//	}
var (
	// ErrDeviceNotFound is returned when no status exists for an address.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidAddress is returned when an address is empty.
	ErrInvalidAddress = errors.New("device: invalid address")
)
