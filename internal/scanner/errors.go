package scanner

import "errors"

// Domain-specific errors for sensor scanning.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRadioPoweredOff is returned when the radio is off or was switched off.
	ErrRadioPoweredOff = errors.New("scanner: radio powered off")

	// ErrSessionClosed is returned when opening a session on a closed hub.
	ErrSessionClosed = errors.New("scanner: session closed")

	// ErrUnsupportedAdvertisement is returned for service data that is not a
	// known sensor format.
	ErrUnsupportedAdvertisement = errors.New("scanner: unsupported advertisement")

	// ErrEncryptedAdvertisement is reported when a sensor broadcasts
	// encrypted readings.
	ErrEncryptedAdvertisement = errors.New("scanner: encrypted advertisement")

	// ErrDecryptionFailed is reported when an encrypted advertisement does
	// not authenticate with the configured bind key.
	ErrDecryptionFailed = errors.New("scanner: decryption failed")
)
