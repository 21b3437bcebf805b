package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/nerrad567/gray-logic-hygrobridge/internal/scanner"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// radio is the subset of *bluetooth.Adapter used for passive scanning.
type radio interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// serviceData is one service data element from an advertisement.
type serviceData struct {
	uuid uint16
	data []byte
}

// Scanner feeds BLE advertisements from the host adapter into a Hub.
// It implements scanner.Scanner through the embedded Hub.
type Scanner struct {
	*scanner.Hub

	radio  radio
	logger Logger

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Scanner on the default Bluetooth adapter.
func New(hub *scanner.Hub) *Scanner {
	return newScanner(hub, bluetooth.DefaultAdapter)
}

func newScanner(hub *scanner.Hub, r radio) *Scanner {
	return &Scanner{
		Hub:   hub,
		radio: r,
		done:  make(chan struct{}),
	}
}

// SetLogger sets a logger for scan lifecycle messages.
func (s *Scanner) SetLogger(logger Logger) {
	s.logger = logger
}

// Start enables the adapter and begins a passive scan in the background.
//
// The Hub is told PoweredOn once the adapter is enabled. When the scan ends
// for any reason other than ctx being cancelled, the Hub is told PoweredOff.
//
// Parameters:
//   - ctx: Scanning stops when ctx is cancelled
//
// Returns:
//   - error: ErrRadioPoweredOff wrapping the adapter error if it cannot be enabled
func (s *Scanner) Start(ctx context.Context) error {
	if err := s.radio.Enable(); err != nil {
		s.Hub.SetPowerState(scanner.PoweredOff)
		return fmt.Errorf("%w: %w", scanner.ErrRadioPoweredOff, err)
	}
	s.Hub.SetPowerState(scanner.PoweredOn)

	go s.scanLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			s.stop()
		case <-s.done:
		}
	}()

	s.logInfo("ble scan started")
	return nil
}

// Done is closed when scanning has ended.
func (s *Scanner) Done() <-chan struct{} {
	return s.done
}

// scanLoop runs the blocking adapter scan.
func (s *Scanner) scanLoop(ctx context.Context) {
	defer close(s.done)

	err := s.radio.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		s.handleResult(result.Address.String(), serviceDataOf(result))
	})

	if ctx.Err() != nil {
		s.logInfo("ble scan stopped")
		return
	}
	if err == nil {
		err = errors.New("scan ended")
	}
	s.logError("ble scan terminated", err)
	s.Hub.SetPowerState(scanner.PoweredOff)
}

// stop ends the adapter scan once.
func (s *Scanner) stop() {
	s.stopOnce.Do(func() {
		if err := s.radio.StopScan(); err != nil {
			s.logError("stopping ble scan", err)
		}
	})
}

// handleResult decodes an advertisement from a watched address and
// dispatches it to the Hub.
func (s *Scanner) handleResult(address string, elements []serviceData) {
	if !s.Hub.Watching(address) {
		return
	}

	peripheral := scanner.Peripheral{Address: address}
	key := newDeviceKey(address, s.Hub.BindKey(address))
	for _, el := range elements {
		values, err := decodeServiceData(el.uuid, el.data, key)
		switch {
		case err == nil:
			s.Hub.Dispatch(scanner.Advertisement{Peripheral: peripheral, Values: values})
		case errors.Is(err, scanner.ErrUnsupportedAdvertisement):
			s.logDebug("ignoring advertisement", "address", address, "reason", err.Error())
		default:
			s.Hub.Dispatch(scanner.Advertisement{Peripheral: peripheral, Err: err})
		}
	}
}

// serviceDataOf extracts the 16-bit service data elements of a scan result.
func serviceDataOf(result bluetooth.ScanResult) []serviceData {
	elements := result.ServiceData()
	out := make([]serviceData, 0, len(elements))
	for _, el := range elements {
		if !el.UUID.Is16Bit() {
			continue
		}
		out = append(out, serviceData{uuid: el.UUID.Get16Bit(), data: el.Data})
	}
	return out
}

// logDebug logs a debug message if a logger is configured.
func (s *Scanner) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Scanner) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Scanner) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, "error", err)
	}
}
