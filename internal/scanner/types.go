package scanner

import "strings"

// Metric is a kind of sensor reading.
type Metric int

const (
	Temperature Metric = iota + 1
	Humidity
	Battery
)

// String returns the metric name, as used in log keys.
func (m Metric) String() string {
	switch m {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Battery:
		return "battery"
	default:
		return "unknown"
	}
}

// Metrics lists every metric in a stable order.
var Metrics = []Metric{Temperature, Humidity, Battery}

// Peripheral identifies the radio device a reading came from.
// Some platforms expose an opaque ID instead of a hardware address.
type Peripheral struct {
	Address string
	ID      string
}

// Identity returns the address, or the ID when no address is known.
func (p Peripheral) Identity() string {
	if p.Address != "" {
		return p.Address
	}
	return p.ID
}

// EventKind tags an Event.
type EventKind int

const (
	TemperatureChanged EventKind = iota + 1
	HumidityChanged
	BatteryChanged
	Error
)

// String returns the event kind name for logging.
func (k EventKind) String() string {
	switch k {
	case TemperatureChanged:
		return "temperature_changed"
	case HumidityChanged:
		return "humidity_changed"
	case BatteryChanged:
		return "battery_changed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ChangeKind returns the change event kind for a metric.
func ChangeKind(m Metric) EventKind {
	switch m {
	case Temperature:
		return TemperatureChanged
	case Humidity:
		return HumidityChanged
	case Battery:
		return BatteryChanged
	default:
		return 0
	}
}

// Event is a single notification from a device session.
// Value is set for change events; Err is set for Error events.
type Event struct {
	Kind       EventKind
	Value      float64
	Peripheral Peripheral
	Err        error
}

// Metric returns the metric a change event carries.
// The second result is false for Error events.
func (e Event) Metric() (Metric, bool) {
	switch e.Kind {
	case TemperatureChanged:
		return Temperature, true
	case HumidityChanged:
		return Humidity, true
	case BatteryChanged:
		return Battery, true
	default:
		return 0, false
	}
}

// Options are per-device session options.
type Options struct {
	// BindKey decrypts encrypted advertisements. Optional.
	BindKey string
}

// Session delivers events for one device.
type Session interface {
	// Events returns the device's event stream.
	// The channel is closed when the session or its scanner is closed.
	Events() <-chan Event

	// Close stops delivery. Safe to call more than once.
	Close() error
}

// PowerState is the state of the radio.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PoweredOn
	PoweredOff
)

// String returns the power state name for logging.
func (s PowerState) String() string {
	switch s {
	case PoweredOn:
		return "powered_on"
	case PoweredOff:
		return "powered_off"
	default:
		return "unknown"
	}
}

// Scanner opens device sessions and reports radio power changes.
type Scanner interface {
	// Open starts a session for the device at address.
	Open(address string, opts Options) (Session, error)

	// PowerStates returns the radio power notifications.
	PowerStates() <-chan PowerState
}

// Value is one decoded metric in an advertisement.
type Value struct {
	Metric Metric
	Value  float64
}

// Advertisement is a decoded broadcast from one peripheral.
// Either Values or Err is set.
type Advertisement struct {
	Peripheral Peripheral
	Values     []Value
	Err        error
}

// normaliseAddress makes addresses comparable regardless of case.
func normaliseAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
