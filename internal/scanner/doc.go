// Package scanner defines how the bridge receives readings from sensors.
//
// A Scanner opens one Session per configured device. Each Session delivers
// tagged Events: a temperature, humidity or battery change carrying the
// value and the Peripheral it came from, or a device-local error. The
// scanner also reports radio power changes on a separate channel.
//
// Hub is the in-process Scanner implementation. A radio adapter (see the
// ble subpackage) decodes advertisements and calls Hub.Dispatch; the Hub
// routes them to the sessions opened for that address. Session channels
// are bounded and the Hub never blocks on a slow consumer: an event that
// does not fit is dropped.
//
// PowerGuard watches the power channel and runs a callback when the radio
// goes off, which the bridge process uses to exit.
package scanner
