// Package ble is the Bluetooth Low Energy radio behind the scanner.Hub.
//
// It runs a passive scan on the host adapter (tinygo.org/x/bluetooth) and
// decodes service data from Xiaomi-style thermometers:
//   - ATC1441 custom firmware (UUID 0x181A, 13 bytes, big-endian)
//   - pvvx custom firmware (UUID 0x181A, 15 bytes, little-endian)
//   - stock MiBeacon frames (UUID 0xFE95), plain or encrypted (v4/v5)
//
// Encrypted MiBeacon frames are decrypted with AES-128-CCM using the bind
// key of the device's session. Frames that cannot be decrypted (no bind
// key, legacy MiBeacon encryption, encrypted custom firmware) are reported
// to the session as an error event wrapping scanner.ErrEncryptedAdvertisement;
// a bind key that does not authenticate is scanner.ErrDecryptionFailed.
//
// Only addresses with an open session are decoded.
package ble
