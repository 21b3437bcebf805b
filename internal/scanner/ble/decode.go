package ble

import (
	"crypto/aes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pion/dtls/v2/pkg/crypto/ccm"

	"github.com/nerrad567/gray-logic-hygrobridge/internal/scanner"
)

// Service data UUIDs carrying sensor readings.
const (
	// environmentalSensingUUID is used by the ATC1441 and pvvx custom firmware.
	environmentalSensingUUID uint16 = 0x181A

	// miBeaconUUID is used by the stock Xiaomi firmware.
	miBeaconUUID uint16 = 0xFE95
)

// Custom firmware frame lengths (service data without the UUID).
const (
	atc1441Length       = 13
	pvvxLength          = 15
	pvvxEncryptedLength = 11
	atcEncryptedLength  = 8
)

// MiBeacon frame control bits.
const (
	miFlagEncrypted  = 0x0008
	miFlagMAC        = 0x0010
	miFlagCapability = 0x0020
	miFlagObject     = 0x0040
	miCapabilityIO   = 0x20
)

// MiBeacon v4/v5 encryption (AES-128-CCM).
const (
	miMinEncryptedVersion = 4
	miNonceSize           = 12
	miTagSize             = 4
	miExtCounterSize      = 3
	miBindKeySize         = 16
)

// miAAD is the associated data authenticated with every v4/v5 frame.
var miAAD = []byte{0x11}

// deviceKey holds what is needed to decrypt one peripheral's frames.
type deviceKey struct {
	// bindKey is the 16-byte AES key, nil when none is configured.
	bindKey []byte

	// mac is the advertiser address in MiBeacon byte order (reversed),
	// nil when it could not be parsed.
	mac []byte
}

// newDeviceKey builds a deviceKey from a textual address and a hex bind
// key. Invalid input leaves the matching field nil.
func newDeviceKey(address, bindKey string) deviceKey {
	var k deviceKey
	if key, err := hex.DecodeString(bindKey); err == nil && len(key) == miBindKeySize {
		k.bindKey = key
	}
	if mac, err := hex.DecodeString(strings.ReplaceAll(address, ":", "")); err == nil && len(mac) == 6 {
		for i, j := 0, len(mac)-1; i < j; i, j = i+1, j-1 {
			mac[i], mac[j] = mac[j], mac[i]
		}
		k.mac = mac
	}
	return k
}

// MiBeacon object IDs.
const (
	miObjectTemperature  = 0x1004
	miObjectHumidity     = 0x1006
	miObjectBattery      = 0x100A
	miObjectTempHumidity = 0x100D
)

// decodeServiceData decodes one service data element into readings.
//
// Returns:
//   - []scanner.Value: Decoded readings (never empty on success)
//   - error: ErrEncryptedAdvertisement for encrypted frames that cannot be
//     decrypted, ErrDecryptionFailed when the bind key does not match,
//     ErrUnsupportedAdvertisement for anything else not understood
func decodeServiceData(uuid uint16, data []byte, key deviceKey) ([]scanner.Value, error) {
	switch uuid {
	case environmentalSensingUUID:
		return decodeCustom(data)
	case miBeaconUUID:
		return decodeMiBeacon(data, key)
	default:
		return nil, fmt.Errorf("%w: service 0x%04X", scanner.ErrUnsupportedAdvertisement, uuid)
	}
}

// decodeCustom handles the custom firmware formats under 0x181A.
func decodeCustom(data []byte) ([]scanner.Value, error) {
	switch len(data) {
	case atc1441Length:
		return decodeATC1441(data), nil
	case pvvxLength:
		return decodePVVX(data), nil
	case pvvxEncryptedLength, atcEncryptedLength:
		return nil, scanner.ErrEncryptedAdvertisement
	default:
		return nil, fmt.Errorf("%w: 0x181A frame of %d bytes", scanner.ErrUnsupportedAdvertisement, len(data))
	}
}

// decodeATC1441 decodes the big-endian ATC1441 frame:
//
//	mac[6] temp int16 (0.1 °C) humidity uint8 (%) battery uint8 (%) mV uint16 counter uint8
func decodeATC1441(data []byte) []scanner.Value {
	temp := int16(binary.BigEndian.Uint16(data[6:8]))
	return []scanner.Value{
		{Metric: scanner.Temperature, Value: float64(temp) / 10},
		{Metric: scanner.Humidity, Value: float64(data[8])},
		{Metric: scanner.Battery, Value: float64(data[9])},
	}
}

// decodePVVX decodes the little-endian pvvx frame:
//
//	mac[6] temp int16 (0.01 °C) humidity uint16 (0.01 %) mV uint16 battery uint8 (%) counter uint8 flags uint8
func decodePVVX(data []byte) []scanner.Value {
	temp := int16(binary.LittleEndian.Uint16(data[6:8]))
	humidity := binary.LittleEndian.Uint16(data[8:10])
	return []scanner.Value{
		{Metric: scanner.Temperature, Value: float64(temp) / 100},
		{Metric: scanner.Humidity, Value: float64(humidity) / 100},
		{Metric: scanner.Battery, Value: float64(data[12])},
	}
}

// decodeMiBeacon decodes a MiBeacon frame carrying one object. Encrypted
// v4/v5 frames are decrypted with the device's bind key.
//
//	frctrl[2] product[2] counter[1] [mac[6]] [capability[1] [io[2]]] object... [ext counter[3] mic[4]]
func decodeMiBeacon(data []byte, key deviceKey) ([]scanner.Value, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: short MiBeacon frame", scanner.ErrUnsupportedAdvertisement)
	}
	frameControl := binary.LittleEndian.Uint16(data[0:2])
	if frameControl&miFlagObject == 0 {
		return nil, fmt.Errorf("%w: MiBeacon frame without object", scanner.ErrUnsupportedAdvertisement)
	}

	offset := 5
	mac := key.mac
	if frameControl&miFlagMAC != 0 {
		if len(data) < offset+6 {
			return nil, fmt.Errorf("%w: truncated MiBeacon frame", scanner.ErrUnsupportedAdvertisement)
		}
		mac = data[offset : offset+6]
		offset += 6
	}
	if frameControl&miFlagCapability != 0 {
		if len(data) <= offset {
			return nil, fmt.Errorf("%w: truncated MiBeacon frame", scanner.ErrUnsupportedAdvertisement)
		}
		capability := data[offset]
		offset++
		if capability&miCapabilityIO != 0 {
			offset += 2
		}
	}
	if len(data) < offset {
		return nil, fmt.Errorf("%w: truncated MiBeacon frame", scanner.ErrUnsupportedAdvertisement)
	}

	object := data[offset:]
	if frameControl&miFlagEncrypted != 0 {
		plain, err := decryptMiBeacon(data, offset, int(frameControl>>12), mac, key.bindKey)
		if err != nil {
			return nil, err
		}
		object = plain
	}
	return decodeMiObject(object)
}

// decryptMiBeacon opens the AES-CCM payload of a v4/v5 frame whose object
// starts at offset. The nonce is mac + product + counter + ext counter.
func decryptMiBeacon(data []byte, offset, version int, mac, bindKey []byte) ([]byte, error) {
	if version < miMinEncryptedVersion {
		return nil, fmt.Errorf("%w: MiBeacon v%d encryption is not supported", scanner.ErrEncryptedAdvertisement, version)
	}
	if len(bindKey) != miBindKeySize {
		return nil, scanner.ErrEncryptedAdvertisement
	}
	if len(mac) != 6 {
		return nil, fmt.Errorf("%w: advertiser address unknown", scanner.ErrEncryptedAdvertisement)
	}
	trailer := miExtCounterSize + miTagSize
	if len(data) < offset+trailer+3 {
		return nil, fmt.Errorf("%w: truncated encrypted MiBeacon frame", scanner.ErrUnsupportedAdvertisement)
	}

	extCounter := data[len(data)-trailer : len(data)-miTagSize]
	sealed := data[offset : len(data)-trailer]
	tag := data[len(data)-miTagSize:]

	nonce := make([]byte, 0, miNonceSize)
	nonce = append(nonce, mac...)
	nonce = append(nonce, data[2:5]...)
	nonce = append(nonce, extCounter...)

	block, err := aes.NewCipher(bindKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scanner.ErrDecryptionFailed, err)
	}
	aead, err := ccm.NewCCM(block, miTagSize, miNonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scanner.ErrDecryptionFailed, err)
	}

	ciphertext := make([]byte, 0, len(sealed)+len(tag))
	ciphertext = append(ciphertext, sealed...)
	ciphertext = append(ciphertext, tag...)
	plain, err := aead.Open(nil, nonce, ciphertext, miAAD)
	if err != nil {
		return nil, fmt.Errorf("%w: check the bind key", scanner.ErrDecryptionFailed)
	}
	return plain, nil
}

// decodeMiObject decodes one object: id[2] size[1] value[size].
func decodeMiObject(object []byte) ([]scanner.Value, error) {
	if len(object) < 3 {
		return nil, fmt.Errorf("%w: truncated MiBeacon frame", scanner.ErrUnsupportedAdvertisement)
	}
	objectID := binary.LittleEndian.Uint16(object[0:2])
	size := int(object[2])
	payload := object[3:]
	if len(payload) < size {
		return nil, fmt.Errorf("%w: truncated MiBeacon object", scanner.ErrUnsupportedAdvertisement)
	}
	payload = payload[:size]

	switch {
	case objectID == miObjectTemperature && size == 2:
		return []scanner.Value{{Metric: scanner.Temperature, Value: float64(int16(binary.LittleEndian.Uint16(payload))) / 10}}, nil
	case objectID == miObjectHumidity && size == 2:
		return []scanner.Value{{Metric: scanner.Humidity, Value: float64(binary.LittleEndian.Uint16(payload)) / 10}}, nil
	case objectID == miObjectBattery && size == 1:
		return []scanner.Value{{Metric: scanner.Battery, Value: float64(payload[0])}}, nil
	case objectID == miObjectTempHumidity && size == 4:
		return []scanner.Value{
			{Metric: scanner.Temperature, Value: float64(int16(binary.LittleEndian.Uint16(payload[0:2]))) / 10},
			{Metric: scanner.Humidity, Value: float64(binary.LittleEndian.Uint16(payload[2:4])) / 10},
		}, nil
	default:
		return nil, fmt.Errorf("%w: MiBeacon object 0x%04X", scanner.ErrUnsupportedAdvertisement, objectID)
	}
}
