package ble

import (
	"errors"
	"fmt"
)

// Legacy advertising blocks are sequences of length-prefixed AD structures
// capped at 31 bytes. The lamp uses two: a primary block carrying the
// discovery flags and the 16-bit service list, and a scan-response block
// carrying the device name.

const (
	adTypeFlags             = 0x01
	adTypeComplete16Bit     = 0x03
	adTypeShortenedName     = 0x08
	adTypeCompleteName      = 0x09
	flagGeneralDiscoverable = 0x02
	flagNoBREDR             = 0x04

	maxAdvLen = 31
)

// AdvertisingData builds the primary advertising block: general
// discoverable, classic radio unsupported, plus the complete 16-bit
// service UUID list.
func AdvertisingData(services ...uint16) []byte {
	data := make([]byte, 0, maxAdvLen)
	data = append(data, 2, adTypeFlags, flagGeneralDiscoverable|flagNoBREDR)

	if len(services) > 0 {
		data = append(data, byte(1+2*len(services)), adTypeComplete16Bit)
		for _, u := range services {
			data = append(data, byte(u), byte(u>>8))
		}
	}
	return data
}

// ScanResponse builds the scan-response block carrying the device name.
// A name that does not fit the 31-byte budget is truncated and retagged
// as a shortened name.
func ScanResponse(name string) []byte {
	raw := []byte(name)
	adType := byte(adTypeCompleteName)
	if len(raw) > maxAdvLen-2 {
		raw = raw[:maxAdvLen-2]
		adType = adTypeShortenedName
	}

	data := make([]byte, 0, 2+len(raw))
	data = append(data, byte(1+len(raw)), adType)
	data = append(data, raw...)
	return data
}

// walkAD visits every AD structure in a block.
func walkAD(data []byte, visit func(adType byte, body []byte)) error {
	for i := 0; i < len(data); {
		n := int(data[i])
		if n == 0 || i+1+n > len(data) {
			return fmt.Errorf("malformed ad structure at offset %d", i)
		}
		visit(data[i+1], data[i+2:i+1+n])
		i += 1 + n
	}
	return nil
}

// ParseAdvertisingData returns the 16-bit service list of a primary block.
// AD structures other than the service list are skipped.
func ParseAdvertisingData(data []byte) ([]uint16, error) {
	var services []uint16
	var bad error
	err := walkAD(data, func(adType byte, body []byte) {
		if adType != adTypeComplete16Bit || bad != nil {
			return
		}
		if len(body)%2 != 0 {
			bad = fmt.Errorf("16-bit uuid list has odd length %d", len(body))
			return
		}
		for i := 0; i < len(body); i += 2 {
			services = append(services, uint16(body[i])|uint16(body[i+1])<<8)
		}
	})
	if err == nil {
		err = bad
	}
	if err != nil {
		return nil, err
	}
	return services, nil
}

// ParseScanResponse returns the device name carried by a scan-response
// block, complete or shortened.
func ParseScanResponse(data []byte) (string, error) {
	var name string
	found := false
	err := walkAD(data, func(adType byte, body []byte) {
		if found {
			return
		}
		if adType == adTypeCompleteName || adType == adTypeShortenedName {
			name = string(body)
			found = true
		}
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.New("no device name in scan response")
	}
	return name, nil
}
