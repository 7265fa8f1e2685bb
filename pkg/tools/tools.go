// Package tools holds small numeric and time helpers shared by the ALC/FDT
// layers: NTP timestamp conversion and ceil/floor integer division, used
// throughout the block-partitioning algorithms (RFC 5052 §9.1, RFC 5053 §5.3).
package tools

import (
	"errors"
	"time"
)

const ntpUnixDelta = 2208988800 // seconds between the NTP epoch (1900) and the Unix epoch (1970)

// NTPToSystemTime converts a 64-bit NTP timestamp (high 32 bits seconds, low
// 32 bits fraction in units of 2^-32s) into a time.Time.
func NTPToSystemTime(ntp uint64) (time.Time, error) {
	sec := ntp >> 32
	frac := ntp & 0xFFFFFFFF

	nsec := (frac * 1_000_000_000) >> 32
	if nsec >= 1_000_000_000 {
		return time.Time{}, errors.New("tools: invalid NTP fractional part")
	}

	unixSec := int64(sec) - ntpUnixDelta
	return time.Unix(unixSec, int64(nsec)).UTC(), nil
}

// SystemTimeToNTP is the inverse of NTPToSystemTime, used when serializing
// FDT Expires timestamps back onto the wire.
func SystemTimeToNTP(t time.Time) (uint64, error) {
	sec := t.Unix() + ntpUnixDelta
	if sec < 0 {
		return 0, errors.New("tools: time predates the NTP epoch")
	}
	frac := (uint64(t.Nanosecond()) << 32) / 1_000_000_000
	return uint64(sec)<<32 | frac, nil
}

// DivCeil computes ceil(a/b).
func DivCeil(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// DivFloor computes floor(a/b).
func DivFloor(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return a / b
}
