package config

import (
	"encoding/binary"
	"fmt"
)

const (
	// RecordSize is the on-flash size of a Record: three uint32 fields, the
	// append flag and three bytes of padding.
	RecordSize = 16

	// MaxInterval is the longest sample interval (one day).
	MaxInterval = 86400

	DefaultEpochDate = 20220101
	DefaultEpochTime = 0
	DefaultInterval  = 15
)

// Record is the logger configuration persisted on the device flash.
type Record struct {
	EpochDate uint32 `yaml:"epoch_date"` // yyyymmdd
	EpochTime uint32 `yaml:"epoch_time"` // hhmmss
	Interval  uint32 `yaml:"interval"`   // seconds, 1..86400
	Append    bool   `yaml:"append"`     // append to the existing log instead of starting a new one
}

// DefaultRecord returns the factory configuration of a freshly formatted logger.
func DefaultRecord() Record {
	return Record{
		EpochDate: DefaultEpochDate,
		EpochTime: DefaultEpochTime,
		Interval:  DefaultInterval,
		Append:    false,
	}
}

// MarshalBinary encodes the record in its fixed little-endian layout.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.EpochDate)
	binary.LittleEndian.PutUint32(buf[4:8], r.EpochTime)
	binary.LittleEndian.PutUint32(buf[8:12], r.Interval)
	if r.Append {
		buf[12] = 1
	}
	return buf, nil
}

// UnmarshalBinary decodes a record. The input must be exactly RecordSize bytes.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("invalid record size: expected %d bytes, got %d", RecordSize, len(data))
	}
	r.EpochDate = binary.LittleEndian.Uint32(data[0:4])
	r.EpochTime = binary.LittleEndian.Uint32(data[4:8])
	r.Interval = binary.LittleEndian.Uint32(data[8:12])
	r.Append = data[12] != 0
	return nil
}

// Validate checks every field of the record.
func (r Record) Validate() error {
	if !ValidDate(r.EpochDate) {
		return fmt.Errorf("invalid epoch date: %08d", r.EpochDate)
	}
	if !ValidTime(r.EpochTime) {
		return fmt.Errorf("invalid epoch time: %06d", r.EpochTime)
	}
	if !ValidInterval(r.Interval) {
		return fmt.Errorf("invalid interval: %d (expected 1..%d)", r.Interval, MaxInterval)
	}
	return nil
}

// ValidDate reports whether v is a calendar date encoded as yyyymmdd.
func ValidDate(v uint32) bool {
	year := v / 10000
	month := (v % 10000) / 100
	day := v % 100
	if year < 2000 || year > 2099 || month < 1 || month > 12 || day < 1 {
		return false
	}
	return day <= daysIn(month, year)
}

// ValidTime reports whether v is a time of day encoded as hhmmss.
func ValidTime(v uint32) bool {
	return v/10000 < 24 && (v%10000)/100 < 60 && v%100 < 60
}

// ValidInterval reports whether v is an accepted sample interval.
func ValidInterval(v uint32) bool {
	return v > 0 && v <= MaxInterval
}

func daysIn(month, year uint32) uint32 {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
