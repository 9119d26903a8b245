package fs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration which can be used as a config value or
// flag.  As well as the time.ParseDuration syntax it accepts a bare
// number of seconds and a "d" suffix for days.
type Duration time.Duration

// String turns a Duration into a string
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDuration parses a duration string
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	multiplier := time.Second
	numberString := s
	if strings.HasSuffix(s, "d") {
		multiplier = 24 * time.Hour
		numberString = s[:len(s)-1]
	}
	period, err := strconv.ParseFloat(numberString, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(period * float64(multiplier)), nil
}

// Set a Duration
func (d *Duration) Set(s string) error {
	duration, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// Type of the value
func (d Duration) Type() string {
	return "Duration"
}

// Scan implements the fmt.Scanner interface
func (d *Duration) Scan(s fmt.ScanState, ch rune) error {
	token, err := s.Token(true, nil)
	if err != nil {
		return err
	}
	return d.Set(string(token))
}
