package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/picolog/pkg/config"
)

// Interval limits accepted from the command line.
const (
	MinInterval = 5
	MaxInterval = config.MaxInterval
)

var dateLayouts = []string{
	"02.01.2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseInterval accepts HH:MM:SS or a number of seconds. Values outside
// MinInterval..MaxInterval are clamped and reported in warning.
func parseInterval(s string) (interval uint32, warning string, err error) {
	var secs int64
	if strings.Contains(s, ":") {
		hms := strings.Split(s, ":")
		if len(hms) != 3 {
			return 0, "", fmt.Errorf("invalid interval %q: want HH:MM:SS", s)
		}
		for _, part := range hms {
			v, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return 0, "", fmt.Errorf("invalid interval %q: %w", s, err)
			}
			secs = secs*60 + int64(v)
		}
	} else {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, "", fmt.Errorf("invalid interval %q: %w", s, err)
		}
		secs = int64(v)
	}

	switch {
	case secs < MinInterval:
		return MinInterval, "interval set to 5 s", nil
	case secs > MaxInterval:
		return MaxInterval, "interval set to 24 h", nil
	}
	return uint32(secs), "", nil
}

// parseDateTime parses "dd.mm.yyyy HH:MM:SS" (or ISO) into the logger's
// yyyymmdd and hhmmss encodings. An empty string means now.
func parseDateTime(s string, now time.Time) (date, tod uint32, err error) {
	t := now.Truncate(time.Second)
	if s = strings.TrimSpace(s); s != "" {
		t, err = parseTime(s)
		if err != nil {
			return 0, 0, err
		}
	}

	date = uint32(t.Year()*10000 + int(t.Month())*100 + t.Day())
	tod = uint32(t.Hour()*10000 + t.Minute()*100 + t.Second())
	return date, tod, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want dd.mm.yyyy HH:MM:SS", s)
}

// parseAppend accepts on/off style switches.
func parseAppend(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid append mode %q: want ON or OFF", s)
}

// confirm asks a Y/N question.
func confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s\nY or N: ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
