package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/console"
	"github.com/itohio/picolog/pkg/device"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		warning string
		wantErr bool
	}{
		{in: "00:00:15", want: 15},
		{in: "01:02:03", want: 3723},
		{in: "300", want: 300},
		{in: "00:00:01", want: MinInterval, warning: "interval set to 5 s"},
		{in: "2", want: MinInterval, warning: "interval set to 5 s"},
		{in: "25:00:00", want: MaxInterval, warning: "interval set to 24 h"},
		{in: "24:00:00", want: MaxInterval},
		{in: "1:2", wantErr: true},
		{in: "aa:00:00", wantErr: true},
		{in: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, warning, err := parseInterval(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warning, warning)
		})
	}
}

func TestParseDateTime(t *testing.T) {
	now := time.Date(2022, 11, 7, 21, 30, 15, 500, time.Local)

	date, tod, err := parseDateTime("", now)
	require.NoError(t, err)
	assert.Equal(t, uint32(20221107), date)
	assert.Equal(t, uint32(213015), tod)

	date, tod, err = parseDateTime("08.11.2022 06:05:04", now)
	require.NoError(t, err)
	assert.Equal(t, uint32(20221108), date)
	assert.Equal(t, uint32(60504), tod)

	date, tod, err = parseDateTime("2023-01-31 23:59:59", now)
	require.NoError(t, err)
	assert.Equal(t, uint32(20230131), date)
	assert.Equal(t, uint32(235959), tod)

	_, _, err = parseDateTime("31.02.2022 00:00:00", now)
	assert.Error(t, err)
}

func TestParseAppend(t *testing.T) {
	on, err := parseAppend("ON")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = parseAppend("off")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = parseAppend("maybe")
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "Format flash?"))
	assert.Equal(t, "Format flash?\nY or N: ", out.String())

	assert.True(t, confirm(strings.NewReader("Y"), &out, "q"))
	assert.False(t, confirm(strings.NewReader("n\n"), &out, "q"))
	assert.False(t, confirm(strings.NewReader(""), &out, "q"))
}

func TestOptions_WithMockDevice(t *testing.T) {
	opts := &options{configFile: filepath.Join(t.TempDir(), "missing.yaml"), mock: true, port: "COM3"}

	err := opts.withDevice(func(d device.Device, cfg *config.Config) error {
		assert.Equal(t, "COM3", cfg.Serial.Port)
		require.NoError(t, runReport(d, console.CmdSetInterval, 60))
		assert.EqualError(t, runReport(d, console.CmdSetInterval, 0), "set_interval failed: error: invalid value")

		resp, err := d.Command(console.CmdTest, 7)
		require.NoError(t, err)
		assert.Equal(t, "cmd=test par=7", resp)
		return nil
	})
	require.NoError(t, err)
}
