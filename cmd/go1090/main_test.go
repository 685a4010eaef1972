package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go1090/internal/app"
)

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, uint32(1090000000), uint32(app.DefaultFrequency))
	assert.Equal(t, uint32(2000000), uint32(app.DefaultSampleRate))
	assert.Equal(t, 40, app.DefaultGain)
	assert.Equal(t, 30002, app.DefaultRawOutPort)
	assert.Equal(t, 30001, app.DefaultRawInPort)
	assert.Equal(t, 30003, app.DefaultSBSOutPort)
	assert.Equal(t, 30004, app.DefaultSBSInPort)
	assert.Equal(t, ":8080", app.DefaultHTTPAddr)
}

func TestParseHomePos(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantNil bool
		wantErr bool
		lat     float64
		lon     float64
	}{
		{name: "unset", value: "", wantNil: true},
		{name: "valid", value: "52.3,4.9", lat: 52.3, lon: 4.9},
		{name: "valid with spaces", value: " 52.3 , 4.9 ", lat: 52.3, lon: 4.9},
		{name: "malformed, no comma", value: "52.3", wantErr: true},
		{name: "bad latitude", value: "bad,4.9", wantErr: true},
		{name: "bad longitude", value: "52.3,bad", wantErr: true},
		{name: "latitude out of range", value: "91,4.9", wantErr: true},
		{name: "longitude out of range", value: "52.3,181", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := app.ParseHomePos(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, pos)
				return
			}
			assert.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, pos)
				return
			}
			if assert.NotNil(t, pos) {
				assert.InDelta(t, tt.lat, pos.Lat, 1e-9)
				assert.InDelta(t, tt.lon, pos.Lon, 1e-9)
			}
		})
	}
}

func TestShowVersionDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		app.ShowVersion()
	})
}
