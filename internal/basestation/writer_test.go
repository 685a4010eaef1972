package basestation

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090/internal/adsb"
	"go1090/internal/logging"
)

func TestFromModeSMessage_Velocity(t *testing.T) {
	var mm adsb.ModeSMessage
	mm.DF = 17
	mm.SetICAO(0x4B9696)
	mm.METype = 19
	mm.MESubtype = 1
	mm.Velocity = 159
	mm.HeadingValid = true
	mm.Heading = 183
	mm.VertRate = 10
	mm.VertRateSign = 1

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	msg := FromModeSMessage(&mm, 0, 0, false, now)

	assert.Equal(t, TransmissionESVelocity, msg.TransmissionType)
	assert.Equal(t, "4B9696", msg.HexIdent)
	assert.Equal(t, "159", msg.GroundSpeed)
	assert.Equal(t, "183.0", msg.Track)
	assert.Equal(t, "-640", msg.VerticalRate)
}

func TestFromModeSMessage_AirbornePosition(t *testing.T) {
	var mm adsb.ModeSMessage
	mm.DF = 17
	mm.SetICAO(0x40621D)
	mm.METype = 11
	mm.Altitude = 35000

	now := time.Now()
	msg := FromModeSMessage(&mm, 52.2572, 3.9193, true, now)

	assert.Equal(t, TransmissionESAirborne, msg.TransmissionType)
	assert.Equal(t, "35000", msg.Altitude)
	assert.Equal(t, "52.257200", msg.Latitude)
	assert.Equal(t, "3.919300", msg.Longitude)
}

func TestFromModeSMessage_Identification(t *testing.T) {
	var mm adsb.ModeSMessage
	mm.DF = 17
	mm.SetICAO(0x4B9696)
	mm.METype = 4
	mm.Flight = [8]byte{'K', 'L', 'M', '1', '0', '4', '4', ' '}

	msg := FromModeSMessage(&mm, 0, 0, false, time.Now())

	assert.Equal(t, TransmissionESIdentCat, msg.TransmissionType)
	assert.Equal(t, "KLM1044", msg.Callsign)
}

func TestFromModeSMessage_SurveillanceGroundState(t *testing.T) {
	var mm adsb.ModeSMessage
	mm.DF = 4
	mm.Altitude = 1200
	mm.FlightStatus = 3 // on ground + alert, per setFlightStatus

	msg := FromModeSMessage(&mm, 0, 0, false, time.Now())

	assert.Equal(t, TransmissionSurveillance, msg.TransmissionType)
	assert.Equal(t, "1200", msg.Altitude)
	assert.Equal(t, "1", msg.IsOnGround)
	assert.Equal(t, "1", msg.Alert)
}

func TestFormatCSV_FieldOrderAndCount(t *testing.T) {
	msg := &Message{
		TransmissionType: TransmissionESAirborne,
		SessionID:        1,
		AircraftID:       1,
		HexIdent:         "4B9696",
		FlightID:         1,
		DateGenerated:    time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		TimeGenerated:    time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		DateLogged:       time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		TimeLogged:       time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		Altitude:         "35000",
	}

	line := FormatCSV(msg)
	assert.Equal(t, "MSG,3,1,1,4B9696,1,2026/07/31,12:00:00.000,2026/07/31,12:00:00.000,,35000,,,,,,,,,", line)
}

func TestWriter_WriteLineAppendsToRotatedFile(t *testing.T) {
	dir := t.TempDir()
	rotator, err := logging.NewLogRotator(dir, false, logrus.New())
	require.NoError(t, err)
	defer rotator.Close()

	w := NewWriter(rotator, logrus.New())
	require.NoError(t, w.WriteLine("MSG,3,1,1,4B9696,1"))
}
