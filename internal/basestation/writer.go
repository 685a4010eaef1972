// Package basestation implements the SBS (Base-Station) CSV encoder used
// by the message router's sbs-out fan-out (spec section 4.9 step 3, wire
// format in section 6). Its Writer/constants shape and CSV field order
// are kept from the teacher's own basestation package; the per-message
// field extraction it used to duplicate is dropped in favor of consuming
// the consolidated frame decoder's (C4) ModeSMessage output directly.
package basestation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/logging"
)

// BaseStation transmission types (spec section 6).
const (
	TransmissionESIdentCat   = 1 // Extended Squitter Aircraft ID and Category
	TransmissionESSurface    = 2 // Extended Squitter Surface Position
	TransmissionESAirborne   = 3 // Extended Squitter Airborne Position
	TransmissionESVelocity   = 4 // Extended Squitter Airborne Velocity
	TransmissionSurveillance = 5 // Surveillance Alt/Squawk change
	TransmissionSurvID       = 6 // Surveillance ID change
	TransmissionAllCall      = 8 // All-call reply
)

// Message is one Base-Station CSV record (spec section 6, 22 fields).
type Message struct {
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	DateGenerated    time.Time
	TimeGenerated    time.Time
	DateLogged       time.Time
	TimeLogged       time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// FormatCSV renders msg as the 22-field Base-Station CSV line (no
// trailing newline; callers append it when writing to a stream).
func FormatCSV(msg *Message) string {
	fields := []string{
		"MSG",
		strconv.Itoa(msg.TransmissionType),
		strconv.Itoa(msg.SessionID),
		strconv.Itoa(msg.AircraftID),
		msg.HexIdent,
		strconv.Itoa(msg.FlightID),
		msg.DateGenerated.Format("2006/01/02"),
		msg.TimeGenerated.Format("15:04:05.000"),
		msg.DateLogged.Format("2006/01/02"),
		msg.TimeLogged.Format("15:04:05.000"),
		msg.Callsign,
		msg.Altitude,
		msg.GroundSpeed,
		msg.Track,
		msg.Latitude,
		msg.Longitude,
		msg.VerticalRate,
		msg.Squawk,
		msg.Alert,
		msg.Emergency,
		msg.SPI,
		msg.IsOnGround,
	}
	return strings.Join(fields, ",")
}

// FromModeSMessage builds the Base-Station record for mm (spec section
// 6's DF/ME -> transmission-type table). lat/lon are supplied by the
// caller (the message router, which has the tracker's resolved position)
// rather than recomputed here, since CPR resolution requires the
// previous odd/even pair the decoder itself does not retain.
func FromModeSMessage(mm *adsb.ModeSMessage, lat, lon float64, haveLatLon bool, now time.Time) *Message {
	msg := &Message{
		SessionID:     1,
		AircraftID:    1,
		FlightID:      1,
		HexIdent:      fmt.Sprintf("%06X", mm.ICAO()),
		DateGenerated: now,
		TimeGenerated: now,
		DateLogged:    now,
		TimeLogged:    now,
	}

	switch mm.DF {
	case 0:
		msg.TransmissionType = TransmissionSurveillance
		setAltitude(msg, mm)

	case 4:
		msg.TransmissionType = TransmissionSurveillance
		setAltitude(msg, mm)
		setFlightStatus(msg, mm)

	case 5:
		msg.TransmissionType = TransmissionSurvID
		msg.Squawk = fmt.Sprintf("%04d", mm.Identity)
		setFlightStatus(msg, mm)

	case 11:
		msg.TransmissionType = TransmissionAllCall

	case 17, 18:
		switch {
		case mm.METype >= 1 && mm.METype <= 4:
			msg.TransmissionType = TransmissionESIdentCat
			msg.Callsign = mm.FlightString()

		case mm.METype >= 9 && mm.METype <= 18:
			msg.TransmissionType = TransmissionESAirborne
			setAltitude(msg, mm)
			if haveLatLon {
				msg.Latitude = fmt.Sprintf("%.6f", lat)
				msg.Longitude = fmt.Sprintf("%.6f", lon)
			}

		case mm.METype == 19 && mm.MESubtype == 1:
			msg.TransmissionType = TransmissionESVelocity
			if mm.Velocity > 0 {
				msg.GroundSpeed = strconv.Itoa(mm.Velocity)
			}
			if mm.HeadingValid {
				msg.Track = fmt.Sprintf("%.1f", float64(mm.Heading))
			}
			if mm.VertRate != 0 {
				rate := mm.VertRate * 64
				if mm.VertRateSign != 0 {
					rate = -rate
				}
				msg.VerticalRate = strconv.Itoa(rate)
			}
		}

	case 21:
		msg.TransmissionType = TransmissionSurvID
		msg.Squawk = fmt.Sprintf("%04d", mm.Identity)
		setFlightStatus(msg, mm)
	}

	return msg
}

func setAltitude(msg *Message, mm *adsb.ModeSMessage) {
	if mm.Altitude != 0 {
		msg.Altitude = strconv.Itoa(mm.Altitude)
	}
}

// setFlightStatus maps the 3-bit flight_status field to alert/emergency/
// SPI/ground-state flags (DF4/5/20/21), per the ground-state encoding
// the teacher's extractGroundState used before this package was
// consolidated onto the single decoder.
func setFlightStatus(msg *Message, mm *adsb.ModeSMessage) {
	switch mm.FlightStatus {
	case 1, 3:
		msg.IsOnGround = "1"
	default:
		msg.IsOnGround = "0"
	}
	if mm.FlightStatus == 2 || mm.FlightStatus == 3 || mm.FlightStatus == 4 || mm.FlightStatus == 5 {
		msg.Alert = "1"
	}
	if mm.FlightStatus == 4 || mm.FlightStatus == 5 {
		msg.SPI = "1"
	}
}

// Writer persists Base-Station CSV lines through the rotating log sink
// (spec section 4.9 step 3's durable side, separate from the network
// fan-out which goes straight to sbs-out clients).
type Writer struct {
	logRotator *logging.LogRotator
	logger     logrus.FieldLogger
}

// NewWriter builds a Writer over an already-open LogRotator.
func NewWriter(logRotator *logging.LogRotator, logger logrus.FieldLogger) *Writer {
	return &Writer{logRotator: logRotator, logger: logger}
}

// WriteLine appends one already-formatted CSV line to the current log file.
func (w *Writer) WriteLine(line string) error {
	writer, err := w.logRotator.GetWriter()
	if err != nil {
		return fmt.Errorf("basestation: get writer: %w", err)
	}
	if _, err := writer.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("basestation: write: %w", err)
	}
	return nil
}
