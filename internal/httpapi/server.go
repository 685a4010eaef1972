// Package httpapi builds the HTTP/JSON surface of the network
// multiplexer (C8's http leaf, spec sections 4.8 and 6). HTTP framing
// itself stays an external collaborator (spec section 1): this package
// only builds response bodies and routes requests, on top of the
// standard net/http server.
package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"go1090/internal/tracker"
)

// Aircraft is the wire shape of one tracked aircraft for /data.json and
// /data/aircraft.json (spec section 6).
type Aircraft struct {
	Hex          string  `json:"hex"`
	Flight       string  `json:"flight,omitempty"`
	Altitude     int     `json:"altitude,omitempty"`
	Speed        int     `json:"speed,omitempty"`
	Track        int     `json:"track,omitempty"`
	Squawk       int     `json:"squawk,omitempty"`
	Lat          float64 `json:"lat,omitempty"`
	Lon          float64 `json:"lon,omitempty"`
	SeenLast     float64 `json:"seen,omitempty"` // seconds since last message
	Messages     uint64  `json:"messages"`
	DistanceM    float64 `json:"distance,omitempty"`
}

// ChunkAircraft extends Aircraft with the estimated-position fields used
// by /chunks/chunks.json (spec section 6's "extended form").
type ChunkAircraft struct {
	Aircraft
	EstLat       float64 `json:"est_lat,omitempty"`
	EstLon       float64 `json:"est_lon,omitempty"`
	EstDistanceM float64 `json:"est_distance,omitempty"`
}

// ReceiverInfo is the body of /data/receiver.json (spec section 6).
type ReceiverInfo struct {
	Version string  `json:"version"`
	Refresh int     `json:"refresh"`
	History int     `json:"history"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Config configures the HTTP service.
type Config struct {
	WebRoot     string
	WebPage     string // default page name served at "/"
	Version     string
	RefreshMS   int
	History     int
	HomeLat     float64
	HomeLon     float64
	HaveHomePos bool
}

// Server implements the C8 http leaf against an in-memory tracker.
type Server struct {
	cfg     Config
	tracker *tracker.Tracker
	logger  logrus.FieldLogger
	files   *cache.Cache
}

// NewServer builds a Server. logger may be nil.
func NewServer(cfg Config, t *tracker.Tracker, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.WebPage == "" {
		cfg.WebPage = "gmap.html"
	}
	return &Server{
		cfg:     cfg,
		tracker: t,
		logger:  logger,
		// go-cache fronts web_root reads (spec section 4.8's "serve
		// files from web_root" leaf): static assets rarely change, so a
		// short TTL avoids re-stat/re-read on every request without
		// risking a stale server surviving a deploy.
		files: cache.New(30*time.Second, time.Minute),
	}
}

// Handler returns the http.Handler to mount (e.g. via http.Server or
// httptest), wiring every route spec section 4.8/6 names.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/data.json", s.handleAircraftJSON(false))
	mux.HandleFunc("/data/aircraft.json", s.handleAircraftJSON(false))
	mux.HandleFunc("/chunks/chunks.json", s.handleAircraftJSON(true))
	mux.HandleFunc("/data/receiver.json", s.handleReceiverJSON)
	mux.HandleFunc("/favicon.png", s.handleFavicon)
	mux.HandleFunc("/favicon.ico", s.handleFavicon)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.handleStatic(w, r)
		return
	}
	http.Redirect(w, r, "/"+s.cfg.WebPage, http.StatusMovedPermanently)
}

func withCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
}

func (s *Server) handleAircraftJSON(extended bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withCORS(w)
		now := time.Now()

		snapshot := s.tracker.Snapshot()
		if extended {
			out := make([]ChunkAircraft, 0, len(snapshot))
			for _, a := range snapshot {
				out = append(out, toChunkAircraft(a, now))
			}
			s.writeJSON(w, out)
			return
		}

		out := make([]Aircraft, 0, len(snapshot))
		for _, a := range snapshot {
			out = append(out, toAircraft(a, now))
		}
		s.writeJSON(w, out)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toAircraft(a tracker.Aircraft, now time.Time) Aircraft {
	out := Aircraft{
		Hex:      hexIdent(a.Addr),
		Flight:   a.FlightString(),
		Altitude: a.Altitude,
		Speed:    a.Speed,
		Track:    a.Heading,
		Squawk:   a.Identity,
		Messages: a.Messages,
		SeenLast: now.Sub(time.UnixMilli(a.SeenLast)).Seconds(),
	}
	if a.Position.Valid() {
		out.Lat, out.Lon = a.Position.Lat, a.Position.Lon
		out.DistanceM = a.Distance
	}
	return out
}

func toChunkAircraft(a tracker.Aircraft, now time.Time) ChunkAircraft {
	out := ChunkAircraft{Aircraft: toAircraft(a, now)}
	if a.EstPosition.Valid() {
		out.EstLat, out.EstLon = a.EstPosition.Lat, a.EstPosition.Lon
		out.EstDistanceM = a.EstDistance
	}
	return out
}

func hexIdent(addr uint32) string {
	return strings.ToLower(strconv.FormatUint(uint64(addr), 16))
}

func (s *Server) handleReceiverJSON(w http.ResponseWriter, r *http.Request) {
	withCORS(w)
	info := ReceiverInfo{
		Version: s.cfg.Version,
		Refresh: s.cfg.RefreshMS,
		History: s.cfg.History,
	}
	if s.cfg.HaveHomePos {
		info.Lat, info.Lon = s.cfg.HomeLat, s.cfg.HomeLon
	}
	s.writeJSON(w, info)
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	s.handleStatic(w, r)
}

// handleStatic serves a file from web_root through the go-cache TTL
// content cache, or 404/500 per spec section 4.8.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebRoot == "" {
		http.NotFound(w, r)
		return
	}

	clean := filepath.Clean("/" + r.URL.Path)
	path := filepath.Join(s.cfg.WebRoot, clean)

	if data, ok := s.files.Get(path); ok {
		w.Write(data.([]byte))
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("path", path).Error("failed to read static file")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.files.Set(path, data, cache.DefaultExpiration)
	w.Write(data)
}
