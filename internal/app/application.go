package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/basestation"
	"go1090/internal/demod"
	"go1090/internal/httpapi"
	"go1090/internal/icaocache"
	"go1090/internal/logging"
	"go1090/internal/metrics"
	"go1090/internal/network"
	"go1090/internal/router"
	"go1090/internal/rtlsdr"
	"go1090/internal/sample"
	"go1090/internal/tracker"
)

// Application wires every core component (C1-C11) into a single runnable
// process, matching the teacher's Application shape: one struct built by
// NewApplication, started by Start, torn down by shutdown in the reverse
// order it was built.
type Application struct {
	config Config
	logger *logrus.Logger

	metrics     *metrics.Registry
	icaoCache   *icaocache.Cache
	decoder     *adsb.Decoder
	lut         *demod.MagnitudeLUT
	demod       *demod.Demodulator
	tracker     *tracker.Tracker
	source      sample.Source
	window      *sample.Window
	multiplexer *network.Multiplexer
	httpServer  *http.Server
	sbsWriter   *basestation.Writer
	logRotator  *logging.LogRotator
	router      *router.Router

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApplication creates a new application instance.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the application: builds every component, launches the
// background goroutines, and blocks until a shutdown signal arrives.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting go1090 ADS-B receiver")

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.run(); err != nil {
		app.logger.WithError(err).Error("application error")
		return err
	}

	<-sigChan
	app.logger.Info("received shutdown signal")
	app.shutdown()

	return nil
}

// initializeComponents builds every component in allocation order (spec
// section 5's "construct once in main, tear down in reverse order").
func (app *Application) initializeComponents() error {
	cfg := app.config

	app.metrics = metrics.New()
	app.icaoCache = icaocache.New(0)

	app.decoder = adsb.NewDecoder(app.icaoCache)
	app.decoder.Aggressive = cfg.Aggressive
	app.decoder.Counters = app.metrics

	app.lut = demod.NewMagnitudeLUT()
	app.demod = demod.NewDemodulator(app.componentLogger("demod"))
	app.demod.Aggressive = cfg.Aggressive

	home := cfg.HomePosition
	ttl := time.Duration(DefaultInteractiveTTLSeconds) * time.Second
	app.tracker = tracker.New(ttl, home)

	app.window = sample.NewWindow(demod.DefaultDataLen)

	source, err := app.buildSource()
	if err != nil {
		return fmt.Errorf("failed to initialize sample source: %w", err)
	}
	app.source = source

	app.logRotator, err = logging.NewLogRotator(cfg.LogDir, cfg.LogRotateUTC, app.componentLogger("logging"))
	if err != nil {
		return fmt.Errorf("failed to initialize log rotator: %w", err)
	}
	app.sbsWriter = basestation.NewWriter(app.logRotator, app.componentLogger("basestation"))

	app.multiplexer = app.buildMultiplexer()

	httpCfg := httpapi.Config{
		WebRoot:   cfg.WebRoot,
		Version:   Version,
		RefreshMS: 1000,
		History:   120,
	}
	if home != nil {
		httpCfg.HaveHomePos = true
		httpCfg.HomeLat, httpCfg.HomeLon = home.Lat, home.Lon
	}
	httpSrv := httpapi.NewServer(httpCfg, app.tracker, app.componentLogger("http"))
	app.httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: httpSrv.Handler()}

	app.router = &router.Router{
		Tracker:     app.tracker,
		Network:     app.multiplexer,
		SBSWriter:   app.sbsWriter,
		Metrics:     app.metrics,
		Logger:      app.componentLogger("router"),
		HTTPEnabled: true,
	}

	return nil
}

// componentLogger returns a logger carrying a fixed "component" field
// (spec section 2), inheriting the application's level. The returned
// *logrus.Entry keeps that field on every call; downstream constructors
// accept it through logrus.FieldLogger rather than the concrete *Logger.
func (app *Application) componentLogger(component string) *logrus.Entry {
	l := logrus.New()
	l.SetLevel(app.logger.GetLevel())
	l.SetFormatter(&logrus.TextFormatter{})
	return l.WithField("component", component)
}

func (app *Application) buildSource() (sample.Source, error) {
	cfg := app.config
	if cfg.FilePath != "" {
		return sample.NewFileSource(cfg.FilePath, cfg.Loop, app.componentLogger("sample")), nil
	}

	device, err := rtlsdr.NewRTLSDRDevice(cfg.DeviceIndex, app.componentLogger("rtlsdr"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RTL-SDR: %w", err)
	}
	if err := device.Configure(cfg.Frequency, cfg.SampleRate, cfg.Gain); err != nil {
		return nil, fmt.Errorf("failed to configure RTL-SDR: %w", err)
	}
	return sample.NewDeviceSource(device), nil
}

func (app *Application) buildMultiplexer() *network.Multiplexer {
	cfg := app.config
	connectTimeout := time.Duration(cfg.ConnectTimeout) * time.Second

	newService := func(kind network.Kind, port int) *network.Service {
		svc := network.NewService(kind, fmt.Sprintf(":%d", port), app.componentLogger("net"), app.metrics)
		if cfg.NetActive {
			svc.Active = true
			svc.Connect = connectTimeout
		}
		return svc
	}

	rawIn := newService(network.RawIn, cfg.RawInPort)
	rawIn.OnLine = func(c *network.Connection, line string) {
		if network.IsHeartbeat(line) {
			return
		}
		if _, err := network.DecodeRawLine(line); err != nil {
			app.metrics.IncServiceUnknown(string(network.RawIn))
		}
	}

	sbsIn := newService(network.SBSIn, cfg.SBSInPort)
	sbsIn.OnLine = func(c *network.Connection, line string) {
		// SBS-in is parsed only for statistics (spec section 9's open
		// question: semantic extraction is a stub, matched by the
		// teacher's own behavior).
	}

	return &network.Multiplexer{
		RawOut: newService(network.RawOut, cfg.RawOutPort),
		RawIn:  rawIn,
		SBSOut: newService(network.SBSOut, cfg.SBSOutPort),
		SBSIn:  sbsIn,
	}
}

// run launches every background goroutine: sample capture, the consumer
// demodulation loop, the network multiplexer, the HTTP server, log
// rotation, and the background tick (C11).
func (app *Application) run() error {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.source.Run(app.ctx, app.window); err != nil && app.ctx.Err() == nil {
			app.logger.WithError(err).Error("sample source failed")
			app.cancel()
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.logRotator.Start(app.ctx)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.consume()
	}()

	app.multiplexer.Start(app.ctx, func(kind network.Kind, err error) {
		app.logger.WithError(err).WithField("service", kind).Warn("network service stopped")
		if app.config.NetActive {
			// A failed active-mode connect is fatal: stop the pipeline.
			app.cancel()
		}
	})

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.WithError(err).Error("http server failed")
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.backgroundTick()
	}()

	app.logger.Info("all components started")
	return nil
}

// consume is the single consumer actor of spec section 5: it spins
// waiting for the producer's ready flag (bounded by sample arrival rate),
// demodulates, decodes, and routes every accepted frame.
func (app *Application) consume() {
	windowBuf := make([]byte, app.window.Len())
	var magBuf []uint16

	for {
		select {
		case <-app.ctx.Done():
			return
		default:
		}

		n, ok := app.window.TakeReady(windowBuf)
		if !ok {
			time.Sleep(2 * time.Millisecond)
			continue
		}

		magBuf = app.lut.ComputeMagnitudeVector(windowBuf[:n], magBuf)
		app.demod.Process(magBuf, func(f demod.Frame) {
			var mm adsb.ModeSMessage
			if err := app.decoder.Decode(&mm, f.Bytes[:]); err != nil {
				return
			}
			mm.SigLevel = f.SigLevel
			mm.PhaseCorrected = f.PhaseCorrected
			app.router.Route(&mm)
		})
	}
}

// backgroundTick implements C11: runs at 4 Hz (a 250 ms ticker), advancing the
// tracker's show/eviction state machine on the 250 ms boundary named in
// spec section 4.11. Network I/O no longer needs a polled budget here
// since each connection already owns its goroutine (see internal/network's
// package doc for that departure).
func (app *Application) backgroundTick() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case now := <-ticker.C:
			removed := app.tracker.Tick(now)
			if len(removed) > 0 {
				app.logger.WithField("count", len(removed)).Debug("evicted stale aircraft")
			}
		case <-statsTicker.C:
			app.logStats()
		}
	}
}

// logStats renders every counter spec section 7 requires to be
// observable (the shutdown stats dump / periodic equivalent).
func (app *Application) logStats() {
	fields := logrus.Fields{
		"valid_preamble": app.demod.Stats().ValidPreamble,
		"empty_raw":      app.demod.Stats().EmptyRaw,
		"unrecognized":   app.demod.Stats().UnrecognizedRaw,
		"frames":         app.demod.Stats().FramesDemodulated,
		"bad_crc":        app.metrics.DecodeCount("bad_CRC"),
		"fixed":          app.metrics.DecodeCount("fixed"),
		"single_bit_fix": app.metrics.DecodeCount("single_bit_fix"),
		"two_bits_fix":   app.metrics.DecodeCount("two_bits_fix"),
		"me_histogram":   app.metrics.MEHistogram(),
		"aircraft_count": app.tracker.Count(),
	}
	for _, kind := range []network.Kind{network.RawOut, network.RawIn, network.SBSOut, network.SBSIn} {
		fields["service_"+string(kind)] = app.metrics.ServiceSnapshot(string(kind))
	}
	app.logger.WithFields(fields).Info("go1090 stats")
}

// shutdown gracefully shuts down the application, releasing resources in
// reverse-allocation order (spec section 5).
func (app *Application) shutdown() {
	app.logger.Info("shutting down")
	app.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.WithError(err).Warn("http server shutdown error")
	}

	app.multiplexer.Close()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("all goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("shutdown timeout, forcing exit")
	}

	if app.logRotator != nil {
		app.logRotator.Close()
	}

	app.logStats()
	app.logger.Info("shutdown completed")
}
