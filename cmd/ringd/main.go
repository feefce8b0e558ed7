// Command ringd drives the status ring. It reads control lines from stdin,
// one "<state> [value]" per line, and animates the ring until quit or a signal.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-arcaluminis/internal/config"
	"github.com/coreman2200/funtimes-arcaluminis/internal/monitor"
	"github.com/coreman2200/funtimes-arcaluminis/internal/preview"
	"github.com/coreman2200/funtimes-arcaluminis/internal/status"
	"github.com/coreman2200/funtimes-arcaluminis/internal/ws2812"
)

func main() {
	var (
		configPath = flag.String("config", "ring.yaml", "path to the ring config")
		port       = flag.Int("port", -1, "SPI bus of the ring (overrides config)")
		leds       = flag.Int("leds", 0, "LEDs on the ring (overrides config)")
		console    = flag.Bool("console", false, "print frames at the console")
		addr       = flag.String("monitor", "", "monitor listen address, e.g. :8080 (overrides config)")
		bench      = flag.Int("bench", -1, "SPI bus of a bench mirror strip (overrides config)")
		logLevel   = flag.String("log-level", "", "debug | info | warn | error (overrides config)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}

	// flags given on the command line win over the file
	if *port >= 0 {
		cfg.SPI.Port = *port
	}
	if *leds > 0 {
		cfg.LEDs.Count = *leds
	}
	if *console {
		cfg.Preview.Console = true
	}
	if *addr != "" {
		cfg.Preview.MonitorAddr = *addr
	}
	if *bench >= 0 {
		cfg.Preview.MirrorPort = bench
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Err(err).Str("level", cfg.Log.Level).Msg("unknown log level; using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("periph host init")
	}

	n := cfg.LEDs.Count
	pvOpts := []preview.Option{
		preview.WithConsole(cfg.Preview.Console),
		preview.WithLogger(log.With().Str("component", "preview").Logger()),
	}

	var hub *monitor.Hub
	var srv *http.Server
	if cfg.Preview.MonitorAddr != "" {
		hub = monitor.New(n, cfg.Preview.MonitorFPS,
			monitor.WithLogger(log.With().Str("component", "monitor").Logger()))
		pvOpts = append(pvOpts, preview.WithMirror(hub))
		srv = &http.Server{
			Addr:         cfg.Preview.MonitorAddr,
			Handler:      withCORS(hub.Handler()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("monitor starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("monitor server stopped")
			}
		}()
	}

	pv := preview.New(n, ws2812.OpenPort, pvOpts...)
	if cfg.Preview.MirrorPort != nil {
		if err := pv.AttachBench(*cfg.Preview.MirrorPort); err != nil {
			log.Warn().Err(err).Msg("bench strip unavailable")
		}
	}

	strip := ws2812.New(n,
		ws2812.WithOpener(pv.Open),
		ws2812.WithFrequency(physic.Frequency(cfg.SPI.FreqHz)*physic.Hertz),
		ws2812.WithLogger(log.With().Str("component", "strip").Logger()),
	)
	ctrl := status.New(strip,
		status.WithTiming(cfg.StatusTiming()),
		status.WithPort(cfg.SPI.Port),
		status.WithLogger(log.With().Str("component", "status").Logger()),
	)
	if err := ctrl.Initialize(); err != nil {
		log.Fatal().Err(err).Int("port", cfg.SPI.Port).Msg("ring init")
	}
	log.Info().Int("port", cfg.SPI.Port).Int("leds", n).Msg("ring running")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := &looper{ctrl: ctrl, in: os.Stdin, log: log.Logger}
	if err := l.run(ctx); err != nil {
		log.Error().Err(err).Msg("reading commands")
	}
	log.Info().Msg("shutting down")

	_ = ctrl.Close()
	if err := strip.SetAll(0, 0, 0); err == nil {
		_ = strip.Refresh()
	}
	if err := strip.Deinit(); err != nil {
		log.Warn().Err(err).Msg("strip deinit")
	}
	if err := pv.Close(); err != nil {
		log.Warn().Err(err).Msg("bench close")
	}
	if srv != nil {
		_ = srv.Close()
		_ = hub.Close()
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
