package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/ztkent/tsl2561-meter/bus"
	slm "github.com/ztkent/tsl2561-meter/internal/sunlightmeter"
	"github.com/ztkent/tsl2561-meter/internal/tools"
	"github.com/ztkent/tsl2561-meter/tsl2561"
	_ "github.com/ztkent/tsl2561-meter/tsl2561/sim"
)

/*
	This is the entry point for the Sunlight Meter service.
	It should be running at startup, on a Raspberry Pi, with a TSL2561 sensor connected.
*/

func main() {
	cfg, err := tools.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	l, logCloser, err := tools.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	tsl2561.SetLogger(l)
	l.WithField("pid", os.Getpid()).Info("SunlightMeter starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// connect to the lux sensor, the service still serves recorded data without it
	device, err := connectSensor(cfg)
	if err != nil {
		l.WithError(err).Error("Failed to connect to the TSL2561 sensor")
	}

	// connect to the sqlite database
	slmDB, err := tools.ConnectSqlite(ctx, l, cfg.DBPath)
	if err != nil {
		// Unlike connecting to the sensor, this should always work.
		l.WithError(err).Fatal("Failed to connect to the sqlite database")
	}

	meter := slm.New(device, slmDB, cfg, l)
	r := chi.NewRouter()
	// Log requests and recover from panics
	r.Use(middleware.Logger)
	r.Use(handleServerPanic(l))
	defineRoutes(r, meter)

	// Listen for any result messages from our jobs, record them in sqlite
	go meter.MonitorAndRecordResults(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if cfg.SSL {
			// Generate a self-signed certificate if one doesn't exist
			if err := tools.EnsureCertificate("cert.pem", "key.pem", "localhost"); err != nil {
				serveErr <- err
				return
			}
			l.Infof("Starting HTTPS server on port %s", cfg.Port)
			serveErr <- srv.ListenAndServeTLS("cert.pem", "key.pem")
			return
		}
		l.Infof("Starting HTTP server on port %s", cfg.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Error("server failed")
		}
	case <-ctx.Done():
		l.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Warn("server shutdown")
	}
	if err := meter.StopJob(); err != nil && !errors.Is(err, slm.ErrNoJob) {
		l.WithError(err).Warn("failed to stop recording job")
	}
	device.Close()
	if err := slmDB.Close(); err != nil {
		l.WithError(err).Warn("failed to close database")
	}
}

// connectSensor opens the sensor on the configured backend and applies the
// configured settings.
func connectSensor(cfg tools.Config) (*tsl2561.TSL2561, error) {
	opener, err := bus.Lookup(cfg.Backend)
	if err != nil {
		return nil, err
	}
	device, err := tsl2561.NewTSL2561(opener, cfg.Address, cfg.Device)
	if err != nil {
		return nil, err
	}

	settle := func() error {
		if cfg.Variant != "auto" {
			variant, err := tsl2561.VariantFromString(cfg.Variant)
			if err != nil {
				return err
			}
			if err := device.SetVariant(variant); err != nil {
				return err
			}
		}
		if err := device.SetTiming(cfg.Timing, cfg.Gain); err != nil {
			return err
		}
		if cfg.AutoGain {
			return device.EnableAutoGain()
		}
		return nil
	}
	if err := settle(); err != nil {
		device.Close()
		return nil, err
	}
	return device, nil
}

func defineRoutes(r *chi.Mux, meter *slm.SLMeter) {
	// Sunlight Meter API, these serve a JSON response
	r.Mount("/api/v1", meter.Routes())

	// Route for service identification
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		response := struct {
			ServiceName string `json:"service_name"`
		}{
			ServiceName: "Sunlight Meter",
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	})
}

func handleServerPanic(l *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					l.WithField("path", r.URL.Path).Errorf("panic: %v", err)
					slm.ServeResponse(w, r, fmt.Sprintf("%v", err), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
