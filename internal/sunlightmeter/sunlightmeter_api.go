package sunlightmeter

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"github.com/ztkent/tsl2561-meter/internal/tools"
	"github.com/ztkent/tsl2561-meter/tsl2561"
)

type Status struct {
	Connected     bool   `json:"connected"`
	Powered       bool   `json:"powered"`
	Recording     bool   `json:"recording"`
	JobID         string `json:"jobID,omitempty"`
	Address       string `json:"address,omitempty"`
	Variant       string `json:"variant,omitempty"`
	Gain          int    `json:"gain,omitempty"`
	IntegrationMs int    `json:"integrationMs,omitempty"`
	AutoGain      bool   `json:"autoGain"`
}

type Reading struct {
	Lux           uint32  `json:"lux"`
	Status        string  `json:"status"`
	Channel0      uint16  `json:"channel0"`
	Channel1      uint16  `json:"channel1"`
	Gain          int     `json:"gain"`
	IntegrationMs int     `json:"integrationMs"`
	Saturated     bool    `json:"saturated"`
	FullSpectrum  float64 `json:"fullSpectrum"`
	Visible       float64 `json:"visible"`
	Infrared      float64 `json:"infrared"`
}

// Routes returns the JSON API. Routes that change the sensor or export data
// are limited to the local network when Config.LocalOnly is set.
func (m *SLMeter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/lux", m.ServeLux())
	r.Get("/status", m.ServeStatus())
	r.Get("/current-conditions", m.CurrentConditions())
	r.Get("/conditions", m.ServeConditions())
	r.Get("/graph", m.ServeResultsGraph())

	r.Group(func(r chi.Router) {
		if m.Config.LocalOnly {
			r.Use(tools.CheckInNetwork)
		}
		r.Get("/start", m.Start())
		r.Get("/stop", m.Stop())
		r.Get("/export", m.ServeResultsDB())
		r.Post("/enable", m.ServeEnable())
		r.Post("/disable", m.ServeDisable())
		r.Post("/autogain/enable", m.ServeAutoGain(true))
		r.Post("/autogain/disable", m.ServeAutoGain(false))
		r.Post("/gain", m.ServeGain())
		r.Post("/integration-time", m.ServeIntegrationTime())
		r.Post("/variant", m.ServeVariant())
		r.Post("/timing", m.ServeTiming())
	})
	return r
}

// Take a single reading and serve it
func (m *SLMeter) ServeLux() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.connected(w, r) {
			return
		}
		result, reading, err := m.LuxReading(r.Context())
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Reading{
			Lux:           result.Lux,
			Status:        result.Status.String(),
			Channel0:      reading.Channel0,
			Channel1:      reading.Channel1,
			Gain:          reading.Gain.Multiplier(),
			IntegrationMs: reading.Timing.Millis(),
			Saturated:     reading.Saturated,
			FullSpectrum:  reading.Normalized(tsl2561.FullSpectrum),
			Visible:       reading.Normalized(tsl2561.Visible),
			Infrared:      reading.Normalized(tsl2561.Infrared),
		})
	}
}

// Status of the sensor
func (m *SLMeter) ServeStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := m.status()
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func (m *SLMeter) status() (Status, error) {
	status := Status{JobID: m.JobID()}
	status.Recording = status.JobID != ""
	if m.TSL2561 == nil {
		return status, nil
	}
	state, err := m.State()
	if err != nil {
		return Status{}, err
	}
	status.Connected = true
	status.Powered = state.Powered
	status.Address = fmt.Sprintf("0x%02x", state.Address)
	status.Variant = state.Variant.String()
	status.Gain = state.Gain.Multiplier()
	status.IntegrationMs = state.Timing.Millis()
	status.AutoGain = state.AutoGain
	return status, nil
}

func (m *SLMeter) ServeEnable() http.HandlerFunc {
	return m.configure(func(r *http.Request) error { return m.Enable() })
}

func (m *SLMeter) ServeDisable() http.HandlerFunc {
	return m.configure(func(r *http.Request) error {
		if m.JobID() != "" {
			return fmt.Errorf("%w: stop the recording job first", tsl2561.ErrInvalidConfiguration)
		}
		return m.Disable()
	})
}

func (m *SLMeter) ServeAutoGain(enable bool) http.HandlerFunc {
	return m.configure(func(r *http.Request) error {
		if enable {
			return m.EnableAutoGain()
		}
		return m.DisableAutoGain()
	})
}

// Set the gain from ?value=1|16
func (m *SLMeter) ServeGain() http.HandlerFunc {
	return m.configure(func(r *http.Request) error {
		gain, err := parseGain(r.FormValue("value"))
		if err != nil {
			return err
		}
		return m.SetGain(gain)
	})
}

// Set the integration time from ?ms=13|101|402
func (m *SLMeter) ServeIntegrationTime() http.HandlerFunc {
	return m.configure(func(r *http.Request) error {
		timing, err := parseIntegrationTime(r.FormValue("ms"))
		if err != nil {
			return err
		}
		return m.SetIntegrationTime(timing)
	})
}

// Set the package variant from ?value=t|cs
func (m *SLMeter) ServeVariant() http.HandlerFunc {
	return m.configure(func(r *http.Request) error {
		variant, err := tsl2561.VariantFromString(r.FormValue("value"))
		if err != nil {
			return err
		}
		return m.SetVariant(variant)
	})
}

// Set gain and integration time together from ?ms=&gain=
func (m *SLMeter) ServeTiming() http.HandlerFunc {
	return m.configure(func(r *http.Request) error {
		timing, err := parseIntegrationTime(r.FormValue("ms"))
		if err != nil {
			return err
		}
		gain, err := parseGain(r.FormValue("gain"))
		if err != nil {
			return err
		}
		return m.SetTiming(timing, gain)
	})
}

// configure runs apply against the sensor and replies with the new status.
func (m *SLMeter) configure(apply func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.connected(w, r) {
			return
		}
		if err := apply(r); err != nil {
			m.serveError(w, r, err)
			return
		}
		status, err := m.status()
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		m.Log.WithField("path", r.URL.Path).Info("sensor reconfigured")
		writeJSON(w, http.StatusOK, status)
	}
}

func (m *SLMeter) connected(w http.ResponseWriter, r *http.Request) bool {
	if m.TSL2561 == nil {
		ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
		return false
	}
	return true
}

func parseGain(value string) (tsl2561.Gain, error) {
	x, err := cast.ToIntE(value)
	if err != nil {
		return 0, fmt.Errorf("%w: gain %q", tsl2561.ErrInvalidConfiguration, value)
	}
	return tsl2561.GainFromMultiplier(x)
}

func parseIntegrationTime(value string) (tsl2561.IntegrationTime, error) {
	ms, err := cast.ToIntE(value)
	if err != nil {
		return 0, fmt.Errorf("%w: integration time %q", tsl2561.ErrInvalidConfiguration, value)
	}
	return tsl2561.IntegrationTimeFromMillis(ms)
}
