package sunlightmeter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ztkent/tsl2561-meter/internal/tools"
	"github.com/ztkent/tsl2561-meter/tsl2561"
)

const (
	MAX_JOB_DURATION = 8 * time.Hour
	RECORD_INTERVAL  = 30 * time.Second
)

var (
	ErrJobRunning = errors.New("a recording job is already running")
	ErrNoJob      = errors.New("no recording job is running")
)

type SLMeter struct {
	*tsl2561.TSL2561
	LuxResultsChan chan LuxResults
	ResultsDB      *sql.DB
	Config         tools.Config
	Log            *logrus.Logger

	mu  sync.Mutex
	job *job
}

type job struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// LuxResults is one reading taken by a recording job.
type LuxResults struct {
	JobID   string
	Result  tsl2561.LuxResult
	Reading tsl2561.RawReading
}

type Conditions struct {
	JobID                 string  `json:"jobID"`
	Lux                   float64 `json:"lux"`
	FullSpectrum          float64 `json:"fullSpectrum"`
	Visible               float64 `json:"visible"`
	Infrared              float64 `json:"infrared"`
	RecordedAt            string  `json:"recordedAt,omitempty"`
	DateRange             string  `json:"dateRange,omitempty"`
	RecordedHoursInRange  float64 `json:"recordedHoursInRange"`
	FullSunlightInRange   float64 `json:"fullSunlightInRange"`
	LightConditionInRange string  `json:"lightConditionInRange,omitempty"`
	AverageLuxInRange     float64 `json:"averageLuxInRange"`
}

// New returns a meter for sensor, which may be nil when no sensor could be
// opened. Zero intervals in cfg fall back to the package defaults.
func New(sensor *tsl2561.TSL2561, db *sql.DB, cfg tools.Config, l *logrus.Logger) *SLMeter {
	if cfg.RecordInterval <= 0 {
		cfg.RecordInterval = RECORD_INTERVAL
	}
	if cfg.MaxJobDuration <= 0 {
		cfg.MaxJobDuration = MAX_JOB_DURATION
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &SLMeter{
		TSL2561:        sensor,
		LuxResultsChan: make(chan LuxResults),
		ResultsDB:      db,
		Config:         cfg,
		Log:            l,
	}
}

// Start the sensor, and collect data in a loop
func (m *SLMeter) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.Log.Info("It's going to be a bright day!")
		if m.TSL2561 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		jobID, err := m.StartJob()
		if errors.Is(err, ErrJobRunning) {
			ServeResponse(w, r, "The sensor is already started", http.StatusBadRequest)
			return
		} else if err != nil {
			m.serveError(w, r, err)
			return
		}
		ServeResponse(w, r, "Sunlight Reading Started: "+jobID, http.StatusOK)
	}
}

// Stop the sensor, and cancel the job context
func (m *SLMeter) Stop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.TSL2561 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		if err := m.StopJob(); errors.Is(err, ErrNoJob) {
			ServeResponse(w, r, "The sensor is already stopped", http.StatusBadRequest)
			return
		}
		ServeResponse(w, r, "Sunlight Reading Stopped", http.StatusOK)
	}
}

// StartJob launches a recording job and returns its ID. The job ends after
// Config.MaxJobDuration or when StopJob is called.
func (m *SLMeter) StartJob() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job != nil {
		return "", ErrJobRunning
	}

	// Create a new context with a timeout to manage the sensor lifecycle
	ctx, cancel := context.WithTimeout(context.Background(), m.Config.MaxJobDuration)
	j := &job{
		id:     uuid.New().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.job = j
	go m.record(ctx, j)
	return j.id, nil
}

// StopJob cancels the running job and waits for it to power the sensor down.
func (m *SLMeter) StopJob() error {
	m.mu.Lock()
	j := m.job
	m.mu.Unlock()
	if j == nil {
		return ErrNoJob
	}
	j.cancel()
	<-j.done
	return nil
}

// JobID returns the ID of the running job, or "".
func (m *SLMeter) JobID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job == nil {
		return ""
	}
	return m.job.id
}

func (m *SLMeter) record(ctx context.Context, j *job) {
	defer close(j.done)
	defer func() {
		m.mu.Lock()
		if m.job == j {
			m.job = nil
		}
		m.mu.Unlock()
	}()
	defer j.cancel()

	log := m.Log.WithField("jobID", j.id)
	if err := m.Enable(); err != nil {
		log.WithError(err).Error("The sensor failed to power on")
		return
	}
	defer func() {
		if err := m.Disable(); err != nil {
			log.WithError(err).Warn("The sensor failed to power off")
		}
	}()

	ticker := time.NewTicker(m.Config.RecordInterval)
	defer ticker.Stop()
	for {
		result, reading, err := m.LuxReading(ctx)
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("The sensor failed to get luminosity")
		} else if err == nil {
			select {
			case m.LuxResultsChan <- LuxResults{JobID: j.id, Result: result, Reading: reading}:
			case <-ctx.Done():
			}
		}

		// Check if we've cancelled this job.
		select {
		case <-ctx.Done():
			log.Info("Job Cancelled, stopping sensor")
			return
		case <-ticker.C:
		}
	}
}

// Read from LuxResultsChan, write the results to sqlite, until ctx is done
func (m *SLMeter) MonitorAndRecordResults(ctx context.Context) {
	m.Log.Info("Monitoring for new Sunlight Messages...")
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-m.LuxResultsChan:
			log := m.Log.WithFields(logrus.Fields{
				"jobID":    result.JobID,
				"lux":      result.Result.Lux,
				"channel0": result.Reading.Channel0,
				"channel1": result.Reading.Channel1,
			})
			if !result.Result.Valid() {
				log.Warnf("Lux is %s, skipping record", result.Result.Status)
				continue
			}
			log.Debug("recording reading")
			if err := m.insertResult(ctx, result); err != nil {
				log.WithError(err).Error("failed to record reading")
			}
		}
	}
}

func (m *SLMeter) insertResult(ctx context.Context, result LuxResults) error {
	_, err := m.ResultsDB.ExecContext(ctx,
		`INSERT INTO readings (job_id, lux, status, channel0, channel1, gain, integration_ms, variant, full_spectrum, visible, infrared)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.JobID,
		result.Result.Lux,
		result.Result.Status.String(),
		result.Reading.Channel0,
		result.Reading.Channel1,
		result.Reading.Gain.Multiplier(),
		result.Reading.Timing.Millis(),
		result.Reading.Variant.String(),
		result.Reading.Normalized(tsl2561.FullSpectrum),
		result.Reading.Normalized(tsl2561.Visible),
		result.Reading.Normalized(tsl2561.Infrared),
	)
	return err
}

// Serve data about the most recent entry saved to the db
func (m *SLMeter) CurrentConditions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions, err := m.getCurrentConditions(r.Context())
		if errors.Is(err, sql.ErrNoRows) {
			ServeResponse(w, r, "No readings have been recorded", http.StatusNotFound)
			return
		} else if err != nil {
			m.Log.WithError(err).Error("failed to read current conditions")
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, conditions)
	}
}

// Return the most recent entry saved to the db
func (m *SLMeter) getCurrentConditions(ctx context.Context) (Conditions, error) {
	conditions := Conditions{}
	row := m.ResultsDB.QueryRowContext(ctx, "SELECT job_id, lux, full_spectrum, visible, infrared, created_at FROM readings ORDER BY id DESC LIMIT 1")
	var recordedAt time.Time
	err := row.Scan(&conditions.JobID, &conditions.Lux, &conditions.FullSpectrum, &conditions.Visible, &conditions.Infrared, &recordedAt)
	if err != nil {
		return Conditions{}, err
	}
	conditions.RecordedAt = recordedAt.UTC().Format(tools.LayoutDB)
	return conditions, nil
}

// Reply with a JSON message
func ServeResponse(w http.ResponseWriter, r *http.Request, message string, status int) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// serveError maps driver errors to a status code.
func (m *SLMeter) serveError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tsl2561.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, tsl2561.ErrInvalidHandle):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		m.Log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	ServeResponse(w, r, err.Error(), status)
}
