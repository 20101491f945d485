package tools

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLocalAddress(t *testing.T) {
	for ip, want := range map[string]bool{
		"127.0.0.1":   true,
		"::1":         true,
		"10.1.2.3":    true,
		"172.20.0.1":  true,
		"192.168.1.5": true,
		"8.8.8.8":     false,
		"172.32.0.1":  false,
	} {
		assert.Equal(t, want, IsLocalAddress(net.ParseIP(ip)), ip)
	}
}

func TestCheckInNetwork(t *testing.T) {
	h := CheckInNetwork(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.20:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req.RemoteAddr = "203.0.113.9:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.RemoteAddr = "garbage"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseStartAndEndDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	start, end := ParseStartAndEndDate(req, time.UTC, now)
	assert.Equal(t, "2024-06-01 04:00:00", start)
	assert.Equal(t, "2024-06-01 12:00:00", end)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	form := url.Values{"start": {"2024-06-01T08:00"}, "end": {"2024-06-01T09:30"}}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	start, end = ParseStartAndEndDate(req, loc, now)
	assert.Equal(t, "2024-06-01 12:00:00", start)
	assert.Equal(t, "2024-06-01 13:30:00", end)

	s, e, err := StartAndEndDateToTime(start, end)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, e.Sub(s))
}
