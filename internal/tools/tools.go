package tools

import (
	"net"
	"net/http"
	"time"
)

// Date layouts for range queries. Form values come from a datetime-local
// input; the database stores UTC in sqlite's CURRENT_TIMESTAMP format.
const (
	LayoutInput = "2006-01-02T15:04"
	LayoutDB    = "2006-01-02 15:04:05"
)

var privateBlocks = func() []*net.IPNet {
	var out []*net.IPNet
	for _, block := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7"} {
		_, cidr, _ := net.ParseCIDR(block)
		out = append(out, cidr)
	}
	return out
}()

// Prevent out-of-network requests to sensor control endpoints
func CheckInNetwork(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		parsedIP := net.ParseIP(ip)
		if parsedIP == nil {
			http.Error(w, "Invalid IP address", http.StatusBadRequest)
			return
		}
		if !IsLocalAddress(parsedIP) {
			http.Error(w, "Access denied", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsLocalAddress reports whether ip is loopback or in a private range.
func IsLocalAddress(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	for _, cidr := range privateBlocks {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// ParseStartAndEndDate reads the start and end form values, interpreted in
// loc, and formats them for comparison with the DB. Missing or unparsable
// values default to the last 8 hours.
func ParseStartAndEndDate(r *http.Request, loc *time.Location, now time.Time) (string, string) {
	start := now.UTC().Add(-8 * time.Hour)
	end := now.UTC()
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(LayoutInput, r.FormValue("start"), loc); err == nil {
		start = t.UTC()
	}
	if t, err := time.ParseInLocation(LayoutInput, r.FormValue("end"), loc); err == nil {
		end = t.UTC()
	}
	return start.Format(LayoutDB), end.Format(LayoutDB)
}

func StartAndEndDateToTime(startDate string, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(LayoutDB, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(LayoutDB, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
