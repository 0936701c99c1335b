package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// TimelineStub is a fake Visual Crossing Timeline API. Zero Status means 200.
type TimelineStub struct {
	Status  int
	Report  any
	RawBody string

	mu     sync.Mutex
	calls  int
	vars   map[string]string
	query  url.Values
	header http.Header
}

// Start serves the stub on an httptest server closed at test cleanup and returns
// the Timeline base URL (".../timeline").
func (s *TimelineStub) Start(t testing.TB) string {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/timeline/{location}/{start}/{end}", s.serve).Methods(http.MethodGet)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server.URL + "/timeline"
}

func (s *TimelineStub) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls++
	s.vars = mux.Vars(r)
	s.query = r.URL.Query()
	s.header = r.Header.Clone()
	s.mu.Unlock()

	status := s.Status
	if status == 0 {
		status = http.StatusOK
	}
	if s.RawBody != "" {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(s.RawBody))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if s.Report != nil {
		_ = json.NewEncoder(w).Encode(s.Report)
	}
}

// Calls returns how many requests reached the stub.
func (s *TimelineStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastRequest returns the path variables, query and headers of the most recent request.
func (s *TimelineStub) LastRequest() (map[string]string, url.Values, http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars, s.query, s.header
}

// SampleDescriptions cycles through the per-day descriptions of SampleReport.
var SampleDescriptions = []string{"Partly cloudy", "Clear conditions throughout the day.", "Rain in the afternoon."}

// SampleReport builds a London Timeline payload with days consecutive entries from 2024-01-01.
// Day i has temp 45.2+i and windspeed 8.1+i.
func SampleReport(days int) map[string]any {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]map[string]any, 0, days)
	for i := 0; i < days; i++ {
		entries = append(entries, map[string]any{
			"datetime":    start.AddDate(0, 0, i).Format("2006-01-02"),
			"temp":        45.2 + float64(i),
			"windspeed":   8.1 + float64(i),
			"description": SampleDescriptions[i%len(SampleDescriptions)],
		})
	}
	return map[string]any{
		"latitude":        51.5,
		"longitude":       -0.12,
		"resolvedAddress": "London, UK",
		"address":         "london",
		"timezone":        "Europe/London",
		"days":            entries,
	}
}
