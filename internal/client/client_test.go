package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kjstillabower/weather-dw-loader/internal/observability"
	"github.com/kjstillabower/weather-dw-loader/internal/testhelpers"
)

func londonQuery() Query {
	return Query{
		Location:  "London, UK",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-05",
		UnitGroup: "us",
		Elements:  []string{"datetime", "latitude", "longitude", "temp", "windspeed", "description"},
		Include:   "days",
	}
}

func TestNewTimelineClient_RequiresAPIKey(t *testing.T) {
	client, err := NewTimelineClient("", "https://api.test.com/timeline", 2*time.Second)
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("NewTimelineClient() error = %v, want ErrInvalidAPIKey", err)
	}
	if client != nil {
		t.Errorf("NewTimelineClient() expected nil client on error")
	}
}

func TestTimelineClient_BuildURL(t *testing.T) {
	client, err := NewTimelineClient("test-api-key", "https://weather.example.com/rest/services/timeline/", 2*time.Second)
	if err != nil {
		t.Fatalf("NewTimelineClient() error = %v", err)
	}

	got, err := client.BuildURL(londonQuery())
	if err != nil {
		t.Fatalf("BuildURL() error = %v", err)
	}

	wantPrefix := "https://weather.example.com/rest/services/timeline/London%2C%20UK/2024-01-01/2024-01-05?"
	if !strings.HasPrefix(got, wantPrefix) {
		t.Errorf("BuildURL() = %s, want prefix %s", got, wantPrefix)
	}
	for _, part := range []string{
		"unitGroup=us",
		"elements=datetime%2Clatitude%2Clongitude%2Ctemp%2Cwindspeed%2Cdescription",
		"include=days",
		"key=test-api-key",
		"contentType=json",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("BuildURL() = %s, missing %s", got, part)
		}
	}
}

func TestTimelineClient_BuildURL_MissingFields(t *testing.T) {
	client, _ := NewTimelineClient("test-api-key", "https://weather.example.com/timeline", 2*time.Second)
	q := londonQuery()
	q.EndDate = ""
	if _, err := client.BuildURL(q); err == nil {
		t.Fatal("BuildURL() expected error for missing end date, got nil")
	}
}

func TestTimelineClient_FetchReport_Success(t *testing.T) {
	stub := &testhelpers.TimelineStub{Report: testhelpers.SampleReport(5)}
	baseURL := stub.Start(t)

	client, err := NewTimelineClient("test-api-key", baseURL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewTimelineClient() error = %v", err)
	}

	ctx := WithCorrelationID(context.Background(), "corr-42")
	report, err := client.FetchReport(ctx, londonQuery())
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}

	if report.ResolvedAddress != "London, UK" {
		t.Errorf("ResolvedAddress = %q, want London, UK", report.ResolvedAddress)
	}
	if report.Latitude == nil || *report.Latitude != 51.5 {
		t.Errorf("Latitude = %v, want 51.5", report.Latitude)
	}
	if report.Longitude == nil || *report.Longitude != -0.12 {
		t.Errorf("Longitude = %v, want -0.12", report.Longitude)
	}
	if len(report.Days) != 5 {
		t.Fatalf("len(Days) = %d, want 5", len(report.Days))
	}
	first := report.Days[0]
	if first.Datetime == nil || *first.Datetime != "2024-01-01" {
		t.Errorf("Days[0].Datetime = %v, want 2024-01-01", first.Datetime)
	}
	if first.Temp == nil || *first.Temp != 45.2 {
		t.Errorf("Days[0].Temp = %v, want 45.2", first.Temp)
	}

	vars, query, header := stub.LastRequest()
	if vars["location"] != "London, UK" || vars["start"] != "2024-01-01" || vars["end"] != "2024-01-05" {
		t.Errorf("path vars = %v, want location/start/end of the query", vars)
	}
	if query.Get("key") != "test-api-key" {
		t.Errorf("key = %q, want test-api-key", query.Get("key"))
	}
	if query.Get("contentType") != "json" {
		t.Errorf("contentType = %q, want json", query.Get("contentType"))
	}
	if header.Get("X-Correlation-ID") != "corr-42" {
		t.Errorf("X-Correlation-ID = %q, want corr-42", header.Get("X-Correlation-ID"))
	}
}

func TestTimelineClient_FetchReport_ErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantAPIKey bool
	}{
		{"400 bad request", http.StatusBadRequest, "Bad API Request:Invalid location parameter value.", false},
		{"401 unauthorized", http.StatusUnauthorized, "No account found with API key", true},
		{"429 rate limited", http.StatusTooManyRequests, "", false},
		{"500 server error", http.StatusInternalServerError, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &testhelpers.TimelineStub{Status: tt.statusCode, RawBody: tt.body}
			if tt.body == "" {
				stub.RawBody = " "
			}
			client, err := NewTimelineClient("test-api-key", stub.Start(t), 2*time.Second)
			if err != nil {
				t.Fatalf("NewTimelineClient() error = %v", err)
			}

			_, err = client.FetchReport(context.Background(), londonQuery())
			if err == nil {
				t.Fatal("FetchReport() expected error, got nil")
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("FetchReport() error = %T, want *StatusError", err)
			}
			if statusErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.statusCode)
			}
			if !errors.Is(err, ErrUnexpectedStatus) {
				t.Errorf("error %v does not wrap ErrUnexpectedStatus", err)
			}
			if got := errors.Is(err, ErrInvalidAPIKey); got != tt.wantAPIKey {
				t.Errorf("errors.Is(err, ErrInvalidAPIKey) = %v, want %v", got, tt.wantAPIKey)
			}
			if tt.body != "" && !strings.Contains(err.Error(), tt.body) {
				t.Errorf("error %q does not include body %q", err.Error(), tt.body)
			}
			if stub.Calls() != 1 {
				t.Errorf("calls = %d, want exactly 1 (no retry)", stub.Calls())
			}
		})
	}
}

func TestTimelineClient_FetchReport_InvalidJSON(t *testing.T) {
	stub := &testhelpers.TimelineStub{RawBody: "invalid json {"}
	client, _ := NewTimelineClient("test-api-key", stub.Start(t), 2*time.Second)

	_, err := client.FetchReport(context.Background(), londonQuery())
	if err == nil || !strings.Contains(err.Error(), "parse response") {
		t.Fatalf("FetchReport() error = %v, want parse response error", err)
	}
}

func TestTimelineClient_FetchReport_ContextCanceled(t *testing.T) {
	stub := &testhelpers.TimelineStub{Report: testhelpers.SampleReport(1)}
	client, _ := NewTimelineClient("test-api-key", stub.Start(t), 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchReport(ctx, londonQuery())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchReport() error = %v, want context.Canceled", err)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "success"},
		{429, "rate_limited"},
		{404, "client_error"},
		{503, "server_error"},
		{301, "error"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.code); got != tt.want {
			t.Errorf("statusLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestTimelineClient_FetchReport_CountsErrorCategory(t *testing.T) {
	counter := observability.WeatherAPIErrorsTotal.WithLabelValues(string(ErrorCategoryRateLimited))
	before := testutil.ToFloat64(counter)

	stub := &testhelpers.TimelineStub{Status: http.StatusTooManyRequests, RawBody: "Maximum daily cost exceeded"}
	client, _ := NewTimelineClient("test-api-key", stub.Start(t), 2*time.Second)
	if _, err := client.FetchReport(context.Background(), londonQuery()); err == nil {
		t.Fatal("FetchReport() expected error, got nil")
	}

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("weatherApiErrorsTotal{rate_limited} = %v, want %v", got, before+1)
	}
}
