//go:build integration
// +build integration

package client

import (
	"context"
	"os"
	"testing"
	"time"
)

const timelineURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

func TestTimelineClient_FetchReport_Integration(t *testing.T) {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	c, err := NewTimelineClient(apiKey, timelineURL, 30*time.Second)
	if err != nil {
		t.Fatalf("NewTimelineClient() error = %v", err)
	}

	report, err := c.FetchReport(context.Background(), Query{
		Location:  "London,UK",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-03",
		UnitGroup: "us",
		Elements:  []string{"datetime", "temp", "windspeed", "description"},
		Include:   "days",
	})
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}

	if len(report.Days) != 3 {
		t.Errorf("FetchReport() returned %d days, want 3", len(report.Days))
	}
	if report.Latitude == nil || report.Longitude == nil {
		t.Error("FetchReport() returned no coordinates")
	}
	for i, d := range report.Days {
		if d.Datetime == nil {
			t.Errorf("day %d has no datetime", i)
		}
	}
}

func TestTimelineClient_BadKey_Integration(t *testing.T) {
	if os.Getenv("WEATHER_API_KEY") == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	c, err := NewTimelineClient("not-a-real-key", timelineURL, 30*time.Second)
	if err != nil {
		t.Fatalf("NewTimelineClient() error = %v", err)
	}
	_, err = c.FetchReport(context.Background(), Query{Location: "London,UK", StartDate: "2024-01-01", EndDate: "2024-01-01"})
	if CategorizeError(err) != ErrorCategoryInvalidAPIKey {
		t.Errorf("FetchReport() error = %v, want invalid API key", err)
	}
}
