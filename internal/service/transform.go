package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dw-loader/internal/models"
)

// UnknownLocation is used when the report carries no resolvedAddress.
const UnknownLocation = "Unknown Location"

var (
	ErrMissingDate   = errors.New("day entry has no datetime")
	ErrMalformedDate = errors.New("malformed datetime")
	ErrDuplicateDate = errors.New("duplicate date in report")
)

// dateLayouts are tried in order; the Timeline API sends the first for daily entries.
var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate normalizes an API datetime to midnight UTC of the calendar date it names.
// Offsets are not applied: "2024-01-01T23:00:00-05:00" is 2024-01-01.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// ToRecords turns every day entry of report into one record, hoisting location and
// coordinates from the report root. A missing, malformed or repeated date fails the
// whole report so a partial batch is never loaded.
func ToRecords(report models.RawReport) ([]models.DailyWeatherRecord, error) {
	location := strings.TrimSpace(report.ResolvedAddress)
	if location == "" {
		location = UnknownLocation
	}

	records := make([]models.DailyWeatherRecord, 0, len(report.Days))
	seen := make(map[time.Time]int, len(report.Days))
	for i, day := range report.Days {
		if day.Datetime == nil {
			return nil, fmt.Errorf("day %d: %w", i, ErrMissingDate)
		}
		date, err := ParseDate(*day.Datetime)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i, err)
		}
		if prev, dup := seen[date]; dup {
			return nil, fmt.Errorf("day %d: %w: %s also at day %d", i, ErrDuplicateDate, date.Format(models.DateLayout), prev)
		}
		seen[date] = i

		records = append(records, models.DailyWeatherRecord{
			Date:        date,
			Location:    location,
			Latitude:    report.Latitude,
			Longitude:   report.Longitude,
			Temperature: day.Temp,
			WindSpeed:   day.WindSpeed,
			Description: day.Description,
		})
	}
	return records, nil
}
