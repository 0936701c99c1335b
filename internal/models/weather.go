package models

import "time"

// DateLayout is the calendar date format written to the warehouse.
const DateLayout = "2006-01-02"

// DailyWeatherRecord is one warehouse row: the weather for a single calendar day at one location.
type DailyWeatherRecord struct {
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Temperature *float64  `json:"temperature"`
	WindSpeed   *float64  `json:"windSpeed"`
	Description *string   `json:"description,omitempty"`
}

// DateString returns the record date in DateLayout.
func (r DailyWeatherRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// RawReport is the decoded Timeline API response body.
type RawReport struct {
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ResolvedAddress string   `json:"resolvedAddress"`
	Address         string   `json:"address"`
	Timezone        string   `json:"timezone"`
	Days            []RawDay `json:"days"`
}

// RawDay is one entry of the report's days array. Fields are pointers so absent values stay nil.
type RawDay struct {
	Datetime    *string  `json:"datetime"`
	Temp        *float64 `json:"temp"`
	WindSpeed   *float64 `json:"windspeed"`
	Description *string  `json:"description"`
}
