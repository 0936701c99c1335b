package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dw-loader/internal/models"
	"github.com/kjstillabower/weather-dw-loader/internal/observability"
)

// ReportFetcher retrieves one Timeline report for a query.
type ReportFetcher interface {
	FetchReport(ctx context.Context, q Query) (models.RawReport, error)
}

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// maxErrorBody bounds how much of a non-200 body is kept for the error message.
const maxErrorBody = 512

// StatusError reports a non-200 response. The API answers errors with plain text,
// which is kept in Body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match the sentinel for the status class.
// The Timeline API answers an unknown location with 400.
func (e *StatusError) Unwrap() []error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return []error{ErrUnexpectedStatus, ErrInvalidAPIKey}
	case e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusNotFound:
		return []error{ErrUnexpectedStatus, ErrLocationNotFound}
	case e.StatusCode == http.StatusTooManyRequests:
		return []error{ErrUnexpectedStatus, ErrRateLimited}
	case e.StatusCode >= 500:
		return []error{ErrUnexpectedStatus, ErrUpstreamFailure}
	}
	return []error{ErrUnexpectedStatus}
}

// Query is one location and inclusive date range.
type Query struct {
	Location  string
	StartDate string
	EndDate   string
	UnitGroup string
	Elements  []string
	Include   string
}

// TimelineClient calls the Visual Crossing Timeline API. One request per call, no retry.
type TimelineClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	client  *http.Client
}

func NewTimelineClient(apiKey, apiURL string, timeout time.Duration) (*TimelineClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	return &TimelineClient{
		apiKey:  apiKey,
		apiURL:  strings.TrimRight(apiURL, "/"),
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchReport performs a single GET for q and decodes the JSON body.
// Any status other than 200 yields a *StatusError.
func (c *TimelineClient) FetchReport(ctx context.Context, q Query) (models.RawReport, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, q)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		err = fmt.Errorf("build request: %w", err)
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return models.RawReport{}, err
	}

	if corrID := CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("request timeout: %w", err)
		} else {
			err = fmt.Errorf("http request failed: %w", err)
		}
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return models.RawReport{}, err
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(serr))).Inc()
		return models.RawReport{}, serr
	}

	var report models.RawReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		err = fmt.Errorf("parse response: %w", err)
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return models.RawReport{}, err
	}
	return report, nil
}

// BuildURL returns the fully parameterised Timeline URL for q, API key included.
func (c *TimelineClient) BuildURL(q Query) (string, error) {
	base, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}
	if q.Location == "" || q.StartDate == "" || q.EndDate == "" {
		return "", errors.New("location, start date and end date are required")
	}

	base = base.JoinPath(url.PathEscape(q.Location), url.PathEscape(q.StartDate), url.PathEscape(q.EndDate))

	params := url.Values{}
	if q.UnitGroup != "" {
		params.Set("unitGroup", q.UnitGroup)
	}
	if len(q.Elements) > 0 {
		params.Set("elements", strings.Join(q.Elements, ","))
	}
	if q.Include != "" {
		params.Set("include", q.Include)
	}
	params.Set("key", c.apiKey)
	params.Set("contentType", "json")
	base.RawQuery = params.Encode()

	return base.String(), nil
}

func (c *TimelineClient) buildRequest(ctx context.Context, q Query) (*http.Request, error) {
	u, err := c.BuildURL(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type correlationIDKey struct{}

// WithCorrelationID attaches id to ctx; FetchReport forwards it as X-Correlation-ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
