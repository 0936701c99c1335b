package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ErrLocationEmpty is returned when location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when location contains characters that cannot sit in a URL path segment.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date")

// ErrDateRangeInverted is returned when the end date precedes the start date.
var ErrDateRangeInverted = errors.New("end date before start date")

const dateLayout = "2006-01-02"

// ValidateLocation trims the input, enforces a maximum length (runes), and restricts
// to letters (Unicode), digits, space, comma, hyphen and period so both place names
// ("London, UK") and coordinates ("51.5,-0.12") pass.
func ValidateLocation(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrLocationEmpty
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.':
		return true
	}
	return false
}

// ValidateDateRange parses start and end as YYYY-MM-DD and checks start <= end.
func ValidateDateRange(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %q", ErrInvalidDate, start)
	}
	e, err := time.Parse(dateLayout, strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", ErrInvalidDate, end)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s > %s", ErrDateRangeInverted, start, end)
	}
	return s, e, nil
}
