package listing

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of the from/to query parameters.
const DateLayout = "2006-01-02"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	// ErrInvalidDate is returned when from/to cannot be parsed.
	ErrInvalidDate = errors.New("listing: invalid date")
	// ErrInvertedRange is returned when from is after to.
	ErrInvertedRange = errors.New("listing: date_from is after date_to")
)

// ParseFilterState reads q, category, status, from, to and sort from a query
// string. "to" is inclusive through the end of that day (UTC).
func ParseFilterState(values url.Values) (FilterState, error) {
	f := FilterState{
		Query:    values.Get("q"),
		Category: strings.TrimSpace(values.Get("category")),
		Status:   strings.TrimSpace(values.Get("status")),
		Sort:     strings.ToLower(strings.TrimSpace(values.Get("sort"))),
	}
	if f.Query == "" {
		f.Query = values.Get("search")
	}

	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		from, err := time.Parse(DateLayout, raw)
		if err != nil {
			return FilterState{}, fmt.Errorf("%w: from=%q", ErrInvalidDate, raw)
		}
		f.DateFrom = &from
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		to, err := time.Parse(DateLayout, raw)
		if err != nil {
			return FilterState{}, fmt.Errorf("%w: to=%q", ErrInvalidDate, raw)
		}
		end := to.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &end
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return FilterState{}, ErrInvertedRange
	}
	return f, nil
}

// ParsePageRequest reads page and page_size, falling back to defaults for
// missing or out-of-range values.
func ParsePageRequest(values url.Values) (page, pageSize int) {
	page, _ = strconv.Atoi(values.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(values.Get("page_size"))
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
