// Package listing implements the shared list-filtering engine used by every
// directory page: free-text search, category and status selects, an inclusive
// date range and an optional stable sort.
package listing

import (
	"slices"
	"strings"
	"time"
)

// All is the select value meaning "no constraint on this dimension".
const All = "all"

// FilterState is the set of constraints applied to one list view. Empty
// strings and "all" leave a dimension unconstrained; nil dates leave that side
// of the range open.
type FilterState struct {
	Query    string     `json:"query"`
	Category string     `json:"category"`
	Status   string     `json:"status"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	Sort     string     `json:"sort,omitempty"`
}

// FieldSelectors maps filter dimensions onto the fields of one entity kind.
// A nil selector means the kind has no such field; an active filter on that
// dimension then matches nothing.
type FieldSelectors[T any] struct {
	Text     []func(T) string
	Category func(T) string
	Status   func(T) string
	Date     func(T) time.Time
	// Less, when set, orders the result. Ties keep their input order.
	Less func(a, b T) bool
}

// Unconstrained reports whether a select value places no constraint.
func Unconstrained(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, All)
}

// Dimension names a filter dimension.
type Dimension string

const (
	DimensionQuery    Dimension = "query"
	DimensionCategory Dimension = "category"
	DimensionStatus   Dimension = "status"
	DimensionDate     Dimension = "date"
)

// Active lists the dimensions that constrain the result.
func (f FilterState) Active() []Dimension {
	var dims []Dimension
	if strings.TrimSpace(f.Query) != "" {
		dims = append(dims, DimensionQuery)
	}
	if !Unconstrained(f.Category) {
		dims = append(dims, DimensionCategory)
	}
	if !Unconstrained(f.Status) {
		dims = append(dims, DimensionStatus)
	}
	if f.DateFrom != nil || f.DateTo != nil {
		dims = append(dims, DimensionDate)
	}
	return dims
}

// Filter returns the entities satisfying every active dimension of filters.
// The input slice is never modified and the result is always a new, non-nil
// slice.
func Filter[T any](entities []T, filters FilterState, selectors FieldSelectors[T]) []T {
	m := newMatcher(filters, selectors)
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		if m.match(e) {
			out = append(out, e)
		}
	}
	if selectors.Less != nil && len(out) > 1 {
		less := selectors.Less
		slices.SortStableFunc(out, func(a, b T) int {
			switch {
			case less(a, b):
				return -1
			case less(b, a):
				return 1
			default:
				return 0
			}
		})
	}
	return out
}

// Matches reports whether a single entity passes filters.
func Matches[T any](entity T, filters FilterState, selectors FieldSelectors[T]) bool {
	return newMatcher(filters, selectors).match(entity)
}

type matcher[T any] struct {
	query     string
	category  string
	status    string
	from      *time.Time
	to        *time.Time
	selectors FieldSelectors[T]
}

func newMatcher[T any](f FilterState, s FieldSelectors[T]) matcher[T] {
	m := matcher[T]{
		query:     strings.ToLower(strings.TrimSpace(f.Query)),
		from:      f.DateFrom,
		to:        f.DateTo,
		selectors: s,
	}
	if !Unconstrained(f.Category) {
		m.category = f.Category
	}
	if !Unconstrained(f.Status) {
		m.status = f.Status
	}
	return m
}

func (m matcher[T]) match(e T) bool {
	return m.matchQuery(e) &&
		matchExact(e, m.category, m.selectors.Category) &&
		matchExact(e, m.status, m.selectors.Status) &&
		m.matchDate(e)
}

func (m matcher[T]) matchQuery(e T) bool {
	if m.query == "" {
		return true
	}
	for _, field := range m.selectors.Text {
		if field == nil {
			continue
		}
		if strings.Contains(strings.ToLower(field(e)), m.query) {
			return true
		}
	}
	return false
}

func matchExact[T any](e T, want string, field func(T) string) bool {
	if want == "" {
		return true
	}
	if field == nil {
		return false
	}
	return field(e) == want
}

func (m matcher[T]) matchDate(e T) bool {
	if m.from == nil && m.to == nil {
		return true
	}
	if m.selectors.Date == nil {
		return false
	}
	d := m.selectors.Date(e)
	if d.IsZero() {
		return false
	}
	if m.from != nil && d.Before(*m.from) {
		return false
	}
	if m.to != nil && d.After(*m.to) {
		return false
	}
	return true
}
