package directory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/careportal/internal/listing"
	"github.com/wolfman30/careportal/internal/observability/metrics"
	"github.com/wolfman30/careportal/pkg/logging"
)

// Collection names served by the catalog.
const (
	CollectionDoctors           = "doctors"
	CollectionPatients          = "patients"
	CollectionCustomers         = "customers"
	CollectionDiagnosticCenters = "diagnostic_centers"
	CollectionBills             = "bills"
	CollectionDeliveries        = "deliveries"
	CollectionLabTests          = "lab_tests"
)

// Query is one listing request against a collection.
type Query struct {
	Filters  listing.FilterState
	Page     int
	PageSize int
}

// Result is a type-erased page, ready to encode.
type Result struct {
	Collection    string              `json:"collection"`
	Items         any                 `json:"items"`
	Total         int                 `json:"total"`
	Page          int                 `json:"page"`
	PageSize      int                 `json:"page_size"`
	TotalPages    int                 `json:"total_pages"`
	Sort          string              `json:"sort,omitempty"`
	ActiveFilters []listing.Dimension `json:"active_filters"`
}

// Record is the minimal description of one entity, used to label
// selections made from a collection.
type Record struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Options carries the shared dependencies of every collection.
type Options struct {
	Validator *validator.Validate
	Logger    *logging.Logger
	Metrics   *metrics.ListingMetrics
	Tracer    trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.Validator == nil {
		o.Validator = NewValidator()
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("careportal.internal.directory")
	}
	return o
}

// Collection binds a source to the selectors, sorters and identity of one
// entity kind.
type Collection[T any] struct {
	name      string
	source    Source[T]
	selectors listing.FieldSelectors[T]
	sorters   Sorters[T]
	describe  func(T) Record
	opts      Options
}

func NewCollection[T any](name string, source Source[T], selectors listing.FieldSelectors[T], sorters Sorters[T], describe func(T) Record, opts Options) *Collection[T] {
	if source == nil {
		panic("directory: source required")
	}
	if describe == nil {
		panic("directory: describe required")
	}
	return &Collection[T]{
		name:      name,
		source:    source,
		selectors: selectors,
		sorters:   sorters,
		describe:  describe,
		opts:      opts.withDefaults(),
	}
}

func (c *Collection[T]) Name() string { return c.name }

// Sorts lists the accepted sort keys in lexical order.
func (c *Collection[T]) Sorts() []string {
	keys := make([]string, 0, len(c.sorters))
	for k := range c.sorters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Load reads the source and drops records that fail validation or repeat an
// earlier id. Source failures come back as *LoadError.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	ctx, span := c.opts.Tracer.Start(ctx, "directory.load")
	defer span.End()
	span.SetAttributes(attribute.String("directory.collection", c.name))

	start := time.Now()
	items, err := c.source.Load(ctx)
	c.opts.Metrics.ObserveLoadLatency(c.name, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, &LoadError{Collection: c.name, Err: err}
	}

	clean := make([]T, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if verr := c.opts.Validator.Struct(item); verr != nil {
			c.opts.Logger.Warn("directory record rejected",
				"collection", c.name,
				"index", i,
				"reason", describeValidation(verr),
			)
			c.opts.Metrics.ObserveDropped(c.name, "invalid")
			continue
		}
		id := c.describe(item).ID
		if seen[id] {
			c.opts.Logger.Warn("directory record duplicated", "collection", c.name, "id", id)
			c.opts.Metrics.ObserveDropped(c.name, "duplicate")
			continue
		}
		seen[id] = true
		clean = append(clean, item)
	}
	span.SetAttributes(
		attribute.Int("directory.loaded", len(items)),
		attribute.Int("directory.kept", len(clean)),
	)
	return clean, nil
}

// Page loads, filters, sorts and paginates.
func (c *Collection[T]) Page(ctx context.Context, q Query) (listing.Page[T], error) {
	selectors := c.selectors
	if q.Filters.Sort != "" {
		less, ok := c.sorters[q.Filters.Sort]
		if !ok {
			c.opts.Metrics.ObserveRequest(c.name, "bad_sort")
			return listing.Page[T]{}, fmt.Errorf("%w: %q for %s", ErrUnknownSort, q.Filters.Sort, c.name)
		}
		selectors.Less = less
	}

	items, err := c.Load(ctx)
	if err != nil {
		c.opts.Metrics.ObserveRequest(c.name, "load_error")
		return listing.Page[T]{}, err
	}

	filtered := listing.Filter(items, q.Filters, selectors)
	c.opts.Metrics.ObserveRequest(c.name, "ok")
	c.opts.Metrics.ObserveResults(c.name, len(filtered))
	return listing.Paginate(filtered, q.Page, q.PageSize), nil
}

// List is Page with the item type erased.
func (c *Collection[T]) List(ctx context.Context, q Query) (Result, error) {
	page, err := c.Page(ctx, q)
	if err != nil {
		return Result{}, err
	}
	active := q.Filters.Active()
	if active == nil {
		active = []listing.Dimension{}
	}
	return Result{
		Collection:    c.name,
		Items:         page.Items,
		Total:         page.Total,
		Page:          page.Page,
		PageSize:      page.PageSize,
		TotalPages:    page.TotalPages,
		Sort:          q.Filters.Sort,
		ActiveFilters: active,
	}, nil
}

// Find returns the record with id.
func (c *Collection[T]) Find(ctx context.Context, id string) (Record, error) {
	items, err := c.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, item := range items {
		if rec := c.describe(item); rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
}
