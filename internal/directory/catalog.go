package directory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careportal/pkg/logging"
)

// Lister is a collection with its entity type erased.
type Lister interface {
	Name() string
	Sorts() []string
	List(ctx context.Context, q Query) (Result, error)
	Find(ctx context.Context, id string) (Record, error)
}

// Catalog maps collection names to listers.
type Catalog struct {
	listers map[string]Lister
	order   []string
}

func NewCatalog(listers ...Lister) *Catalog {
	c := &Catalog{listers: make(map[string]Lister, len(listers))}
	for _, l := range listers {
		if _, ok := c.listers[l.Name()]; !ok {
			c.order = append(c.order, l.Name())
		}
		c.listers[l.Name()] = l
	}
	return c
}

// Get returns the named lister or ErrUnknownCollection.
func (c *Catalog) Get(name string) (Lister, error) {
	l, ok := c.listers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return l, nil
}

// Names lists collections in registration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Find resolves one record from a named collection.
func (c *Catalog) Find(ctx context.Context, collection, id string) (Record, error) {
	l, err := c.Get(collection)
	if err != nil {
		return Record{}, err
	}
	return l.Find(ctx, id)
}

// Sources holds one source per entity kind.
type Sources struct {
	Doctors    Source[Doctor]
	Patients   Source[Patient]
	Customers  Source[Customer]
	Centers    Source[DiagnosticCenter]
	Bills      Source[Bill]
	Deliveries Source[Delivery]
	LabTests   Source[LabTest]
}

// FileSources reads every collection from one seed file.
func FileSources(path string) Sources {
	return Sources{
		Doctors:    NewFileSource[Doctor](path, CollectionDoctors),
		Patients:   NewFileSource[Patient](path, CollectionPatients),
		Customers:  NewFileSource[Customer](path, CollectionCustomers),
		Centers:    NewFileSource[DiagnosticCenter](path, CollectionDiagnosticCenters),
		Bills:      NewFileSource[Bill](path, CollectionBills),
		Deliveries: NewFileSource[Delivery](path, CollectionDeliveries),
		LabTests:   NewFileSource[LabTest](path, CollectionLabTests),
	}
}

// PostgresSources reads every collection from its table.
func PostgresSources(db DB) Sources {
	return Sources{
		Doctors:    NewDoctorsPostgresSource(db),
		Patients:   NewPatientsPostgresSource(db),
		Customers:  NewCustomersPostgresSource(db),
		Centers:    NewCentersPostgresSource(db),
		Bills:      NewBillsPostgresSource(db),
		Deliveries: NewDeliveriesPostgresSource(db),
		LabTests:   NewLabTestsPostgresSource(db),
	}
}

// Cached wraps every source in a Redis cache with the given TTL.
func (s Sources) Cached(client *redis.Client, ttl time.Duration, logger *logging.Logger) Sources {
	return Sources{
		Doctors:    cached(s.Doctors, client, CollectionDoctors, ttl, logger),
		Patients:   cached(s.Patients, client, CollectionPatients, ttl, logger),
		Customers:  cached(s.Customers, client, CollectionCustomers, ttl, logger),
		Centers:    cached(s.Centers, client, CollectionDiagnosticCenters, ttl, logger),
		Bills:      cached(s.Bills, client, CollectionBills, ttl, logger),
		Deliveries: cached(s.Deliveries, client, CollectionDeliveries, ttl, logger),
		LabTests:   cached(s.LabTests, client, CollectionLabTests, ttl, logger),
	}
}

func cached[T any](src Source[T], client *redis.Client, collection string, ttl time.Duration, logger *logging.Logger) Source[T] {
	if src == nil {
		return nil
	}
	return NewCachedSource(src, client, collection, ttl, logger)
}

// BuildCatalog creates the standard collections over the given sources.
// Nil sources are skipped.
func BuildCatalog(src Sources, opts Options) *Catalog {
	var listers []Lister
	if src.Doctors != nil {
		listers = append(listers, NewCollection(CollectionDoctors, src.Doctors, doctorSelectors, doctorSorters, describeDoctor, opts))
	}
	if src.Patients != nil {
		listers = append(listers, NewCollection(CollectionPatients, src.Patients, patientSelectors, patientSorters, describePatient, opts))
	}
	if src.Customers != nil {
		listers = append(listers, NewCollection(CollectionCustomers, src.Customers, customerSelectors, customerSorters, describeCustomer, opts))
	}
	if src.Centers != nil {
		listers = append(listers, NewCollection(CollectionDiagnosticCenters, src.Centers, centerSelectors, centerSorters, describeCenter, opts))
	}
	if src.Bills != nil {
		listers = append(listers, NewCollection(CollectionBills, src.Bills, billSelectors, billSorters, describeBill, opts))
	}
	if src.Deliveries != nil {
		listers = append(listers, NewCollection(CollectionDeliveries, src.Deliveries, deliverySelectors, deliverySorters, describeDelivery, opts))
	}
	if src.LabTests != nil {
		listers = append(listers, NewCollection(CollectionLabTests, src.LabTests, labTestSelectors, labTestSorters, describeLabTest, opts))
	}
	return NewCatalog(listers...)
}

func describeDoctor(d Doctor) Record {
	return Record{ID: d.ID, Label: d.Name, Attributes: map[string]string{
		"specialty":              d.Specialty,
		"hospital":               d.Hospital,
		"consultation_fee_minor": strconv.FormatInt(d.ConsultationFeeMinor, 10),
	}}
}

func describePatient(p Patient) Record {
	return Record{ID: p.ID, Label: p.Name}
}

func describeCustomer(c Customer) Record {
	return Record{ID: c.ID, Label: c.Name, Attributes: map[string]string{"tier": c.Tier}}
}

func describeCenter(c DiagnosticCenter) Record {
	return Record{ID: c.ID, Label: c.Name, Attributes: map[string]string{"city": c.City}}
}

func describeBill(b Bill) Record {
	return Record{ID: b.ID, Label: b.InvoiceNumber, Attributes: map[string]string{
		"amount_minor": strconv.FormatInt(b.AmountMinor, 10),
	}}
}

func describeDelivery(d Delivery) Record {
	return Record{ID: d.ID, Label: d.OrderNumber, Attributes: map[string]string{"kind": d.Kind}}
}

func describeLabTest(l LabTest) Record {
	return Record{ID: l.ID, Label: l.Name, Attributes: map[string]string{
		"category":         l.Category,
		"price_minor":      strconv.FormatInt(l.PriceMinor, 10),
		"requires_fasting": strconv.FormatBool(l.RequiresFasting),
	}}
}
