package directory

import (
	"strings"
	"time"

	"github.com/wolfman30/careportal/internal/listing"
)

// Sorters maps a sort key to a strict-weak-order comparator.
type Sorters[T any] map[string]func(a, b T) bool

func byName(a, b string) bool { return strings.ToLower(a) < strings.ToLower(b) }

func newestFirst(a, b time.Time) bool { return a.After(b) }

var doctorSelectors = listing.FieldSelectors[Doctor]{
	Text: []func(Doctor) string{
		func(d Doctor) string { return d.Name },
		func(d Doctor) string { return d.Specialty },
		func(d Doctor) string { return d.Hospital },
		func(d Doctor) string { return d.Location },
	},
	Category: func(d Doctor) string { return d.Specialty },
	Status:   func(d Doctor) string { return d.Status },
	Date:     func(d Doctor) time.Time { return d.JoinedAt },
}

var doctorSorters = Sorters[Doctor]{
	"distance": func(a, b Doctor) bool { return a.DistanceKm < b.DistanceKm },
	"rating":   func(a, b Doctor) bool { return a.Rating > b.Rating },
	"name":     func(a, b Doctor) bool { return byName(a.Name, b.Name) },
	"date":     func(a, b Doctor) bool { return newestFirst(a.JoinedAt, b.JoinedAt) },
}

var patientSelectors = listing.FieldSelectors[Patient]{
	Text: []func(Patient) string{
		func(p Patient) string { return p.Name },
		func(p Patient) string { return p.Email },
		func(p Patient) string { return p.Phone },
		func(p Patient) string { return p.AssignedDoctor },
	},
	Category: func(p Patient) string { return p.Gender },
	Status:   func(p Patient) string { return p.Status },
	Date:     func(p Patient) time.Time { return p.LastVisit },
}

var patientSorters = Sorters[Patient]{
	"name": func(a, b Patient) bool { return byName(a.Name, b.Name) },
	"date": func(a, b Patient) bool { return newestFirst(a.LastVisit, b.LastVisit) },
}

var customerSelectors = listing.FieldSelectors[Customer]{
	Text: []func(Customer) string{
		func(c Customer) string { return c.Name },
		func(c Customer) string { return c.Email },
		func(c Customer) string { return c.Phone },
	},
	Category: func(c Customer) string { return c.Tier },
	Status:   func(c Customer) string { return c.Status },
	Date:     func(c Customer) time.Time { return c.RegisteredAt },
}

var customerSorters = Sorters[Customer]{
	"name": func(a, b Customer) bool { return byName(a.Name, b.Name) },
	"date": func(a, b Customer) bool { return newestFirst(a.RegisteredAt, b.RegisteredAt) },
}

// Diagnostic centers carry no date, so date filters never match them.
var centerSelectors = listing.FieldSelectors[DiagnosticCenter]{
	Text: []func(DiagnosticCenter) string{
		func(c DiagnosticCenter) string { return c.Name },
		func(c DiagnosticCenter) string { return c.Address },
		func(c DiagnosticCenter) string { return c.City },
		func(c DiagnosticCenter) string { return strings.Join(c.Services, " ") },
	},
	Category: func(c DiagnosticCenter) string { return c.City },
	Status:   func(c DiagnosticCenter) string { return c.Status },
}

var centerSorters = Sorters[DiagnosticCenter]{
	"distance": func(a, b DiagnosticCenter) bool { return a.DistanceKm < b.DistanceKm },
	"rating":   func(a, b DiagnosticCenter) bool { return a.Rating > b.Rating },
	"name":     func(a, b DiagnosticCenter) bool { return byName(a.Name, b.Name) },
}

var billSelectors = listing.FieldSelectors[Bill]{
	Text: []func(Bill) string{
		func(b Bill) string { return b.InvoiceNumber },
		func(b Bill) string { return b.PatientName },
		func(b Bill) string { return b.Department },
	},
	Category: func(b Bill) string { return b.Department },
	Status:   func(b Bill) string { return b.Status },
	Date:     func(b Bill) time.Time { return b.IssuedAt },
}

var billSorters = Sorters[Bill]{
	"amount": func(a, b Bill) bool { return a.AmountMinor > b.AmountMinor },
	"date":   func(a, b Bill) bool { return newestFirst(a.IssuedAt, b.IssuedAt) },
	"name":   func(a, b Bill) bool { return byName(a.PatientName, b.PatientName) },
}

var deliverySelectors = listing.FieldSelectors[Delivery]{
	Text: []func(Delivery) string{
		func(d Delivery) string { return d.OrderNumber },
		func(d Delivery) string { return d.Recipient },
		func(d Delivery) string { return d.Address },
		func(d Delivery) string { return d.Rider },
		func(d Delivery) string { return d.Zone },
	},
	Category: func(d Delivery) string { return d.Kind },
	Status:   func(d Delivery) string { return d.Status },
	Date:     func(d Delivery) time.Time { return d.ScheduledFor },
}

var deliverySorters = Sorters[Delivery]{
	"date": func(a, b Delivery) bool { return a.ScheduledFor.Before(b.ScheduledFor) },
	"name": func(a, b Delivery) bool { return byName(a.Recipient, b.Recipient) },
}

// Lab tests have no status or date.
var labTestSelectors = listing.FieldSelectors[LabTest]{
	Text: []func(LabTest) string{
		func(l LabTest) string { return l.Name },
		func(l LabTest) string { return l.Category },
	},
	Category: func(l LabTest) string { return l.Category },
}

var labTestSorters = Sorters[LabTest]{
	"name":   func(a, b LabTest) bool { return byName(a.Name, b.Name) },
	"amount": func(a, b LabTest) bool { return a.PriceMinor < b.PriceMinor },
}
