package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource runs one query and scans each row with scan.
type PostgresSource[T any] struct {
	db    DB
	name  string
	query string
	scan  func(pgx.Rows) (T, error)
}

func NewPostgresSource[T any](db DB, name, query string, scan func(pgx.Rows) (T, error)) *PostgresSource[T] {
	if db == nil {
		panic("directory: db required")
	}
	return &PostgresSource[T]{db: db, name: name, query: query, scan: scan}
}

func (s *PostgresSource[T]) Load(ctx context.Context) ([]T, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("directory: query %s: %w", s.name, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		item, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("directory: scan %s: %w", s.name, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate %s: %w", s.name, err)
	}
	return result, nil
}

const (
	doctorsQuery = `
		SELECT id, name, specialty, COALESCE(hospital, ''), COALESCE(location, ''), status,
		       rating, distance_km, consultation_fee_minor, joined_at
		FROM doctors
		ORDER BY name ASC`
	patientsQuery = `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(gender, ''),
		       COALESCE(blood_group, ''), COALESCE(assigned_doctor, ''), status, last_visit
		FROM patients
		ORDER BY name ASC`
	customersQuery = `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), tier, status, registered_at
		FROM customers
		ORDER BY name ASC`
	centersQuery = `
		SELECT id, name, COALESCE(address, ''), city, services, status, rating, distance_km
		FROM diagnostic_centers
		ORDER BY name ASC`
	billsQuery = `
		SELECT id, invoice_number, patient_name, COALESCE(department, ''), amount_minor, status, issued_at
		FROM bills
		ORDER BY issued_at DESC`
	deliveriesQuery = `
		SELECT id, order_number, recipient, COALESCE(address, ''), COALESCE(zone, ''),
		       COALESCE(rider, ''), kind, status, scheduled_for
		FROM deliveries
		ORDER BY scheduled_for ASC`
	labTestsQuery = `
		SELECT id, name, category, price_minor, turnaround_hours, requires_fasting
		FROM lab_tests
		ORDER BY name ASC`
)

func NewDoctorsPostgresSource(db DB) *PostgresSource[Doctor] {
	return NewPostgresSource(db, CollectionDoctors, doctorsQuery, func(rows pgx.Rows) (Doctor, error) {
		var d Doctor
		err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.Hospital, &d.Location, &d.Status,
			&d.Rating, &d.DistanceKm, &d.ConsultationFeeMinor, &d.JoinedAt)
		return d, err
	})
}

func NewPatientsPostgresSource(db DB) *PostgresSource[Patient] {
	return NewPostgresSource(db, CollectionPatients, patientsQuery, func(rows pgx.Rows) (Patient, error) {
		var p Patient
		var lastVisit *time.Time
		err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Gender,
			&p.BloodGroup, &p.AssignedDoctor, &p.Status, &lastVisit)
		if lastVisit != nil {
			p.LastVisit = *lastVisit
		}
		return p, err
	})
}

func NewCustomersPostgresSource(db DB) *PostgresSource[Customer] {
	return NewPostgresSource(db, CollectionCustomers, customersQuery, func(rows pgx.Rows) (Customer, error) {
		var c Customer
		err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Tier, &c.Status, &c.RegisteredAt)
		return c, err
	})
}

func NewCentersPostgresSource(db DB) *PostgresSource[DiagnosticCenter] {
	return NewPostgresSource(db, CollectionDiagnosticCenters, centersQuery, func(rows pgx.Rows) (DiagnosticCenter, error) {
		var c DiagnosticCenter
		err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.City, &c.Services, &c.Status, &c.Rating, &c.DistanceKm)
		return c, err
	})
}

func NewBillsPostgresSource(db DB) *PostgresSource[Bill] {
	return NewPostgresSource(db, CollectionBills, billsQuery, func(rows pgx.Rows) (Bill, error) {
		var b Bill
		err := rows.Scan(&b.ID, &b.InvoiceNumber, &b.PatientName, &b.Department, &b.AmountMinor, &b.Status, &b.IssuedAt)
		return b, err
	})
}

func NewDeliveriesPostgresSource(db DB) *PostgresSource[Delivery] {
	return NewPostgresSource(db, CollectionDeliveries, deliveriesQuery, func(rows pgx.Rows) (Delivery, error) {
		var d Delivery
		err := rows.Scan(&d.ID, &d.OrderNumber, &d.Recipient, &d.Address, &d.Zone,
			&d.Rider, &d.Kind, &d.Status, &d.ScheduledFor)
		return d, err
	})
}

func NewLabTestsPostgresSource(db DB) *PostgresSource[LabTest] {
	return NewPostgresSource(db, CollectionLabTests, labTestsQuery, func(rows pgx.Rows) (LabTest, error) {
		var l LabTest
		err := rows.Scan(&l.ID, &l.Name, &l.Category, &l.PriceMinor, &l.TurnaroundHours, &l.RequiresFasting)
		return l, err
	})
}
