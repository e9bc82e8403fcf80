// Package directory loads the portal's entity collections (doctors,
// patients, bills and so on), validates them where they enter the process
// and serves filtered, sorted pages of them.
package directory

import "time"

// Doctor statuses.
const (
	DoctorAvailable = "available"
	DoctorBusy      = "busy"
	DoctorOnLeave   = "on_leave"
)

type Doctor struct {
	ID                   string    `json:"id" validate:"required"`
	Name                 string    `json:"name" validate:"required"`
	Specialty            string    `json:"specialty" validate:"required"`
	Hospital             string    `json:"hospital"`
	Location             string    `json:"location"`
	Status               string    `json:"status" validate:"required,oneof=available busy on_leave"`
	Rating               float64   `json:"rating" validate:"gte=0,lte=5"`
	DistanceKm           float64   `json:"distance_km" validate:"gte=0"`
	ConsultationFeeMinor int64     `json:"consultation_fee_minor" validate:"gte=0"`
	JoinedAt             time.Time `json:"joined_at"`
}

type Patient struct {
	ID             string    `json:"id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	Email          string    `json:"email" validate:"omitempty,email"`
	Phone          string    `json:"phone" validate:"omitempty,phone_number"`
	Gender         string    `json:"gender" validate:"omitempty,oneof=female male other"`
	BloodGroup     string    `json:"blood_group" validate:"omitempty,blood_group"`
	AssignedDoctor string    `json:"assigned_doctor"`
	Status         string    `json:"status" validate:"required,oneof=active inactive critical discharged"`
	LastVisit      time.Time `json:"last_visit"`
}

type Customer struct {
	ID           string    `json:"id" validate:"required"`
	Name         string    `json:"name" validate:"required"`
	Email        string    `json:"email" validate:"omitempty,email"`
	Phone        string    `json:"phone" validate:"omitempty,phone_number"`
	Tier         string    `json:"tier" validate:"required,oneof=basic premium corporate"`
	Status       string    `json:"status" validate:"required,oneof=active suspended churned"`
	RegisteredAt time.Time `json:"registered_at"`
}

type DiagnosticCenter struct {
	ID         string   `json:"id" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	Address    string   `json:"address"`
	City       string   `json:"city" validate:"required"`
	Services   []string `json:"services"`
	Status     string   `json:"status" validate:"required,oneof=open closed"`
	Rating     float64  `json:"rating" validate:"gte=0,lte=5"`
	DistanceKm float64  `json:"distance_km" validate:"gte=0"`
}

type Bill struct {
	ID            string    `json:"id" validate:"required"`
	InvoiceNumber string    `json:"invoice_number" validate:"required"`
	PatientName   string    `json:"patient_name" validate:"required"`
	Department    string    `json:"department"`
	AmountMinor   int64     `json:"amount_minor" validate:"gte=0"`
	Status        string    `json:"status" validate:"required,oneof=paid pending overdue cancelled"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Delivery kinds.
const (
	DeliveryPharmacy  = "pharmacy"
	DeliveryAmbulance = "ambulance"
)

type Delivery struct {
	ID           string    `json:"id" validate:"required"`
	OrderNumber  string    `json:"order_number" validate:"required"`
	Recipient    string    `json:"recipient" validate:"required"`
	Address      string    `json:"address"`
	Zone         string    `json:"zone"`
	Rider        string    `json:"rider"`
	Kind         string    `json:"kind" validate:"required,oneof=pharmacy ambulance"`
	Status       string    `json:"status" validate:"required,oneof=pending dispatched in_transit delivered cancelled"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

type LabTest struct {
	ID              string `json:"id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Category        string `json:"category" validate:"required"`
	PriceMinor      int64  `json:"price_minor" validate:"gte=0"`
	TurnaroundHours int    `json:"turnaround_hours" validate:"gte=0"`
	RequiresFasting bool   `json:"requires_fasting"`
}
