// Package portal defines the portal roles and what each role may reach.
package portal

import (
	"slices"
	"strings"
)

type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RolePharmacy     Role = "pharmacy"
	RoleDiagnostics  Role = "diagnostics"
	RoleAmbulance    Role = "ambulance"
	RoleAdmin        Role = "admin"
	RoleFinance      Role = "finance"
	RoleCustomerCare Role = "customer_care"
)

// Roles lists every role in display order.
var Roles = []Role{
	RolePatient, RoleDoctor, RolePharmacy, RoleDiagnostics,
	RoleAmbulance, RoleAdmin, RoleFinance, RoleCustomerCare,
}

// ParseRole accepts a role name in any case, with "-" or " " for "_".
func ParseRole(raw string) (Role, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	r := Role(norm)
	return r, slices.Contains(Roles, r)
}

// Access lists the collections and flows a role may use.
type Access struct {
	Collections []string
	Flows       []string
}

// AccessTable maps roles to their access. Admin is handled separately and
// reaches everything.
type AccessTable map[Role]Access

// DefaultAccess mirrors the portal navigation: each portal sees the lists
// its dashboard shows and starts the bookings it handles.
func DefaultAccess() AccessTable {
	return AccessTable{
		RolePatient: {
			Collections: []string{"doctors", "diagnostic_centers", "lab_tests"},
			Flows:       []string{"doctor-consultation", "lab-test"},
		},
		RoleDoctor: {
			Collections: []string{"patients", "doctors"},
		},
		RolePharmacy: {
			Collections: []string{"deliveries", "customers"},
		},
		RoleDiagnostics: {
			Collections: []string{"diagnostic_centers", "lab_tests", "patients"},
			Flows:       []string{"lab-test"},
		},
		RoleAmbulance: {
			Collections: []string{"deliveries"},
		},
		RoleFinance: {
			Collections: []string{"bills", "customers"},
		},
		RoleCustomerCare: {
			Collections: []string{"customers", "patients", "bills", "deliveries", "doctors"},
			Flows:       []string{"doctor-consultation", "lab-test"},
		},
	}
}

func (t AccessTable) CanList(role Role, collection string) bool {
	if role == RoleAdmin {
		return true
	}
	return slices.Contains(t[role].Collections, collection)
}

func (t AccessTable) CanBook(role Role, flow string) bool {
	if role == RoleAdmin {
		return true
	}
	return slices.Contains(t[role].Flows, flow)
}
