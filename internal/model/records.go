package model

import "time"

// Person is a named party attached to a booking record.
type Person struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Doctor is the practitioner attached to a booking record.
type Doctor struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Clinic is the location attached to an appointment.
type Clinic struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Appointment is a clinic booking as stored by the admin backend.
// Nested parties are optional; exports render missing values as "N/A".
type Appointment struct {
	ID        string     `json:"id"`
	Patient   *Person    `json:"patient,omitempty"`
	Doctor    *Doctor    `json:"doctor,omitempty"`
	Clinic    *Clinic    `json:"clinic,omitempty"`
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Mode      string     `json:"mode"`   // online | in-person
	Status    string     `json:"status"` // pending | confirmed | completed | cancelled
	Notes     string     `json:"notes"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Referral is a patient referral carrying a commission for the referrer.
type Referral struct {
	ID               string     `json:"id"`
	Referrer         *Person    `json:"referrer,omitempty"`
	Patient          *Person    `json:"patient,omitempty"`
	Doctor           *Doctor    `json:"doctor,omitempty"`
	Type             string     `json:"type"`
	Status           string     `json:"status"` // pending | accepted | completed | rejected
	CommissionAmount float64    `json:"commissionAmount"`
	ReferralDate     *time.Time `json:"referralDate,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}
