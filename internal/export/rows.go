package export

import (
	"time"

	"ott-proxy/internal/model"
)

// notAvailable is shown for any missing value.
const notAvailable = "N/A"

// dateLayout formats timestamps in export cells.
const dateLayout = "2006-01-02 15:04"

// Row maps column labels to display values for one sheet row.
type Row map[string]any

var appointmentColumns = []string{
	"Appointment ID",
	"Patient Name",
	"Patient Phone",
	"Patient Email",
	"Doctor Name",
	"Specialty",
	"Clinic",
	"Date",
	"Time",
	"Mode",
	"Status",
	"Notes",
	"Created At",
}

var referralColumns = []string{
	"Referral ID",
	"Referrer Name",
	"Referrer Phone",
	"Patient Name",
	"Patient Phone",
	"Doctor Name",
	"Specialty",
	"Type",
	"Status",
	"Commission Amount",
	"Referral Date",
	"Completed At",
}

func appointmentRow(a *model.Appointment) Row {
	return Row{
		"Appointment ID": orNA(a.ID),
		"Patient Name":   field(a.Patient, func(p *model.Person) string { return p.Name }),
		"Patient Phone":  field(a.Patient, func(p *model.Person) string { return p.Phone }),
		"Patient Email":  field(a.Patient, func(p *model.Person) string { return p.Email }),
		"Doctor Name":    field(a.Doctor, func(d *model.Doctor) string { return d.Name }),
		"Specialty":      field(a.Doctor, func(d *model.Doctor) string { return d.Specialty }),
		"Clinic":         field(a.Clinic, func(c *model.Clinic) string { return c.Name }),
		"Date":           orNA(a.Date),
		"Time":           orNA(a.Time),
		"Mode":           orNA(a.Mode),
		"Status":         orNA(a.Status),
		"Notes":          orNA(a.Notes),
		"Created At":     timeOrNA(a.CreatedAt),
	}
}

func referralRow(r *model.Referral) Row {
	return Row{
		"Referral ID":       orNA(r.ID),
		"Referrer Name":     field(r.Referrer, func(p *model.Person) string { return p.Name }),
		"Referrer Phone":    field(r.Referrer, func(p *model.Person) string { return p.Phone }),
		"Patient Name":      field(r.Patient, func(p *model.Person) string { return p.Name }),
		"Patient Phone":     field(r.Patient, func(p *model.Person) string { return p.Phone }),
		"Doctor Name":       field(r.Doctor, func(d *model.Doctor) string { return d.Name }),
		"Specialty":         field(r.Doctor, func(d *model.Doctor) string { return d.Specialty }),
		"Type":              orNA(r.Type),
		"Status":            orNA(r.Status),
		"Commission Amount": r.CommissionAmount,
		"Referral Date":     timeOrNA(r.ReferralDate),
		"Completed At":      timeOrNA(r.CompletedAt),
	}
}

// values returns the row's cells in column order.
func (r Row) values(columns []string) []any {
	out := make([]any, len(columns))
	for i, col := range columns {
		v, ok := r[col]
		if !ok {
			v = notAvailable
		}
		out[i] = v
	}
	return out
}

// field reads a string from an optional nested record.
func field[T any](v *T, get func(*T) string) string {
	if v == nil {
		return notAvailable
	}
	return orNA(get(v))
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func timeOrNA(t *time.Time) string {
	if t == nil || t.IsZero() {
		return notAvailable
	}
	return t.Format(dateLayout)
}
