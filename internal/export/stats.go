package export

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ott-proxy/internal/model"
)

// Stat is one metric/value line of the Statistics sheet.
type Stat struct {
	Metric string
	Value  any
}

func appointmentStats(records []model.Appointment) []Stat {
	statuses := make(map[string]int)
	modes := make(map[string]int)
	for i := range records {
		statuses[normalizeStatus(records[i].Status)]++
		modes[normalizeMode(records[i].Mode)]++
	}

	return []Stat{
		{"Total Appointments", len(records)},
		{"Pending Appointments", statuses["pending"]},
		{"Confirmed Appointments", statuses["confirmed"]},
		{"Completed Appointments", statuses["completed"]},
		{"Cancelled Appointments", statuses["cancelled"]},
		{"Online Appointments", modes["online"]},
		{"In-Person Appointments", modes["in-person"]},
	}
}

// referralStats totals commission over completed referrals only and adds one
// "<Type> Referrals" row per distinct type, sorted by type.
//
// The average divides by max(completed, 1), not by the record count, so with
// no completed referrals it equals the (zero) total.
// TODO: confirm the max(completed, 1) divisor with product.
func referralStats(records []model.Referral) []Stat {
	statuses := make(map[string]int)
	types := make(map[string]int)
	var totalCommission float64
	for i := range records {
		status := normalizeStatus(records[i].Status)
		statuses[status]++
		if t := normalizeStatus(records[i].Type); t != "" {
			types[t]++
		}
		if status == "completed" {
			totalCommission += records[i].CommissionAmount
		}
	}

	completed := statuses["completed"]
	average := totalCommission / float64(max(completed, 1))

	stats := []Stat{
		{"Total Referrals", len(records)},
		{"Pending Referrals", statuses["pending"]},
		{"Accepted Referrals", statuses["accepted"]},
		{"Completed Referrals", completed},
		{"Rejected Referrals", statuses["rejected"]},
	}
	// A Caser is stateful and not safe to share.
	title := cases.Title(language.English)
	for _, t := range slices.Sorted(maps.Keys(types)) {
		stats = append(stats, Stat{title.String(t) + " Referrals", types[t]})
	}
	return append(stats,
		Stat{"Total Commission", totalCommission},
		Stat{"Average Commission", strconv.FormatFloat(average, 'f', 2, 64)},
	)
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "canceled" {
		return "cancelled"
	}
	return s
}

func normalizeMode(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "in_person", "inperson", "in person", "offline", "physical":
		return "in-person"
	case "video", "virtual", "teleconsultation":
		return "online"
	}
	return s
}
