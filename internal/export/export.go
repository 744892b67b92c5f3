// Package export writes appointment and referral records to spreadsheet workbooks.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ott-proxy/internal/config"
	"ott-proxy/internal/metrics"
	"ott-proxy/internal/model"
)

// FormatXLSX is the only supported output format.
const FormatXLSX = "xlsx"

// ErrUnsupportedFormat is returned for any format other than xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Record kinds, used in file names and metric labels.
const (
	KindAppointments = "appointments"
	KindReferrals    = "referrals"
)

// Options controls a single export call.
type Options struct {
	Format       string `json:"format"`
	IncludeStats bool   `json:"includeStats"`
}

// WriteError reports a failure to create the export directory or write the workbook.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("export: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Service writes export workbooks under a directory created on first use.
type Service struct {
	mu      sync.Mutex
	dir     string
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a Service writing to export.dir.
// The metrics parameter is optional; pass nil to disable export counting.
func NewService(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		dir:     cfg.Export.Dir,
		now:     time.Now,
		logger:  logger.With("component", "export_service"),
		metrics: m,
	}
}

// ExportAppointments writes records to a new workbook and returns its path.
func (s *Service) ExportAppointments(records []model.Appointment, opts Options) (string, error) {
	rows := make([]Row, 0, len(records))
	for i := range records {
		rows = append(rows, appointmentRow(&records[i]))
	}

	var stats []Stat
	if opts.IncludeStats && len(records) > 0 {
		stats = appointmentStats(records)
	}
	return s.export(KindAppointments, "Appointments", appointmentColumns, rows, stats, opts)
}

// ExportReferrals writes records to a new workbook and returns its path.
func (s *Service) ExportReferrals(records []model.Referral, opts Options) (string, error) {
	rows := make([]Row, 0, len(records))
	for i := range records {
		rows = append(rows, referralRow(&records[i]))
	}

	var stats []Stat
	if opts.IncludeStats && len(records) > 0 {
		stats = referralStats(records)
	}
	return s.export(KindReferrals, "Referrals", referralColumns, rows, stats, opts)
}

func (s *Service) export(kind, sheet string, columns []string, rows []Row, stats []Stat, opts Options) (string, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX {
		s.record(kind, "rejected")
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.record(kind, "error")
		return "", &WriteError{Path: s.dir, Err: err}
	}

	// The lock keeps name selection and the write together so exports in the
	// same millisecond get distinct files.
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.freePath(kind, format, s.now())
	if err != nil {
		s.record(kind, "error")
		return "", &WriteError{Path: s.dir, Err: err}
	}
	if err := writeWorkbook(path, dataSheet(sheet, columns, rows), statsSheet(stats)); err != nil {
		s.record(kind, "error")
		return "", &WriteError{Path: path, Err: err}
	}

	s.record(kind, "ok")
	s.logger.Info("export written",
		"kind", kind,
		"records", len(rows),
		"stats", stats != nil,
		"path", path,
	)
	return path, nil
}

func (s *Service) record(kind, result string) {
	if s.metrics != nil {
		s.metrics.Exports.WithLabelValues(kind, result).Inc()
	}
}

// maxNameAttempts bounds the suffix search for a free file name.
const maxNameAttempts = 1000

// freePath returns the first unused export path for now, appending -1, -2, ...
// to the base name when earlier files already exist.
func (s *Service) freePath(kind, format string, now time.Time) (string, error) {
	base := fileName(kind, format, now)
	stem := strings.TrimSuffix(base, "."+format)
	for n := range maxNameAttempts {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s-%d.%s", stem, n, format)
		}
		path := filepath.Join(s.dir, name)
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("check %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxNameAttempts)
}

// fileNameStamp replaces characters that are awkward in file names.
var fileNameStamp = strings.NewReplacer(":", "-", ".", "-")

// fileName returns <kind>-export-<UTC ISO-8601 timestamp>.<format> with ':'
// and '.' in the timestamp replaced by '-'.
func fileName(kind, format string, now time.Time) string {
	stamp := fileNameStamp.Replace(now.UTC().Format("2006-01-02T15:04:05.000Z"))
	return kind + "-export-" + stamp + "." + format
}
