package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/dentalbook/internal/clinic"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

var reportsTracer = otel.Tracer("dentalbook.internal.reports")

var ErrInvalidRange = errors.New("reports: invalid date range")

// ProfileSource provides the clinic name for title blocks.
type ProfileSource interface {
	Get(ctx context.Context) (*clinic.Profile, error)
}

type Service struct {
	store    store.AppointmentStore
	profiles ProfileSource
	exporter *Exporter
	archive  *Archive
	metrics  *metrics.ClinicMetrics
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(st store.AppointmentStore, profiles ProfileSource, exporter *Exporter, archive *Archive, m *metrics.ClinicMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if exporter == nil {
		exporter = NewExporter(nil, m, logger)
	}
	return &Service{
		store:    st,
		profiles: profiles,
		exporter: exporter,
		archive:  archive,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary loads the non-pending appointments in range and reduces them.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	if err := f.Validate(); err != nil {
		return Summary{}, err
	}
	appts, err := s.store.ListAppointments(ctx, store.AppointmentFilter{
		From:     f.Start,
		To:       f.End,
		Statuses: ReportedStatuses,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("reports: list appointments: %w", err)
	}
	return Aggregate(appts, f), nil
}

// Export is a rendered report.
type Export struct {
	Filename   string
	Data       []byte
	ArchiveKey string
}

// Export renders the PDF for the range and archives a copy when an archive
// is configured. Archive failures do not fail the export.
func (s *Service) Export(ctx context.Context, f Filter) (*Export, error) {
	ctx, span := reportsTracer.Start(ctx, "reports.export")
	defer span.End()
	span.SetAttributes(attribute.String("dental.report_range", f.Label()))

	out, err := s.export(ctx, f)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveExport("error")
		return nil, err
	}
	s.metrics.ObserveExport("ok")
	span.SetAttributes(attribute.Int("dental.report_bytes", len(out.Data)))
	return out, nil
}

func (s *Service) export(ctx context.Context, f Filter) (*Export, error) {
	summary, err := s.Summary(ctx, f)
	if err != nil {
		return nil, err
	}

	name := clinic.DefaultProfile("").Name
	if s.profiles != nil {
		if p, err := s.profiles.Get(ctx); err != nil {
			s.logger.Warn("reports: clinic profile unavailable, using default name", "error", err)
		} else if p.Name != "" {
			name = p.Name
		}
	}

	var buf bytes.Buffer
	if err := s.exporter.Render(&buf, summary, name); err != nil {
		return nil, err
	}
	out := &Export{Filename: f.Filename(), Data: buf.Bytes()}

	if s.archive.Enabled() {
		key, err := s.archive.Put(ctx, out.Filename, out.Data, s.now())
		if err != nil {
			s.logger.Warn("reports: archive failed", "error", err, "filename", out.Filename)
		}
		out.ArchiveKey = key
	}
	s.logger.Info("report exported", "filename", out.Filename, "bytes", len(out.Data), "revenue", summary.TotalRevenue)
	return out, nil
}
