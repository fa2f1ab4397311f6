package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"clinic-appointments-server/internal/events"
	"clinic-appointments-server/internal/metrics"
)

var tracer = otel.Tracer("clinic.internal.scheduling")

// Options configures a Service. Zero values fall back to sensible defaults.
type Options struct {
	Location               *time.Location
	DefaultDurationMinutes int
	Cache                  *SlotCache
	Metrics                *metrics.Metrics
	Logger                 zerolog.Logger
	Now                    func() time.Time

	// Invalidations fans cache invalidations out to other instances. Nil
	// keeps them local.
	Invalidations InvalidationBroadcaster
}

// InvalidationBroadcaster tells other instances that a doctor's calendar
// changed.
type InvalidationBroadcaster interface {
	BroadcastInvalidation(ctx context.Context, doctorID string) error
}

// Service implements slot queries, schedule management and the appointment
// lifecycle on top of a Store.
type Service struct {
	store           Store
	publisher       events.Publisher
	loc             *time.Location
	defaultDuration int
	cache           *SlotCache
	invalidations   InvalidationBroadcaster
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	now             func() time.Time
	newToken        func() string
}

// NewService creates a new Service. A nil publisher drops intents.
func NewService(store Store, publisher events.Publisher, opts Options) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultDurationMinutes <= 0 {
		opts.DefaultDurationMinutes = 30
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:           store,
		publisher:       publisher,
		loc:             opts.Location,
		defaultDuration: opts.DefaultDurationMinutes,
		cache:           opts.Cache,
		invalidations:   opts.Invalidations,
		metrics:         opts.Metrics,
		logger:          opts.Logger.With().Str("component", "scheduling").Logger(),
		now:             opts.Now,
		newToken:        newQRToken,
	}
}

// Location returns the clinic time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// newQRToken is random and unrelated to the appointment id.
func newQRToken() string {
	return uuid.NewString()
}

// begin opens a span for op and returns the matching finisher, which records
// err on the span and in metrics.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "scheduling."+op)
	started := time.Now()
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveOperation(op, Kind(*errp), time.Since(started).Seconds())
	}
}

// publish hands an intent to the worker. Failures are logged only.
func (s *Service) publish(ctx context.Context, intent events.Intent) {
	if err := s.publisher.Publish(ctx, intent); err != nil {
		s.metrics.ObserveIntent(string(intent.Type), "publish_failed")
		s.logger.Warn().Err(err).
			Str("intent", string(intent.Type)).
			Str("appointment_id", intent.AppointmentID).
			Msg("failed to publish scheduling intent")
		return
	}
	s.metrics.ObserveIntent(string(intent.Type), "published")
}

// invalidate drops the doctor's cached slots here and, when configured, on
// every other instance. Broadcast failures are logged only; entries elsewhere
// then live until their TTL.
func (s *Service) invalidate(ctx context.Context, doctorID string) {
	s.cache.InvalidateDoctor(doctorID)
	if s.invalidations == nil {
		return
	}
	if err := s.invalidations.BroadcastInvalidation(ctx, doctorID); err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctorID).Msg("failed to broadcast slot cache invalidation")
	}
}
