package services

import (
	"context"
	"errors"
	"fmt"

	"mealtrack/internal/core"
	"mealtrack/internal/log"
	"mealtrack/internal/metrics"
)

// RecordCreator stores drafts. Satisfied by *records.Store.
type RecordCreator interface {
	Create(d core.Draft) (core.Record, error)
}

// EventPublisher announces stored records. Satisfied by *amqp.Client.
type EventPublisher interface {
	PublishRecordCreated(ctx context.Context, rec core.Record) error
}

// RecordService orchestrates record creation: store, log, count and publish.
type RecordService struct {
	store     RecordCreator
	publisher EventPublisher
	logger    *log.Logger
	slog      *log.StructuredLogger
}

// NewRecordService wires the service. publisher may be nil when events are
// disabled.
func NewRecordService(store RecordCreator, publisher EventPublisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentRecords)
	return &RecordService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		slog:      log.NewStructuredLogger(logger),
	}
}

// Submit validates raw input and creates the record.
func (s *RecordService) Submit(ctx context.Context, in core.FormInput) (core.Record, error) {
	d, err := in.Draft()
	if err != nil {
		metrics.RecordCreateFailed(metrics.ReasonValidation)
		s.logger.WarnContext(ctx, "Rejected record submission",
			log.FieldOperation, log.OpValidate,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err.Error())
		return core.Record{}, err
	}
	return s.Create(ctx, d)
}

// Create stores the draft locally, then publishes the event. A failed
// publish is logged and never fails the create.
func (s *RecordService) Create(ctx context.Context, d core.Draft) (core.Record, error) {
	rec, err := s.store.Create(d)
	if err != nil {
		reason := metrics.ReasonValidation
		if errors.Is(err, core.ErrInvalidDateFormat) {
			reason = metrics.ReasonDate
		}
		metrics.RecordCreateFailed(reason)
		s.logger.WarnContext(ctx, "Record not created",
			log.FieldOperation, log.OpCreate,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err.Error())
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}

	metrics.RecordCreated(rec.Meal.String(), rec.IsInvalid())
	s.slog.LogRecordCreated(ctx, rec.ID, core.Encode(rec.Date), rec.Meal.String(), rec.Calories)

	if err := s.publish(ctx, rec); err != nil {
		s.slog.LogError(ctx, "Failed to publish record event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithErrorType(log.ErrorTypeNetwork))
	}

	return rec, nil
}

func (s *RecordService) publish(ctx context.Context, rec core.Record) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Events disabled, skipping record event", log.FieldRecordID, rec.ID)
		return nil
	}
	err := s.publisher.PublishRecordCreated(ctx, rec)
	metrics.EventPublished(err)
	return err
}
