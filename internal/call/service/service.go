package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"restaurant-bridge/backend/internal/call/domain"
	"restaurant-bridge/backend/internal/call/repository"
	"restaurant-bridge/backend/internal/logging"
	"restaurant-bridge/backend/internal/telemetry"
	telemetrydomain "restaurant-bridge/backend/internal/telemetry/domain"
	"restaurant-bridge/backend/internal/tts"
	"restaurant-bridge/backend/internal/usage"
	usagedomain "restaurant-bridge/backend/internal/usage/domain"
)

// Sentinel errors for the call service; the HTTP handler maps them to status codes.
var (
	ErrValidation         = errors.New("validation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultSpeechTimeout = 3 * time.Second
	defaultRecentLimit   = 20
	maxRecentLimit       = 100

	// SpokenConfirmation is what the customer device plays after a call is stored.
	SpokenConfirmation = "少々お待ちください"

	eventSource = "callboard"
)

// Confirmation is returned to the customer after a call is stored.
type Confirmation struct {
	Call           *domain.CallEvent
	Acknowledgment string
	// SpokenText is the phrase Audio renders; set even when Audio is empty.
	SpokenText string
	// Audio is mp3 bytes, or nil when no synthesizer is configured or synthesis failed.
	Audio []byte
}

// Options tunes a CallService. Zero values use the defaults.
type Options struct {
	StoreTimeout  time.Duration
	// SpeechTimeout bounds how long SubmitCall waits for audio after the call is stored,
	// so it adds directly to submit latency.
	SpeechTimeout time.Duration
	VoiceID       string
	RecentLimit   int
}

// CallService implements call submission, resolution and the board reads.
type CallService struct {
	repo    repository.Repository
	usage   usage.UsageRecorder
	events  telemetry.EventEmitter
	speech  tts.Synthesizer
	logger  logrus.FieldLogger
	opts    Options
	tracer  trace.Tracer
	calls   metric.Int64Counter
	resolve metric.Int64Counter
}

// NewCallService returns a CallService. usage, events, speech and logger may be nil.
func NewCallService(
	repo repository.Repository,
	usageRecorder usage.UsageRecorder,
	events telemetry.EventEmitter,
	speech tts.Synthesizer,
	logger logrus.FieldLogger,
	opts Options,
) *CallService {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.SpeechTimeout <= 0 {
		opts.SpeechTimeout = defaultSpeechTimeout
	}
	if opts.RecentLimit <= 0 || opts.RecentLimit > maxRecentLimit {
		opts.RecentLimit = defaultRecentLimit
	}
	meter := otel.Meter("restaurant-bridge/call")
	calls, _ := meter.Int64Counter("bridge.calls.submitted",
		metric.WithDescription("Staff calls stored"))
	resolved, _ := meter.Int64Counter("bridge.calls.resolved",
		metric.WithDescription("Staff calls marked responded"))
	return &CallService{
		repo:    repo,
		usage:   usageRecorder,
		events:  events,
		speech:  speech,
		logger:  logger,
		opts:    opts,
		tracer:  otel.Tracer("restaurant-bridge/call"),
		calls:   calls,
		resolve: resolved,
	}
}

// SubmitCall validates and stores a new pending call. Validation runs before any storage access.
// Usage logging, event emission and speech synthesis never fail the call once it is stored.
func (s *CallService) SubmitCall(ctx context.Context, tableID, callType, message string) (*Confirmation, error) {
	// A blank message is stored as absent; anything else is kept verbatim.
	if strings.TrimSpace(message) == "" {
		message = ""
	}
	call := &domain.CallEvent{
		TableID:  strings.TrimSpace(tableID),
		CallType: strings.TrimSpace(callType),
		Message:  message,
	}
	if err := call.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	ctx, span := s.tracer.Start(ctx, "CallService.SubmitCall", trace.WithAttributes(
		attribute.String("table_id", call.TableID),
		attribute.String("call_type", call.CallType),
	))
	defer span.End()

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	err := s.repo.Append(storeCtx, call)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		s.logger.WithError(err).WithFields(logrus.Fields{
			"table_id":  call.TableID,
			"call_type": call.CallType,
		}).Error("call: append failed")
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	span.SetAttributes(attribute.Int64("call_id", call.ID))
	if s.calls != nil {
		s.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("call_type", call.CallType)))
	}
	s.logger.WithFields(logrus.Fields{
		"call_id":   call.ID,
		"table_id":  call.TableID,
		"call_type": call.CallType,
	}).Info("call: submitted")

	if s.usage != nil {
		s.usage.RecordAsync(&usagedomain.Entry{
			Action:   usagedomain.ActionStaffCall,
			Category: call.CallType,
			TableID:  call.TableID,
		})
	}
	telemetry.EmitAsync(s.events, s.logger, eventFor(telemetrydomain.EventCallSubmitted, call))

	return &Confirmation{
		Call:           call,
		Acknowledgment: Acknowledgment(call),
		SpokenText:     SpokenConfirmation,
		Audio:          s.synthesize(ctx, call),
	}, nil
}

// synthesize returns the spoken confirmation, or nil on any failure.
func (s *CallService) synthesize(ctx context.Context, call *domain.CallEvent) []byte {
	if s.speech == nil {
		return nil
	}
	speechCtx, cancel := context.WithTimeout(ctx, s.opts.SpeechTimeout)
	defer cancel()
	audio, err := s.speech.Synthesize(speechCtx, SpokenConfirmation, s.opts.VoiceID)
	if err != nil {
		s.logger.WithError(err).WithField("call_id", call.ID).Warn("call: confirmation audio unavailable")
		return nil
	}
	return audio
}

// ResolveCall marks a pending call responded. Exactly one of any number of concurrent
// callers for the same id gets true; unknown or already responded ids return false.
func (s *CallService) ResolveCall(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	ctx, span := s.tracer.Start(ctx, "CallService.ResolveCall", trace.WithAttributes(attribute.Int64("call_id", id)))
	defer span.End()

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	changed, err := s.repo.Resolve(storeCtx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		s.logger.WithError(err).WithField("call_id", id).Error("call: resolve failed")
		return false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	span.SetAttributes(attribute.Bool("resolved", changed))
	if !changed {
		return false, nil
	}
	if s.resolve != nil {
		s.resolve.Add(ctx, 1)
	}
	s.logger.WithField("call_id", id).Info("call: resolved")

	event := &telemetrydomain.Event{
		Type:       telemetrydomain.EventCallResolved,
		CallID:     id,
		Status:     string(domain.CallStatusResponded),
		Source:     eventSource,
		OccurredAt: time.Now().UTC(),
	}
	// Best effort: the row is only read to enrich the event.
	if call, err := s.repo.GetByID(storeCtx, id); err == nil && call != nil {
		event = eventFor(telemetrydomain.EventCallResolved, call)
	}
	telemetry.EmitAsync(s.events, s.logger, event)
	return true, nil
}

// ListPending returns pending calls, newest first.
func (s *CallService) ListPending(ctx context.Context) ([]*domain.CallEvent, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	calls, err := s.repo.ListPending(storeCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return calls, nil
}

// ListRecent returns the newest calls of any status. limit <= 0 uses the configured
// default; larger values are capped.
func (s *CallService) ListRecent(ctx context.Context, limit int) ([]*domain.CallEvent, error) {
	if limit <= 0 {
		limit = s.opts.RecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	calls, err := s.repo.ListRecent(storeCtx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return calls, nil
}

// Acknowledgment is the customer-facing text confirming the call for its table.
func Acknowledgment(call *domain.CallEvent) string {
	return fmt.Sprintf("%s Table %s: staff have been notified.", domain.Icon(call.CallType), call.TableID)
}

func eventFor(eventType string, call *domain.CallEvent) *telemetrydomain.Event {
	at := call.CreatedAt
	if call.RespondedAt != nil {
		at = *call.RespondedAt
	}
	return &telemetrydomain.Event{
		Type:       eventType,
		CallID:     call.ID,
		TableID:    call.TableID,
		CallType:   call.CallType,
		Message:    call.Message,
		Status:     string(call.Status),
		Source:     eventSource,
		OccurredAt: at,
	}
}
