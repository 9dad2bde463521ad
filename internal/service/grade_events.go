package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Grade event types emitted to the notification/audit sink.
const (
	GradeEventChanged        = "grade.changed"
	GradeEventAppealResolved = "appeal.resolved"
)

// GradeEvent describes a grade mutation or appeal resolution for downstream
// consumers (notification fan-out, external audit sinks).
type GradeEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	OldScore     *float64  `json:"old_score"`
	NewScore     *float64  `json:"new_score"`
	Reason       string    `json:"reason"`
	At           time.Time `json:"at"`
}

// GradeEventPublisher delivers grade events to interested observers.
// Delivery is fire-and-forget: failures are logged and never propagate into
// the mutation that triggered the event.
type GradeEventPublisher interface {
	Publish(ctx context.Context, event GradeEvent)
}

type brokerGradePublisher struct {
	redis       *redis.Client
	redisChan   string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
}

// NewGradeEventPublisher constructs a publisher backed by redis pub/sub and
// NATS. Either backend may be nil; publishing degrades gracefully.
func NewGradeEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) GradeEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":grades"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grades"
	}

	return &brokerGradePublisher{
		redis:       redisClient,
		redisChan:   channel,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "grade_event_publisher").Logger(),
	}
}

func (p *brokerGradePublisher) Publish(ctx context.Context, event GradeEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode grade event")
		return
	}

	if p.redis != nil && p.redisChan != "" {
		if err := p.redis.Publish(ctx, p.redisChan, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish grade event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish grade event to nats")
		}
	}
}

type noopGradePublisher struct{}

func (noopGradePublisher) Publish(context.Context, GradeEvent) {}

// NewNoopGradeEventPublisher returns a publisher that drops every event.
func NewNoopGradeEventPublisher() GradeEventPublisher {
	return noopGradePublisher{}
}
