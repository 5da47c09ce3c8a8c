// Package redisqueue consumes CRM trigger events from a Redis list.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/vantagecrm/automation/pkg/models"
)

// Submitter receives the trigger events popped off the queue.
type Submitter interface {
	Submit(triggerType models.TriggerType, payload models.EventPayload) error
}

// envelope is the wire format CRM producers push onto the list.
type envelope struct {
	Type    models.TriggerType  `json:"type"`
	Payload models.EventPayload `json:"payload"`
}

// Config connects the source to one Redis list.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// Source pops JSON trigger envelopes from a Redis list and submits them to
// the dispatcher.
type Source struct {
	config    Config
	submitter Submitter
	logger    *slog.Logger

	client *redis.Client
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewSource(config Config, submitter Submitter, logger *slog.Logger) (*Source, error) {
	if config.Queue == "" {
		return nil, errors.New("redis queue name is required")
	}

	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	return &Source{
		config:    config,
		submitter: submitter,
		stopCh:    make(chan struct{}),
		logger: logger.With(
			"module", "redisqueue_source",
			"queue", config.Queue,
		),
	}, nil
}

func (s *Source) Start(ctx context.Context) error {
	s.client = redis.NewClient(&redis.Options{
		Addr:     s.config.Addr,
		Password: s.config.Password,
		DB:       s.config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s.logger.InfoContext(ctx, "Connected to Redis", "addr", s.config.Addr, "db", s.config.DB)

	s.wg.Add(1)

	go s.consume(ctx)

	return nil
}

func (s *Source) Stop(ctx context.Context) error {
	close(s.stopCh)
	s.wg.Wait()

	if s.client != nil {
		err := s.client.Close()
		if err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Redis queue source stopped")

	return nil
}

func (s *Source) consume(ctx context.Context) {
	defer s.wg.Done()

	s.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			err := s.processMessage(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (s *Source) processMessage(ctx context.Context) error {
	result, err := s.client.BLPop(ctx, 1*time.Second, s.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var event envelope

	err = json.Unmarshal([]byte(result[1]), &event)
	if err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed queue message", "error", err)

		return nil
	}

	if !event.Type.Valid() {
		s.logger.WarnContext(ctx, "Discarding message with unknown trigger type", "trigger_type", event.Type)

		return nil
	}

	err = s.submitter.Submit(event.Type, event.Payload)
	if err != nil {
		// Queue-full is the producer's signal to slow down; the message is
		// dropped and logged rather than retried here.
		s.logger.ErrorContext(ctx, "Failed to submit trigger event", "trigger_type", event.Type, "error", err)
	}

	return nil
}
