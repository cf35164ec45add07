package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
)

const publishTimeout = 3 * time.Second

type PublishMeta struct {
	CorrelationID string
	CausationID   string
}

type PublisherOptions struct {
	Producer string
}

type Publisher struct {
	ch       Channel
	seqRepo  SequenceRepository
	producer string
	logger   *zap.Logger
}

// NewRabbitPublisher opens a channel on conn and declares the events exchange.
func NewRabbitPublisher(conn *amqp.Connection, seqRepo SequenceRepository, opts PublisherOptions, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisher(ch, seqRepo, opts, logger)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func NewPublisher(ch Channel, seqRepo SequenceRepository, opts PublisherOptions, logger *zap.Logger) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("amqp channel cannot be nil")
	}
	if seqRepo == nil {
		return nil, errors.New("sequence repository cannot be nil")
	}
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = CartServiceProducer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		ch:       ch,
		seqRepo:  seqRepo,
		producer: producer,
		logger:   logger.Named("events"),
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishCartCheckedOut(ctx context.Context, c *cart.Cart, totals cart.Totals, meta PublishMeta) error {
	if c == nil {
		return cart.ErrNilCart
	}

	seq, err := p.seqRepo.NextSequence(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := BuildCartCheckedOutEvent(c, totals, EnvelopeOptions{
		PartitionKey:  c.ID,
		Sequence:      seq,
		Producer:      p.producer,
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
	})

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal CartCheckedOut envelope: %w", err)
	}

	if err := p.publishJSON(ctx, CartCheckedOutRoutingKey, env.EventID, meta.CorrelationID, body); err != nil {
		return fmt.Errorf("publish CartCheckedOut: %w", err)
	}

	p.logger.Info("published CartCheckedOut",
		zap.String("cartId", c.ID),
		zap.String("eventId", env.EventID),
		zap.Int64("sequence", seq),
		zap.String("correlationId", meta.CorrelationID))
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID, correlationID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     messageID,
			CorrelationId: correlationID,
			Timestamp:     time.Now().UTC(),
			Body:          body,
		},
	)
}
