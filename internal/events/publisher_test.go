package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
}

type fakeChannel struct {
	declared   []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	_, hasDeadline := ctx.Deadline()
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg, deadline: hasDeadline})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeSequences struct {
	next map[string]int64
	err  error
}

func (f *fakeSequences) NextSequence(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next[key]++
	return f.next[key], nil
}

func TestNewPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, &fakeSequences{next: map[string]int64{}}, PublisherOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{EventsExchange + "/topic"}, ch.declared)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)

	_, err = NewPublisher(&fakeChannel{declareErr: errors.New("channel closed")}, &fakeSequences{}, PublisherOptions{}, nil)
	assert.ErrorContains(t, err, "declare events exchange")

	_, err = NewPublisher(nil, &fakeSequences{}, PublisherOptions{}, nil)
	assert.Error(t, err)

	_, err = NewPublisher(&fakeChannel{}, nil, PublisherOptions{}, nil)
	assert.Error(t, err)
}

func TestPublishCartCheckedOut(t *testing.T) {
	ctx := context.Background()
	c, totals := breakfastCart(t)

	t.Run("publishes enveloped event with increasing sequence", func(t *testing.T) {
		ch := &fakeChannel{}
		p, err := NewPublisher(ch, &fakeSequences{next: map[string]int64{}}, PublisherOptions{Producer: "cart-service-test"}, nil)
		require.NoError(t, err)

		meta := PublishMeta{CorrelationID: "corr-1", CausationID: "cause-1"}
		require.NoError(t, p.PublishCartCheckedOut(ctx, c, totals, meta))
		require.NoError(t, p.PublishCartCheckedOut(ctx, c, totals, meta))

		require.Len(t, ch.published, 2)
		first := ch.published[0]
		assert.Equal(t, EventsExchange, first.exchange)
		assert.Equal(t, CartCheckedOutRoutingKey, first.key)
		assert.Equal(t, "application/json", first.msg.ContentType)
		assert.Equal(t, amqp.Persistent, first.msg.DeliveryMode)
		assert.Equal(t, "corr-1", first.msg.CorrelationId)
		assert.True(t, first.deadline)

		var env EventEnvelope
		require.NoError(t, json.Unmarshal(first.msg.Body, &env))
		assert.Equal(t, first.msg.MessageId, env.EventID)
		assert.Equal(t, "cart-service-test", env.Producer)
		assert.Equal(t, "corr-1", env.CorrelationID)
		assert.Equal(t, "cause-1", env.CausationID)
		assert.EqualValues(t, 1, env.Sequence)
		assert.Equal(t, 16.90, env.Payload.Total)

		require.NoError(t, json.Unmarshal(ch.published[1].msg.Body, &env))
		assert.EqualValues(t, 2, env.Sequence)
	})

	t.Run("sequence failure publishes nothing", func(t *testing.T) {
		ch := &fakeChannel{}
		p, err := NewPublisher(ch, &fakeSequences{err: errors.New("db down")}, PublisherOptions{}, nil)
		require.NoError(t, err)

		err = p.PublishCartCheckedOut(ctx, c, totals, PublishMeta{})
		assert.ErrorContains(t, err, "reserve sequence")
		assert.Empty(t, ch.published)
	})

	t.Run("broker failure", func(t *testing.T) {
		ch := &fakeChannel{publishErr: amqp.ErrClosed}
		p, err := NewPublisher(ch, &fakeSequences{next: map[string]int64{}}, PublisherOptions{}, nil)
		require.NoError(t, err)

		err = p.PublishCartCheckedOut(ctx, c, totals, PublishMeta{})
		assert.ErrorIs(t, err, amqp.ErrClosed)
	})

	t.Run("nil cart", func(t *testing.T) {
		p, err := NewPublisher(&fakeChannel{}, &fakeSequences{next: map[string]int64{}}, PublisherOptions{}, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, p.PublishCartCheckedOut(ctx, nil, cart.Totals{}, PublishMeta{}), cart.ErrNilCart)
	})
}
