package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
)

const (
	CartCheckedOutEventName    = "CartCheckedOut"
	CartCheckedOutEventVersion = 1
	CartCheckedOutSchemaPath   = "contracts/events/cart/CartCheckedOut.v1.enveloped.schema.json"
	CartServiceProducer        = "cart-service"
)

type EventEnvelope struct {
	EventName     string                `json:"eventName"`
	EventVersion  int                   `json:"eventVersion"`
	EventID       string                `json:"eventId"`
	CorrelationID string                `json:"correlationId,omitempty"`
	CausationID   string                `json:"causationId,omitempty"`
	Producer      string                `json:"producer"`
	PartitionKey  string                `json:"partitionKey"`
	Sequence      int64                 `json:"sequence"`
	OccurredAt    time.Time             `json:"occurredAt"`
	Schema        string                `json:"schema"`
	Payload       CartCheckedOutPayload `json:"payload"`
}

// Amounts travel as JSON numbers; they are already rounded to cents.
type CartCheckedOutPayload struct {
	CartID    string               `json:"cartId"`
	UserID    string               `json:"userId"`
	Items     []CartCheckedOutItem `json:"items"`
	Subtotal  float64              `json:"subtotal"`
	Tax       float64              `json:"tax"`
	Total     float64              `json:"totalAmount"`
	Timestamp time.Time            `json:"timestamp"`
}

type CartCheckedOutItem struct {
	Product   string  `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

type EnvelopeOptions struct {
	PartitionKey  string
	Sequence      int64
	Producer      string
	SchemaPath    string
	CorrelationID string
	CausationID   string
	EventID       string
	OccurredAt    time.Time
}

func BuildCartCheckedOutEvent(c *cart.Cart, totals cart.Totals, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	schemaPath := opts.SchemaPath
	if schemaPath == "" {
		schemaPath = CartCheckedOutSchemaPath
	}

	producer := opts.Producer
	if producer == "" {
		producer = CartServiceProducer
	}

	partitionKey := opts.PartitionKey
	if partitionKey == "" {
		partitionKey = c.ID
	}

	payload := CartCheckedOutPayload{
		CartID:    c.ID,
		UserID:    c.UserID,
		Items:     make([]CartCheckedOutItem, 0, c.Len()),
		Subtotal:  totals.Subtotal.InexactFloat64(),
		Tax:       totals.Tax.InexactFloat64(),
		Total:     totals.Total.InexactFloat64(),
		Timestamp: occurredAt,
	}

	for _, it := range c.Items() {
		payload.Items = append(payload.Items, CartCheckedOutItem{
			Product:   it.Product.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.Price.InexactFloat64(),
			LineTotal: it.Total().InexactFloat64(),
		})
	}

	return EventEnvelope{
		EventName:     CartCheckedOutEventName,
		EventVersion:  CartCheckedOutEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		Producer:      producer,
		PartitionKey:  partitionKey,
		Sequence:      opts.Sequence,
		OccurredAt:    occurredAt,
		Schema:        schemaPath,
		Payload:       payload,
	}
}
