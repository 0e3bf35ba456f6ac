package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var jsoniterConfigStandard = jsoniter.ConfigCompatibleWithStandardLibrary

// Event types carried in Envelope.EventType.
const (
	TypeItemCheckedOut = "ItemCheckedOut"
	TypeItemCheckedIn  = "ItemCheckedIn"
	TypeItemOverdue    = "ItemOverdue"
	TypeReminderDue    = "ReminderDue"
)

// Kafka topics. Loan lifecycle events and the reminder outbox are kept on
// separate topics so the mailer only ever sees reminders.
const (
	TopicCheckout  = "belongings.checkout"
	TopicCheckin   = "belongings.checkin"
	TopicOverdue   = "belongings.overdue"
	TopicReminders = "belongings.reminders"
)

var topicByType = map[string]string{
	TypeItemCheckedOut: TopicCheckout,
	TypeItemCheckedIn:  TopicCheckin,
	TypeItemOverdue:    TopicOverdue,
	TypeReminderDue:    TopicReminders,
}

// TopicFor maps an event type to its topic.
func TopicFor(eventType string) (string, error) {
	topic, ok := topicByType[eventType]
	if !ok {
		return "", fmt.Errorf("no topic for event type %q", eventType)
	}
	return topic, nil
}

// Envelope is the wire form shared by every event on the bus. Payload stays
// raw so consumers decode only the types they care about.
type Envelope struct {
	EventID       string              `json:"event_id"`
	EventType     string              `json:"event_type"`
	EventVersion  int                 `json:"event_version"`
	OccurredAt    time.Time           `json:"occurred_at"`
	Producer      string              `json:"producer"`
	CorrelationID string              `json:"correlation_id"`
	Payload       jsoniter.RawMessage `json:"payload"`
}

type CheckoutPayload struct {
	ReservationID string    `json:"reservation_id"`
	Item          string    `json:"item"`
	Kerb          string    `json:"kerb"`
	Expiry        time.Time `json:"expiry"`
}

type CheckinPayload struct {
	Item string `json:"item"`
	Kerb string `json:"kerb"`
}

type OverduePayload struct {
	Item    string `json:"item"`
	Kerb    string `json:"kerb"`
	DueDate string `json:"due_date"` // YYYY-MM-DD
}

type ReminderPayload struct {
	Kerb    string `json:"kerb"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// New builds an envelope around payload. The correlation ID doubles as the
// Kafka partition key so events for one item stay ordered.
func New(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := jsoniterConfigStandard.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Marshal encodes the envelope for the wire.
func Marshal(env Envelope) ([]byte, error) {
	return jsoniterConfigStandard.Marshal(env)
}

// Unmarshal decodes an envelope from the wire.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := jsoniterConfigStandard.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// DecodePayload unpacks the envelope payload into dst.
func DecodePayload(env Envelope, dst any) error {
	if err := jsoniterConfigStandard.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return nil
}
