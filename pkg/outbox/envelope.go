package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event. System jobs leave it nil.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the versioned wrapper stored in outbox_events.payload and
// published as the message value.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func DecodeEnvelope(raw json.RawMessage) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode outbox envelope: %w", err)
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, fmt.Errorf("decode outbox envelope: missing eventId")
	}
	return env, nil
}

// DecodeData unmarshals the envelope's data into dst.
func (e PayloadEnvelope) DecodeData(dst any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("outbox envelope %s has no data", e.EventID)
	}
	return json.Unmarshal(e.Data, dst)
}
