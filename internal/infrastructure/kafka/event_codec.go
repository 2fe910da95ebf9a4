package kafka

import (
	"fmt"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventCodec кодирует события обновления эмбеддингов в protobuf (google.protobuf.Struct).
type EventCodec struct{}

func NewEventCodec() *EventCodec {
	return &EventCodec{}
}

func (EventCodec) EncodeEmbeddingEvent(event *domain.EmbeddingEvent) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"event_id":        event.EventID,
		"event_timestamp": event.OccurredAt.UTC().Format(time.RFC3339Nano),
		"condition_id":    event.ConditionID,
		"model":           event.Model,
		"dimensions":      event.Dimensions,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}

func (EventCodec) DecodeEmbeddingEvent(data []byte) (*domain.EmbeddingEvent, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fields := msg.GetFields()
	occurredAt, err := time.Parse(time.RFC3339Nano, fields["event_timestamp"].GetStringValue())
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("invalid event_timestamp: %w", err))
	}

	return domain.NewEmbeddingEvent(
		fields["event_id"].GetStringValue(),
		fields["condition_id"].GetStringValue(),
		fields["model"].GetStringValue(),
		int(fields["dimensions"].GetNumberValue()),
		occurredAt,
	), nil
}
