package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventPublisher_PublishesEnvelope(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "answers")
	require.NoError(t, err)

	publisher := NewWatermillEventPublisher(pubSub, "answers", nil)
	event := NewAnswerScoredEvent(AnswerScoredEvent{AnswerID: 4, QuestionID: 2, Score: 2, MaxScore: 3})
	require.NoError(t, publisher.PublishAnswerEvent(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventAnswerScored), msg.Metadata.Get("event_type"))
		assert.Equal(t, "survey-match-service", msg.Metadata.Get("source"))

		var decoded struct {
			ID   string            `json:"id"`
			Type EventType         `json:"type"`
			Data AnswerScoredEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, event.ID, decoded.ID)
		assert.Equal(t, EventAnswerScored, decoded.Type)
		assert.Equal(t, uint(4), decoded.Data.AnswerID)
		assert.InDelta(t, 2.0, decoded.Data.Score, 1e-9)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestInMemoryEventPublisher_PublishWithoutSubscribers(t *testing.T) {
	publisher := NewInMemoryEventPublisher(PublisherConfig{TopicName: "answers"})
	defer publisher.Close()

	err := publisher.PublishAnswerEvent(context.Background(), NewAnswerSubmittedEvent(AnswerSubmittedEvent{AnswerID: 1}))
	assert.NoError(t, err)
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(nil)
	ctx := context.Background()

	require.NoError(t, mock.PublishAnswerEvent(ctx, NewAnswerSubmittedEvent(AnswerSubmittedEvent{AnswerID: 1})))
	require.NoError(t, mock.PublishAnswerEvent(ctx, NewAnswerScoredEvent(AnswerScoredEvent{AnswerID: 1})))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(EventAnswerScored), 1)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}

func TestNewEvent_Envelope(t *testing.T) {
	a := NewAnswerSubmittedEvent(AnswerSubmittedEvent{AnswerID: 1})
	b := NewAnswerSubmittedEvent(AnswerSubmittedEvent{AnswerID: 1})

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, EventAnswerSubmitted, a.Type)
	assert.Equal(t, "1.0", a.Version)
	assert.False(t, a.Timestamp.IsZero())
}
