package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesEvents(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := p.Publish(context.Background(), Event{
		Type:       TypePaymentVerified,
		Key:        "course:9",
		OccurredAt: at,
		Payload:    map[string]interface{}{"payment_id": 4},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "course:9", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, TypePaymentVerified, string(msg.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, TypePaymentVerified, decoded["type"])
	assert.Equal(t, float64(4), decoded["payload"].(map[string]interface{})["payment_id"])
	assert.NotContains(t, decoded, "Key")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishReturnsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &recordingWriter{err: boom}}

	assert.ErrorIs(t, p.Publish(context.Background(), Event{Type: TypeEarningsPaid}), boom)
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *KafkaPublisher
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeEnrollmentCreated}))
	assert.NoError(t, p.Close())

	var nop Publisher = NopPublisher{}
	assert.NoError(t, nop.Publish(context.Background()))
}

func TestNewKafkaPublisherTransport(t *testing.T) {
	plainWriter := NewKafkaPublisher(KafkaConfig{Broker: "localhost:9092", Topic: "elms.events"}).writer.(*kafka.Writer)
	assert.Nil(t, plainWriter.Transport)
	assert.Equal(t, "elms.events", plainWriter.Topic)

	saslWriter := NewKafkaPublisher(KafkaConfig{Broker: "b:9092", Topic: "t", Username: "u", Password: "p"}).writer.(*kafka.Writer)
	assert.NotNil(t, saslWriter.Transport)
}
