package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaProducer_SendMessage(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w)

	require.NoError(t, p.SendMessage(context.Background(), "events", "N1", map[string]string{"state": "SENT"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "events", w.msgs[0].Topic)
	assert.Equal(t, []byte("N1"), w.msgs[0].Key)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &payload))
	assert.Equal(t, "SENT", payload["state"])
}

func TestKafkaProducer_WriteError(t *testing.T) {
	p := NewProducerWithWriter(&captureWriter{err: errors.New("broker unavailable")})
	assert.Error(t, p.SendMessage(context.Background(), "events", "k", 1))
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(KafkaConfig{})
	assert.Error(t, err)
}
