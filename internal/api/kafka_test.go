package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/geonotify/internal/reporter"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaReporterPublishes(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}
	k := newKafkaReporter(w, nil)

	ack, err := k.ReportLocation(context.Background(), reporter.Report{
		Latitude: 1.5, Longitude: -2.5, PushToken: "fcm", RadiusMeters: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, ack.Status)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "fcm", string(msg.Key))
	assert.JSONEq(t, `{"latitude":1.5,"longitude":-2.5,"fcmToken":"fcm","radius":100,"isAppActive":false}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "request_id", msg.Headers[0].Key)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaReporterError(t *testing.T) {
	t.Parallel()

	k := newKafkaReporter(&recordingWriter{err: errors.New("broker down")}, nil)
	_, err := k.ReportLocation(context.Background(), reporter.Report{})
	assert.Error(t, err)
}

func TestNewKafkaReporterValidation(t *testing.T) {
	t.Parallel()

	_, err := NewKafkaReporter(KafkaConfig{Topic: "locations"}, nil)
	assert.Error(t, err)
	_, err = NewKafkaReporter(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)

	k, err := NewKafkaReporter(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "locations"}, nil)
	require.NoError(t, err)
	assert.NoError(t, k.Close())
}
