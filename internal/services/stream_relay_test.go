// internal/services/stream_relay_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/shopmate-backend/internal/models"
)

type mockSink struct {
	mu     sync.Mutex
	events []models.ChatEvent
	failAt int // fail from the Nth Send on; 0 never fails
	calls  int
}

func (m *mockSink) Send(event models.ChatEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failAt > 0 && m.calls >= m.failAt {
		return errors.New("client gone")
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockSink) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

func TestRelayEventSequence(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{}

	stream := strings.NewReader(
		`{"message":{"content":"Hi"}}` + "\n" +
			`{"message":{"content":" there"}}` + "\n" +
			`{"done":true}` + "\n")

	full, err := relay.Relay(context.Background(), stream, sink)
	require.NoError(t, err)

	assert.Equal(t, "Hi there", full)
	require.Equal(t, []string{
		models.EventStreamStart,
		models.EventStreamChunk,
		models.EventStreamChunk,
		models.EventStreamFinalize,
	}, sink.types())
	assert.Equal(t, "Hi", sink.events[1].Text)
	assert.Equal(t, " there", sink.events[2].Text)
}

func TestRelayStopsAfterDone(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{}

	stream := strings.NewReader(
		`{"message":{"content":"Hi"}}` + "\n" +
			`{"done":true}` + "\n" +
			`{"message":{"content":"ignored"}}` + "\n")

	full, err := relay.Relay(context.Background(), stream, sink)
	require.NoError(t, err)

	assert.Equal(t, "Hi", full)
	assert.Equal(t, []string{
		models.EventStreamStart,
		models.EventStreamChunk,
		models.EventStreamFinalize,
	}, sink.types())
}

func TestRelayContentOnDoneLine(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{}

	stream := strings.NewReader(
		`{"message":{"content":"Hi"}}` + "\n" +
			`{"message":{"content":"!"},"done":true}` + "\n")

	full, err := relay.Relay(context.Background(), stream, sink)
	require.NoError(t, err)

	// The trailing content is emitted before the finalize.
	assert.Equal(t, "Hi!", full)
	assert.Equal(t, []string{
		models.EventStreamStart,
		models.EventStreamChunk,
		models.EventStreamChunk,
		models.EventStreamFinalize,
	}, sink.types())
}

func TestRelaySkipsMalformedLines(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{}

	stream := strings.NewReader(
		"not json at all\n" +
			`{"message":{"content":"Hi"}}` + "\n" +
			"{truncated\n" +
			"\n" +
			`{"done":true}` + "\n")

	full, err := relay.Relay(context.Background(), stream, sink)
	require.NoError(t, err)

	assert.Equal(t, "Hi", full)
	assert.Equal(t, []string{
		models.EventStreamStart,
		models.EventStreamChunk,
		models.EventStreamFinalize,
	}, sink.types())
}

func TestRelayEOFWithoutDoneFinalizes(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{}

	stream := strings.NewReader(`{"message":{"content":"Hi"}}` + "\n")

	full, err := relay.Relay(context.Background(), stream, sink)
	require.NoError(t, err)

	assert.Equal(t, "Hi", full)
	assert.Equal(t, []string{
		models.EventStreamStart,
		models.EventStreamChunk,
		models.EventStreamFinalize,
	}, sink.types())
}

func TestRelayEmptyStream(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{}

	full, err := relay.Relay(context.Background(), strings.NewReader(""), sink)
	require.NoError(t, err)

	// No content means no start and no chunks, but the view still closes.
	assert.Empty(t, full)
	assert.Equal(t, []string{models.EventStreamFinalize}, sink.types())
}

func TestRelaySinkFailureAborts(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{failAt: 2}

	stream := strings.NewReader(
		`{"message":{"content":"Hi"}}` + "\n" +
			`{"message":{"content":" there"}}` + "\n" +
			`{"done":true}` + "\n")

	full, err := relay.Relay(context.Background(), stream, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client sink failed")

	// The start went through; the first chunk did not.
	assert.Equal(t, []string{models.EventStreamStart}, sink.types())
	assert.Empty(t, full)
}

func TestRelayContextCancellation(t *testing.T) {
	relay := NewStreamRelay(testLogger())
	sink := &mockSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := strings.NewReader(`{"message":{"content":"Hi"}}` + "\n" + `{"done":true}` + "\n")

	_, err := relay.Relay(ctx, stream, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.types())
}
