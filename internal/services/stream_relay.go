// internal/services/stream_relay.go
package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/models"
)

// EventSink receives protocol events bound for one client. Implementations
// must preserve call order; Send returning an error means the client is gone
// and the relay stops emitting.
type EventSink interface {
	Send(event models.ChatEvent) error
}

// relayState tracks where the relay is in one response stream.
type relayState int

const (
	stateAwaitingFirstContent relayState = iota
	stateStreaming
	stateDone
	stateAborted
)

// streamLine is one self-contained record of the line-delimited completion
// response: either a content carrier or the terminal done signal.
type streamLine struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// StreamRelay forwards a line-delimited completion stream to a client sink
// as ordered protocol events: one stream_start when the first content
// arrives, one stream_chunk per content record in arrival order, and exactly
// one stream_finalize.
type StreamRelay struct {
	logger *logrus.Logger
}

func NewStreamRelay(logger *logrus.Logger) *StreamRelay {
	return &StreamRelay{logger: logger}
}

// Relay consumes the stream until the done record, EOF, cancellation, or a
// sink failure, and returns the accumulated response text. Closing the
// stream is the caller's job, on every path.
//
// Malformed lines are logged and skipped; only transport-level failures
// abort. A stream that ends without a done record still finalizes, so the
// client is never left with an open message. After the done record no
// further lines are processed.
func (r *StreamRelay) Relay(ctx context.Context, stream io.Reader, sink EventSink) (string, error) {
	var full strings.Builder
	state := stateAwaitingFirstContent
	chunks := 0

	emit := func(event models.ChatEvent) error {
		if err := sink.Send(event); err != nil {
			state = stateAborted
			return fmt.Errorf("client sink failed: %w", err)
		}
		return nil
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			state = stateAborted
			return full.String(), ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record streamLine
		if err := json.Unmarshal(line, &record); err != nil {
			r.logger.WithError(err).WithField("line", truncateForLog(line)).Warn("Skipping malformed stream line")
			continue
		}

		if content := record.Message.Content; content != "" {
			if state == stateAwaitingFirstContent {
				if err := emit(models.NewStreamStartEvent()); err != nil {
					return full.String(), err
				}
				state = stateStreaming
			}
			if err := emit(models.NewStreamChunkEvent(content)); err != nil {
				return full.String(), err
			}
			full.WriteString(content)
			chunks++
		}

		if record.Done {
			state = stateDone
			if err := emit(models.NewStreamFinalizeEvent()); err != nil {
				return full.String(), err
			}
			r.logger.WithField("chunks", chunks).Debug("Stream completed")
			return full.String(), nil
		}
	}

	if err := scanner.Err(); err != nil {
		state = stateAborted
		return full.String(), fmt.Errorf("stream transport failed: %w", err)
	}

	// EOF without a done record: finalize anyway so the client view stays
	// consistent.
	state = stateDone
	if err := emit(models.NewStreamFinalizeEvent()); err != nil {
		return full.String(), err
	}
	r.logger.WithField("chunks", chunks).Warn("Stream ended without a done record, finalized implicitly")
	return full.String(), nil
}

func truncateForLog(line []byte) string {
	const max = 200
	if len(line) <= max {
		return string(line)
	}
	return string(line[:max]) + "..."
}
