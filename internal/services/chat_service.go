// internal/services/chat_service.go
package services

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/models"
)

// Friendly copy sent to the shopper when a pipeline stage fails. Full error
// detail goes to the logs only.
const (
	assistantUnavailableMessage = "The assistant is temporarily unavailable. Please try again."
	streamInterruptedMessage    = "The reply stream was interrupted. Please try again."
)

var (
	chatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopmate_chat_messages_total",
		Help: "Shopper messages accepted over the chat websocket.",
	})
	chatStreamChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopmate_chat_stream_chunks_total",
		Help: "Streamed reply chunks relayed to clients.",
	})
	chatFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmate_chat_failures_total",
		Help: "Chat pipeline failures by stage.",
	}, []string{"stage"})
)

// ChatService drives one shopper message through the fixed pipeline:
// parse, retrieve, assemble, dispatch, relay. Every message takes the same
// path; there is no shortcut around retrieval.
type ChatService struct {
	rag        *RAGService
	completion *CompletionService
	relay      *StreamRelay
	logger     *logrus.Logger
}

func NewChatService(rag *RAGService, completion *CompletionService, relay *StreamRelay, logger *logrus.Logger) *ChatService {
	return &ChatService{
		rag:        rag,
		completion: completion,
		relay:      relay,
		logger:     logger,
	}
}

// Ready reports whether the pipeline can ground replies in catalog facts.
func (s *ChatService) Ready(ctx context.Context) bool {
	return s.completion.Ready(ctx)
}

// HandleMessage processes a single shopper message end to end and emits the
// resulting events on sink. The returned error reflects what the logs need;
// the shopper has already been told via an error event by the time it
// returns non-nil.
func (s *ChatService) HandleMessage(ctx context.Context, text string, sink EventSink) error {
	chatMessagesTotal.Inc()

	if err := sink.Send(models.NewMessageReceivedEvent(text, models.SenderUser)); err != nil {
		return fmt.Errorf("failed to acknowledge message: %w", err)
	}
	if err := sink.Send(models.NewTypingEvent(true)); err != nil {
		return fmt.Errorf("failed to raise typing indicator: %w", err)
	}
	defer func() {
		_ = sink.Send(models.NewTypingEvent(false))
	}()

	ragCtx := s.rag.BuildContext(ctx, text)
	messages := s.completion.BuildMessages(ragCtx)

	stream, err := s.completion.StreamChat(ctx, messages)
	if err != nil {
		chatFailuresTotal.WithLabelValues("dispatch").Inc()
		s.logger.WithError(err).Error("Chat completion dispatch failed")
		_ = sink.Send(models.NewErrorEvent(assistantUnavailableMessage))
		return err
	}
	defer stream.Close()

	reply, err := s.relay.Relay(ctx, stream, meteredSink{sink})
	if err != nil {
		chatFailuresTotal.WithLabelValues("relay").Inc()
		s.logger.WithError(err).Error("Stream relay failed")
		_ = sink.Send(models.NewErrorEvent(streamInterruptedMessage))
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"query_chars": len(text),
		"reply_chars": len(reply),
		"has_results": ragCtx.HasResults,
	}).Debug("Chat message handled")

	return nil
}

// meteredSink counts relayed chunks without changing delivery order.
type meteredSink struct {
	inner EventSink
}

func (m meteredSink) Send(event models.ChatEvent) error {
	if event.Type == models.EventStreamChunk {
		chatStreamChunksTotal.Inc()
	}
	return m.inner.Send(event)
}
