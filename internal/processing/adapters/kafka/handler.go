package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/Apurer/go-entity-processors/internal/processing"
)

// Message kinds carried on the request topic.
const (
	KindProcessor = "processor"
	KindCriterion = "criterion"
)

var errUnknownKind = errors.New("unknown message kind")

// RequestMessage is one engine request read from the request topic.
type RequestMessage struct {
	Kind      string                       `json:"kind"`
	Processor *processing.ProcessRequest   `json:"processor,omitempty"`
	Criterion *processing.CriterionRequest `json:"criterion,omitempty"`
}

// ReplyMessage is published to the reply topic, keyed by entity id.
type ReplyMessage struct {
	Kind      string                        `json:"kind"`
	Processor *processing.ProcessResponse   `json:"processor,omitempty"`
	Criterion *processing.CriterionResponse `json:"criterion,omitempty"`
}

// Handler consumes engine requests and publishes the response envelopes.
type Handler struct {
	dispatcher processing.Dispatcher
	producer   sarama.SyncProducer
	replyTopic string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewHandler(dispatcher processing.Dispatcher, producer sarama.SyncProducer, replyTopic string, timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		dispatcher: dispatcher,
		producer:   producer,
		replyTopic: replyTopic,
		timeout:    timeout,
		logger:     logger,
	}
}

func (h *Handler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *Handler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *Handler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				h.logger.Info("engine requests: claim closed, exiting ConsumeClaim")
				return nil
			}
			if stop := h.processMessage(sess, message); stop {
				return nil
			}
		case <-sess.Context().Done():
			h.logger.Info("engine requests: session context done, exiting ConsumeClaim")
			return nil
		}
	}
}

// processMessage handles one request. It returns true when consumption must stop
// so the message is redelivered.
func (h *Handler) processMessage(sess sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) bool {
	ctx, cancel := context.WithTimeout(sess.Context(), h.timeout)
	defer cancel()

	reply, err := h.Handle(ctx, message.Value)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("engine request interrupted, message will be reprocessed",
				slog.Int64("offset", message.Offset), slog.String("error", err.Error()))
			return true
		}
		h.logger.Error("engine request dropped",
			slog.Int64("offset", message.Offset), slog.String("error", err.Error()))
		sess.MarkMessage(message, "")
		return false
	}

	partition, offset, err := h.producer.SendMessage(reply)
	if err != nil {
		h.logger.Error("failed to publish engine reply, message will be reprocessed",
			slog.Int64("offset", message.Offset), slog.String("error", err.Error()))
		return true
	}
	h.logger.Debug("engine reply published",
		slog.Int("reply_partition", int(partition)), slog.Int64("reply_offset", offset))
	sess.MarkMessage(message, "")
	return false
}

// Handle dispatches one raw request and builds the reply. Handler failures become
// failure envelopes; only undecodable messages and interruptions return an error.
func (h *Handler) Handle(ctx context.Context, value []byte) (*sarama.ProducerMessage, error) {
	var msg RequestMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return nil, fmt.Errorf("decode engine request: %w", err)
	}

	var reply ReplyMessage
	var key string
	switch msg.Kind {
	case KindProcessor:
		if msg.Processor == nil {
			return nil, fmt.Errorf("processor request body is missing")
		}
		resp, err := h.dispatcher.Process(ctx, *msg.Processor)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			resp = processing.FailedProcessResponse(*msg.Processor, err)
		}
		reply = ReplyMessage{Kind: KindProcessor, Processor: resp}
		key = msg.Processor.EntityID.String()
	case KindCriterion:
		if msg.Criterion == nil {
			return nil, fmt.Errorf("criterion request body is missing")
		}
		resp, err := h.dispatcher.Evaluate(ctx, *msg.Criterion)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			resp = processing.FailedCriterionResponse(*msg.Criterion, err)
		}
		reply = ReplyMessage{Kind: KindCriterion, Criterion: resp}
		key = msg.Criterion.EntityID.String()
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, msg.Kind)
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("encode engine reply: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: h.replyTopic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}, nil
}
