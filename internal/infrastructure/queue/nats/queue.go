package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

const (
	queueGroup = "workers"

	headerMsgID     = "Nats-Msg-Id"
	headerEventKind = "Event-Kind"
)

// Queue carries request events from the api to the worker. Each event kind
// goes to its own subject below the configured prefix, e.g.
// "search.events.search".
type Queue struct {
	conn     *nats.Conn
	prefix   string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, prefix string) (*Queue, error) {
	return NewWithOptions(url, prefix, Options{})
}

func NewWithOptions(url, prefix string, options Options) (*Queue, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("retailtech-search"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		prefix:   prefix,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Record publishes the event. It makes Queue an event sink for the api.
func (q *Queue) Record(ctx context.Context, event domain.Event) error {
	msg, err := encodeMessage(q.prefix, event)
	if err != nil {
		return err
	}

	call := func(context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
		}
		return nil
	}
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeEvents delivers events of every kind to handler until ctx is
// cancelled, then drains the subscription. Undecodable messages are dropped.
func (q *Queue) SubscribeEvents(ctx context.Context, handler func(context.Context, domain.Event) error) error {
	sub, err := q.conn.QueueSubscribe(q.prefix+".>", queueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := decodeMessage(msg)
		if err != nil {
			q.logger.Error("event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, event); err != nil {
			q.logger.Error("event_handler_failed", "event_id", event.ID, "kind", event.Kind, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}

func subjectFor(prefix string, kind domain.EventKind) string {
	if kind == "" {
		kind = "unknown"
	}
	return prefix + "." + string(kind)
}

func encodeMessage(prefix string, event domain.Event) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(subjectFor(prefix, event.Kind))
	msg.Data = data
	msg.Header.Set(headerMsgID, event.ID)
	msg.Header.Set(headerEventKind, string(event.Kind))
	return msg, nil
}

// decodeMessage prefers the header id and kind over the body so that a
// republished message keeps its identity.
func decodeMessage(msg *nats.Msg) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if id := msg.Header.Get(headerMsgID); id != "" {
		event.ID = id
	}
	if kind := msg.Header.Get(headerEventKind); kind != "" {
		event.Kind = domain.EventKind(kind)
	}
	if event.ID == "" {
		return domain.Event{}, errors.New("decode event: missing id")
	}
	return event, nil
}
