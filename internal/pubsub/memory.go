package pubsub

import (
	"context"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// InMemoryPubSub is a process-local pub/sub built on watermill's gochannel.
// Messages published while no subscriber is attached are buffered.
type InMemoryPubSub struct {
	ch *gochannel.GoChannel
}

// NewInMemoryPubSub creates a new in-memory pub/sub.
func NewInMemoryPubSub(log *logger.Logger) *InMemoryPubSub {
	return &InMemoryPubSub{
		ch: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            1024,
				Persistent:                     false,
				BlockPublishUntilSubscriberAck: false,
			},
			newWatermillLogger(log),
		),
	}
}

func (p *InMemoryPubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	msg.SetContext(ctx)
	return p.ch.Publish(topic, msg)
}

func (p *InMemoryPubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.ch.Subscribe(ctx, topic)
}

func (p *InMemoryPubSub) Close() error {
	return p.ch.Close()
}

// watermillLogger adapts our Logger to watermill's LoggerAdapter.
type watermillLogger struct {
	log *logger.Logger
}

func newWatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.log.Errorw(msg, append([]interface{}{"error", err}, fieldsToKV(fields)...)...)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.log.Infow(msg, fieldsToKV(fields)...)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.log.Debugw(msg, fieldsToKV(fields)...)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.log.Debugw(msg, fieldsToKV(fields)...)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return l
}

func fieldsToKV(fields watermill.LogFields) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
