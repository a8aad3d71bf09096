// Package events はキャッシュ無効化やメール送信依頼などのドメインイベントを外部へ発行する。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// イベント種別
const (
	TypeCacheInvalidated       = "cache_invalidated"
	TypePasswordResetRequested = "password_reset_requested"
)

// Event は発行するイベント1件を表す。Keyはパーティション振り分けに使う。
type Event struct {
	Type       string            `json:"type"`
	Key        string            `json:"key,omitempty"`
	Paths      []string          `json:"paths,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher はイベントをトピックへ発行するインターフェース。
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Close() error
}

// KafkaPublisher はsegmentio/kafka-goでイベントを発行する。
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher はKafkaPublisherを生成する。
// トピックはメッセージごとに指定するため、Writer自体にはTopicを設定しない。
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish はイベントをJSONにエンコードしてトピックへ書き込む。
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(ev.Key),
		Value: value,
		Time:  ev.OccurredAt,
	}); err != nil {
		return fmt.Errorf("failed to write %s event to %s: %w", ev.Type, topic, err)
	}
	return nil
}

// Close はWriterを閉じ、未送信のメッセージを送り切る。
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher はブローカー未設定時にイベントをログ出力のみで扱う。
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher はLogPublisherを生成する。
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish はイベントをログに出力する。
func (p *LogPublisher) Publish(ctx context.Context, topic string, ev Event) error {
	p.logger.InfoContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("type", ev.Type),
		slog.String("key", ev.Key),
		slog.Any("paths", ev.Paths),
	)
	return nil
}

// Close は何もしない。
func (p *LogPublisher) Close() error { return nil }

// Notifier はドメイン操作に対応するイベントを組み立てて発行する。
type Notifier struct {
	pub               Publisher
	invalidationTopic string
	mailTopic         string
	now               func() time.Time
}

// NewNotifier はNotifierを生成する。
func NewNotifier(pub Publisher, invalidationTopic, mailTopic string) *Notifier {
	return &Notifier{
		pub:               pub,
		invalidationTopic: invalidationTopic,
		mailTopic:         mailTopic,
		now:               time.Now,
	}
}

// InvalidatePaths は描画済みページのキャッシュ無効化イベントを発行する。
func (n *Notifier) InvalidatePaths(ctx context.Context, paths ...string) error {
	return n.pub.Publish(ctx, n.invalidationTopic, Event{
		Type:       TypeCacheInvalidated,
		Key:        "pages",
		Paths:      paths,
		OccurredAt: n.now(),
	})
}

// PasswordResetRequested はパスワード再設定メールの送信依頼イベントを発行する。
// メール送信自体はトピックの購読側が行う。
func (n *Notifier) PasswordResetRequested(ctx context.Context, email, resetURL string, expiresAt time.Time) error {
	return n.pub.Publish(ctx, n.mailTopic, Event{
		Type: TypePasswordResetRequested,
		Key:  email,
		Data: map[string]string{
			"email":      email,
			"reset_url":  resetURL,
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		},
		OccurredAt: n.now(),
	})
}
