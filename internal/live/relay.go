package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RelayChannel はインスタンス間通知に使うRedis pub/subチャネル。
const RelayChannel = "agrimarket:live"

type relayMessage struct {
	Instance string `json:"instance"`
	Topic    string `json:"topic"`
}

// RedisRelay はRedis pub/subで複数のAPIインスタンスのBrokerを接続する。
// 自インスタンスが送ったメッセージはinstance IDで識別して無視する。
type RedisRelay struct {
	client     *redis.Client
	broker     *Broker
	instanceID string
}

// NewRedisRelay はRedisRelayを生成し、Brokerの転送先として登録する。
func NewRedisRelay(client *redis.Client, broker *Broker, instanceID string) *RedisRelay {
	r := &RedisRelay{client: client, broker: broker, instanceID: instanceID}
	broker.SetForwarder(r)
	return r
}

// Forward はトピックの変更を他インスタンスへ送る。
func (r *RedisRelay) Forward(ctx context.Context, topic string) error {
	payload, err := json.Marshal(relayMessage{Instance: r.instanceID, Topic: topic})
	if err != nil {
		return fmt.Errorf("marshal relay message failed: %w", err)
	}
	if err := r.client.Publish(ctx, RelayChannel, payload).Err(); err != nil {
		slog.Warn("ライブ通知の転送に失敗しました",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Run はコンテキストがキャンセルされるまでチャネルを購読し、
// 他インスタンスからの通知をローカルのBrokerへ配送する。
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, RelayChannel)
	defer sub.Close()

	// 購読確立を待つ
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe failed: %w", err)
	}
	slog.Info("ライブ通知リレーを開始しました", slog.String("instance", r.instanceID))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("relay channel closed")
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(payload string) {
	var m relayMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		slog.Warn("不正なライブ通知を破棄しました", slog.String("error", err.Error()))
		return
	}
	if m.Instance == r.instanceID || m.Topic == "" {
		return
	}
	r.broker.Deliver(m.Topic)
}

var _ Forwarder = (*RedisRelay)(nil)
