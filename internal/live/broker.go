// Package live はコミット後のデータ変更をサブスクライバーへ通知するイベント層を提供する。
package live

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Event はトピックの変更通知。
// VersionはBroker全体で単調増加する通し番号で、IDはそれにBrokerの起動ごとのエポックを付けたもの。
type Event struct {
	Topic   string `json:"topic"`
	Version uint64 `json:"version"`
	ID      string `json:"id"`
}

// Forwarder は他インスタンスへの通知転送を行う。
type Forwarder interface {
	Forward(ctx context.Context, topic string) error
}

// CartTopic はユーザーのカートのトピック名を返す。
func CartTopic(userID string) string { return "cart:" + userID }

// WishlistTopic はユーザーのウィッシュリストのトピック名を返す。
func WishlistTopic(userID string) string { return "wishlist:" + userID }

// Broker はプロセス内のトピック別サブスクライバーを管理する。
// 各購読チャネルはバッファ1で、読み遅れたサブスクライバーには最新の通知だけが残る。
// トピックのバージョンは購読者がいる間だけ保持し、最後の購読解除で破棄する。
type Broker struct {
	mu        sync.Mutex
	epoch     string
	seq       uint64
	versions  map[string]uint64
	subs      map[string]map[chan Event]struct{}
	forwarder Forwarder
}

// NewBroker はBrokerを生成する。エポックは生成ごとに新しく採番される。
func NewBroker() *Broker {
	return &Broker{
		epoch:    uuid.NewString(),
		versions: make(map[string]uint64),
		subs:     make(map[string]map[chan Event]struct{}),
	}
}

// SetForwarder は他インスタンスへの転送先を設定する。
func (b *Broker) SetForwarder(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarder = f
}

// Subscribe はトピックを購読する。返されたcancelを呼ぶとチャネルは閉じられる。
func (b *Broker) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 1)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
				delete(b.versions, topic)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish はトピックのバージョンを進めてローカルのサブスクライバーに通知し、
// 転送先が設定されていれば他インスタンスにも伝える。
// ストアへの書き込みが成功した後にだけ呼ぶこと。
func (b *Broker) Publish(ctx context.Context, topic string) Event {
	ev := b.Deliver(topic)

	b.mu.Lock()
	f := b.forwarder
	b.mu.Unlock()
	if f != nil {
		// 転送失敗はローカル通知に影響しない
		_ = f.Forward(ctx, topic)
	}
	return ev
}

// Deliver はローカルのサブスクライバーにだけ通知する。リレーからの受信で使う。
// 購読者のいないトピックは状態を残さない。
func (b *Broker) Deliver(topic string) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev := Event{Topic: topic, Version: b.seq, ID: b.EventID(b.seq)}
	subs := b.subs[topic]
	if len(subs) == 0 {
		return ev
	}
	b.versions[topic] = b.seq
	for ch := range subs {
		offer(ch, ev)
	}
	return ev
}

// Version はトピックの現在のバージョンを返す。
// 購読者がいない間や、購読後まだ通知がない場合は0を返す。
func (b *Broker) Version(topic string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.versions[topic]
}

// EventID はバージョンをこのBrokerのエポック付きイベントIDに変換する。
// 再起動後や別インスタンスのIDとは一致しない。
func (b *Broker) EventID(version uint64) string {
	return b.epoch + "-" + strconv.FormatUint(version, 10)
}

// Subscribers はトピックの購読数を返す。
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// offer は古い未読通知を捨ててから最新の通知を入れる。
func offer(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
