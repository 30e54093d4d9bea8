package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/agrimarket/internal/live"
	"github.com/hitoshi/agrimarket/internal/model"
)

// DefaultHeartbeat はSSEのコメント送信間隔。
const DefaultHeartbeat = 25 * time.Second

// LiveSubscriber はトピック購読の窓口。live.Brokerの部分集合。
type LiveSubscriber interface {
	Subscribe(topic string) (<-chan live.Event, func())
	Version(topic string) uint64
	EventID(version uint64) string
}

// CartViewer はカートの結合ビューを返す。
type CartViewer interface {
	GetCart(ctx context.Context, userID string) (*model.CartView, error)
}

// WishlistViewer はウィッシュリストを返す。
type WishlistViewer interface {
	GetWishlist(ctx context.Context, userID string) ([]model.WishlistItem, error)
}

// LiveHandler はカートとウィッシュリストの変更をServer-Sent Eventsで配信する。
// 通知を受けるたびにビューを取り直して全量を送る。
type LiveHandler struct {
	broker    LiveSubscriber
	carts     CartViewer
	wishlists WishlistViewer
	heartbeat time.Duration
}

// NewLiveHandler はLiveHandlerを生成する。heartbeatが0以下の場合は既定値を使う。
func NewLiveHandler(broker LiveSubscriber, carts CartViewer, wishlists WishlistViewer, heartbeat time.Duration) *LiveHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &LiveHandler{
		broker:    broker,
		carts:     carts,
		wishlists: wishlists,
		heartbeat: heartbeat,
	}
}

// Cart はカートの変更を配信する。
// GET /api/live/cart
func (h *LiveHandler) Cart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	h.stream(w, r, live.CartTopic(userID), "cart", func(ctx context.Context) (any, error) {
		view, err := h.carts.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		return toCartResponse(view), nil
	})
}

// Wishlist はウィッシュリストの変更を配信する。
// GET /api/live/wishlist
func (h *LiveHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	h.stream(w, r, live.WishlistTopic(userID), "wishlist", func(ctx context.Context) (any, error) {
		items, err := h.wishlists.GetWishlist(ctx, userID)
		if err != nil {
			return nil, err
		}
		return toWishlistResponse(items), nil
	})
}

func (h *LiveHandler) stream(w http.ResponseWriter, r *http.Request, topic, event string, snapshot func(context.Context) (any, error)) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	// 接続時の読み込みと通知の間で変更を取りこぼさないよう先に購読する
	events, cancel := h.broker.Subscribe(topic)
	defer cancel()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	// サーバーのWriteTimeoutで長時間接続が切られないようにする
	_ = rc.SetWriteDeadline(time.Time{})

	push := func(id string) bool {
		data, err := snapshot(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("live snapshot failed",
					slog.String("topic", topic),
					slog.String("error", err.Error()),
				)
				fmt.Fprint(w, "event: error\ndata: {\"code\":\"INTERNAL_ERROR\"}\n\n")
				_ = rc.Flush()
			}
			return false
		}
		payload, err := json.Marshal(data)
		if err != nil {
			slog.Error("live payload encode failed", slog.String("error", err.Error()))
			return false
		}
		if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", id, event, payload); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	// 同じBrokerで同じバージョンを受け取り済みの場合だけ初回送信を省く。
	// 再起動後や別インスタンスへの再接続ではエポックが異なるため必ず送る。
	version := h.broker.Version(topic)
	id := h.broker.EventID(version)
	if version == 0 || r.Header.Get("Last-Event-ID") != id {
		if !push(id) {
			return
		}
	} else {
		_ = rc.Flush()
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !push(ev.ID) {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if rc.Flush() != nil {
				return
			}
		}
	}
}
