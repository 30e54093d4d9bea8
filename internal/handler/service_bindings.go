package handler

import (
	"github.com/hitoshi/agrimarket/internal/cart"
	"github.com/hitoshi/agrimarket/internal/catalog"
	"github.com/hitoshi/agrimarket/internal/live"
	"github.com/hitoshi/agrimarket/internal/middleware"
	"github.com/hitoshi/agrimarket/internal/news"
	"github.com/hitoshi/agrimarket/internal/payment"
	"github.com/hitoshi/agrimarket/internal/prediction"
	"github.com/hitoshi/agrimarket/internal/user"
	"github.com/hitoshi/agrimarket/internal/wishlist"
)

// --- compile-time interface checks ---
// ドメインサービスはアダプタを介さずハンドラーの依存を満たす。

var _ CatalogServiceInterface = (*catalog.Service)(nil)
var _ AdminServiceInterface = (*catalog.Service)(nil)
var _ CartServiceInterface = (*cart.Service)(nil)
var _ WishlistServiceInterface = (*wishlist.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
var _ middleware.SubjectResolver = (*user.Service)(nil)
var _ CheckoutServiceInterface = (*payment.CheckoutService)(nil)
var _ NewsServiceInterface = (*news.Service)(nil)
var _ PredictionServiceInterface = (*prediction.Client)(nil)
var _ LiveSubscriber = (*live.Broker)(nil)
var _ CartViewer = (*cart.Service)(nil)
var _ WishlistViewer = (*wishlist.Service)(nil)
