package news

import (
	"time"

	"github.com/hitoshi/agrimarket/internal/model"
)

// PlaceholderImage は画像を持たない記事に使う画像URL。
const PlaceholderImage = "https://via.placeholder.com/400x400?text=Agriculture+News"

var fallbackArticles = []struct {
	title, description, image string
}{
	{
		"India's Agricultural Modernization Continues",
		"Government initiatives are driving technological advancement in Indian agriculture, with new programs supporting farmers across the country.",
		PlaceholderImage,
	},
	{
		"Sustainable Farming Practices Gain Momentum",
		"Farmers are increasingly adopting sustainable and eco-friendly farming methods to improve crop yields while protecting the environment.",
		"https://via.placeholder.com/400x400?text=Sustainable+Farming",
	},
	{
		"Technology in Agriculture: A Growing Trend",
		"Digital tools and modern technology are transforming how farmers manage their crops and livestock, leading to better productivity.",
		"https://via.placeholder.com/400x400?text=AgTech",
	},
	{
		"Weather Patterns Affecting Crop Production",
		"Climate changes and weather patterns continue to impact agricultural production, with farmers adapting to new challenges.",
		"https://via.placeholder.com/400x400?text=Weather+Agriculture",
	},
	{
		"Government Support for Rural Development",
		"New policies and programs are being implemented to support rural communities and improve agricultural infrastructure.",
		"https://via.placeholder.com/400x400?text=Rural+Development",
	},
	{
		"Organic Farming Market Growth",
		"The organic farming sector is experiencing significant growth as consumers demand more sustainable and healthy food options.",
		"https://via.placeholder.com/400x400?text=Organic+Farming",
	},
}

// Fallback は取得失敗時に返す固定記事のフィードを生成する。
func Fallback(now time.Time) *model.NewsFeed {
	articles := make([]model.NewsArticle, len(fallbackArticles))
	for i, a := range fallbackArticles {
		articles[i] = model.NewsArticle{
			Title:       a.title,
			Description: a.description,
			URL:         "#",
			URLToImage:  a.image,
			PublishedAt: now,
		}
	}
	return &model.NewsFeed{
		Status:       "ok",
		Articles:     articles,
		TotalResults: len(articles),
		Fallback:     true,
	}
}
