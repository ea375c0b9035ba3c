// internal/models/feed.go
package models

// BlockType identifies a renderable feed block variant.
type BlockType string

const (
	BlockBanner   BlockType = "banner"
	BlockCarousel BlockType = "carousel"
	BlockRow      BlockType = "row"
)

// FeedBlock is one renderable unit in the assembled sequence. Blocks are
// ephemeral: recomputed on every relevant input change, never persisted.
type FeedBlock struct {
	Type  BlockType            `json:"type"`
	Title string               `json:"title,omitempty"` // carousel only
	Icon  string               `json:"icon,omitempty"`  // carousel only
	Data  []MarketplaceListing `json:"data,omitempty"`  // carousel only
	Items []MarketplaceListing `json:"items,omitempty"` // row only, at most 2
}

// Carousels holds the independently fetched secondary listing sets merged
// into the idle-state feed.
type Carousels struct {
	Trending    []MarketplaceListing
	Popular     []MarketplaceListing
	Recommended []MarketplaceListing
}

// FeedPage is the pipeline output for one fetch cycle.
type FeedPage struct {
	Blocks     []FeedBlock          `json:"blocks"`
	Listings   []MarketplaceListing `json:"listings"`
	Page       int                  `json:"page"`
	HasMore    bool                 `json:"hasMore"`
	NextCursor string               `json:"nextCursor,omitempty"`
	Total      int                  `json:"total"`
}

// Suggestion is one entry returned by search-suggestion retrieval.
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}
