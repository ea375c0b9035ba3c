// internal/feed/assembler/assembler.go
package assembler

import (
	"time"

	"marketfeed/internal/common/metrics"
	"marketfeed/internal/models"
)

// listingsPerSegment is how many listings render between two carousels in the
// idle feed.
const listingsPerSegment = 6

// itemsPerRow is the grid width of a listing row.
const itemsPerRow = 2

// segmentRows is a segment expressed in row blocks.
const segmentRows = listingsPerSegment / itemsPerRow

// Assembler turns a paged listing slice and the secondary carousel sets into
// the renderable block sequence.
type Assembler struct {
	BannerEnabled bool
}

// Assemble builds the block sequence for one page. Carousels and the banner
// appear only on the first page of an idle feed; any search text or active
// filter collapses the output to plain listing rows. All three carousels
// render regardless of how many listings the page holds, so an empty idle
// feed still shows the full discovery state; only carousels whose data is
// empty are omitted.
func (a Assembler) Assemble(listings []models.MarketplaceListing, carousels models.Carousels, searchActive bool, page int) []models.FeedBlock {
	start := time.Now()
	defer func() {
		metrics.FeedStageDuration.WithLabelValues("assemble").Observe(time.Since(start).Seconds())
	}()

	rows := Rows(listings)

	if searchActive || page > 0 {
		return rows
	}

	blocks := make([]models.FeedBlock, 0, len(rows)+4)

	if a.BannerEnabled {
		blocks = append(blocks, models.FeedBlock{Type: models.BlockBanner})
	}

	blocks = appendCarousel(blocks, "Trending Now", "flame", carousels.Trending)
	blocks, rows = appendSegment(blocks, rows)

	blocks = appendCarousel(blocks, "Most Popular", "star", carousels.Popular)
	blocks, rows = appendSegment(blocks, rows)

	blocks = appendCarousel(blocks, "Recommended For You", "sparkles", carousels.Recommended)
	blocks = append(blocks, rows...)

	return blocks
}

// Rows groups listings into row blocks of at most two items, preserving order.
func Rows(listings []models.MarketplaceListing) []models.FeedBlock {
	rows := make([]models.FeedBlock, 0, (len(listings)+itemsPerRow-1)/itemsPerRow)
	for i := 0; i < len(listings); i += itemsPerRow {
		end := i + itemsPerRow
		if end > len(listings) {
			end = len(listings)
		}
		rows = append(rows, models.FeedBlock{
			Type:  models.BlockRow,
			Items: listings[i:end],
		})
	}
	return rows
}

// appendSegment moves up to one segment of rows onto the block sequence and
// returns the remainder.
func appendSegment(blocks, rows []models.FeedBlock) ([]models.FeedBlock, []models.FeedBlock) {
	split := segmentRows
	if split > len(rows) {
		split = len(rows)
	}
	return append(blocks, rows[:split]...), rows[split:]
}

func appendCarousel(blocks []models.FeedBlock, title, icon string, data []models.MarketplaceListing) []models.FeedBlock {
	if len(data) == 0 {
		return blocks
	}
	return append(blocks, models.FeedBlock{
		Type:  models.BlockCarousel,
		Title: title,
		Icon:  icon,
		Data:  data,
	})
}
