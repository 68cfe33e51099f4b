package federation

import (
	"context"
	"fmt"

	"articlesync/pkg/types"
	"articlesync/pkg/utils"
)

// CollectionCodec maps between an ordered sequence of articles and the wire
// collection. Items are converted concurrently and reassembled by position.
type CollectionCodec struct {
	converter   ArticleConverter
	concurrency int
}

// CodecOption configures a CollectionCodec.
type CodecOption func(*CollectionCodec)

// WithConcurrency bounds the number of item conversions in flight. Zero or
// less means unbounded.
func WithConcurrency(n int) CodecOption {
	return func(c *CollectionCodec) {
		c.concurrency = n
	}
}

// NewCollectionCodec creates a codec delegating item conversion to converter.
func NewCollectionCodec(converter ArticleConverter, opts ...CodecOption) *CollectionCodec {
	c := &CollectionCodec{converter: converter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export converts articles into a collection without an id. The caller
// assigns the id.
func (c *CollectionCodec) Export(ctx context.Context, articles []types.Article) (*ArticleCollection, error) {
	items, err := utils.OrderedMap(ctx, articles, c.concurrency,
		func(ctx context.Context, i int, a types.Article) (ArticleObject, error) {
			obj, err := c.converter.ToWire(ctx, a)
			if err != nil {
				return ArticleObject{}, &ItemConversionError{Index: i, ID: a.ID, Err: err}
			}
			return obj, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to export collection: %w", err)
	}

	return &ArticleCollection{
		Type:       CollectionType,
		TotalItems: len(items),
		Items:      items,
	}, nil
}

// Import converts every item of collection into an article.
func (c *CollectionCodec) Import(ctx context.Context, collection *ArticleCollection) ([]types.Article, error) {
	articles, err := utils.OrderedMap(ctx, collection.Items, c.concurrency,
		func(ctx context.Context, i int, obj ArticleObject) (types.Article, error) {
			a, err := c.converter.FromWire(ctx, obj)
			if err != nil {
				return types.Article{}, &ItemConversionError{Index: i, ID: obj.ID, Err: err}
			}
			return a, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to import collection %s: %w", collection.ID, err)
	}
	return articles, nil
}
