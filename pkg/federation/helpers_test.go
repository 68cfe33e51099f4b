package federation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"articlesync/pkg/types"
)

var errBrokenItem = errors.New("broken item")

// scriptedConverter wraps MarkdownConverter with random latency and
// per-ID failures.
type scriptedConverter struct {
	inner    *MarkdownConverter
	jitter   time.Duration
	failIDs  map[string]bool
	toWire   atomic.Int32
	fromWire atomic.Int32
}

func newScriptedConverter(jitter time.Duration, failIDs ...string) *scriptedConverter {
	c := &scriptedConverter{
		inner:   NewMarkdownConverter(nil),
		jitter:  jitter,
		failIDs: make(map[string]bool),
	}
	for _, id := range failIDs {
		c.failIDs[id] = true
	}
	return c
}

func (c *scriptedConverter) sleep(ctx context.Context) error {
	if c.jitter <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(rand.Int63n(int64(c.jitter)))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *scriptedConverter) ToWire(ctx context.Context, a types.Article) (ArticleObject, error) {
	c.toWire.Add(1)
	if err := c.sleep(ctx); err != nil {
		return ArticleObject{}, err
	}
	if c.failIDs[a.ID] {
		return ArticleObject{}, errBrokenItem
	}
	return c.inner.ToWire(ctx, a)
}

func (c *scriptedConverter) FromWire(ctx context.Context, o ArticleObject) (types.Article, error) {
	c.fromWire.Add(1)
	if err := c.sleep(ctx); err != nil {
		return types.Article{}, err
	}
	if c.failIDs[o.ID] {
		return types.Article{}, errBrokenItem
	}
	return c.inner.FromWire(ctx, o)
}

func localArticle(instance string, n int) types.Article {
	return types.Article{
		ID:       fmt.Sprintf("%s/article/%d", instance, n),
		Title:    fmt.Sprintf("Article %d", n),
		Text:     fmt.Sprintf("Body of article %d", n),
		Instance: instance,
		Local:    true,
	}
}

func remoteArticle(instance string, n int) types.Article {
	a := localArticle(instance, n)
	a.Local = false
	return a
}

// remoteCollection builds the wire collection a peer at instance would send.
func remoteCollection(instance string, n int) *ArticleCollection {
	c := &ArticleCollection{
		Type:       CollectionType,
		ID:         instance + "/articles",
		TotalItems: n,
	}
	for i := 0; i < n; i++ {
		a := remoteArticle(instance, i)
		c.Items = append(c.Items, ArticleObject{
			Type:         ArticleType,
			ID:           a.ID,
			AttributedTo: a.Instance,
			Name:         a.Title,
			Content:      "<p>" + a.Text + "</p>",
			Source:       &Source{Content: a.Text, MediaType: MediaTypeMarkdown},
		})
	}
	return c
}

func itemIDs(c *ArticleCollection) []string {
	out := make([]string, len(c.Items))
	for i, it := range c.Items {
		out[i] = it.ID
	}
	return out
}

func articleIDs(as []types.Article) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
