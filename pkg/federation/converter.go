package federation

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"articlesync/pkg/types"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ArticleConverter converts a single article to and from its wire form.
// Implementations may block on network I/O and must honour ctx.
type ArticleConverter interface {
	ToWire(ctx context.Context, article types.Article) (ArticleObject, error)
	FromWire(ctx context.Context, object ArticleObject) (types.Article, error)
}

// InstanceResolver looks up the instance an imported article is attributed
// to, typically by fetching it from the network.
type InstanceResolver interface {
	ResolveInstance(ctx context.Context, id string) (types.Instance, error)
}

// MarkdownConverter is the default ArticleConverter. Article text is markdown;
// the wire content is rendered HTML with the markdown kept as source.
type MarkdownConverter struct {
	md       goldmark.Markdown
	resolver InstanceResolver
}

// NewMarkdownConverter creates a converter. resolver may be nil, in which case
// attributedTo is only checked syntactically.
func NewMarkdownConverter(resolver InstanceResolver) *MarkdownConverter {
	return &MarkdownConverter{
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		resolver: resolver,
	}
}

// ToWire implements ArticleConverter.
func (c *MarkdownConverter) ToWire(ctx context.Context, article types.Article) (ArticleObject, error) {
	if err := ctx.Err(); err != nil {
		return ArticleObject{}, err
	}
	if _, err := ParseIdentity(article.ID); err != nil {
		return ArticleObject{}, err
	}

	var html bytes.Buffer
	if err := c.md.Convert([]byte(article.Text), &html); err != nil {
		return ArticleObject{}, fmt.Errorf("failed to render article text: %w", err)
	}

	version := article.Version
	if version == "" {
		version = types.ContentVersion(article.Text)
	}

	return ArticleObject{
		Type:         ArticleType,
		ID:           article.ID,
		AttributedTo: article.Instance,
		Name:         article.Title,
		Content:      html.String(),
		Source: &Source{
			Content:   article.Text,
			MediaType: MediaTypeMarkdown,
		},
		LatestVersion: version,
	}, nil
}

// FromWire implements ArticleConverter. Imported articles are never local.
func (c *MarkdownConverter) FromWire(ctx context.Context, object ArticleObject) (types.Article, error) {
	if object.Type != ArticleType {
		return types.Article{}, fmt.Errorf("unexpected object type %q", object.Type)
	}
	id, err := ParseIdentity(object.ID)
	if err != nil {
		return types.Article{}, err
	}
	owner, err := ParseIdentity(object.AttributedTo)
	if err != nil {
		return types.Article{}, fmt.Errorf("attributedTo: %w", err)
	}
	if CanonicalHost(id) != CanonicalHost(owner) {
		return types.Article{}, fmt.Errorf("article %s is not hosted by %s", object.ID, object.AttributedTo)
	}

	text, err := c.textOf(object)
	if err != nil {
		return types.Article{}, err
	}

	if c.resolver != nil {
		if _, err := c.resolver.ResolveInstance(ctx, object.AttributedTo); err != nil {
			return types.Article{}, fmt.Errorf("failed to resolve instance %s: %w", object.AttributedTo, err)
		}
	}

	version := object.LatestVersion
	if version == "" {
		version = types.ContentVersion(text)
	}

	return types.Article{
		ID:       object.ID,
		Title:    object.Name,
		Text:     text,
		Instance: object.AttributedTo,
		Version:  version,
		Local:    false,
	}, nil
}

func (c *MarkdownConverter) textOf(object ArticleObject) (string, error) {
	if object.Source != nil && object.Source.MediaType == MediaTypeMarkdown {
		return object.Source.Content, nil
	}
	if object.Content == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(object.Content))
	if err != nil {
		return "", fmt.Errorf("failed to parse article content: %w", err)
	}
	return strings.TrimSpace(doc.Text()), nil
}
