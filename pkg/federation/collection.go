package federation

const (
	// CollectionType is the wire discriminant of a collection object.
	CollectionType = "Collection"
	// ArticleType is the wire discriminant of an article object.
	ArticleType = "Article"

	MediaTypeMarkdown = "text/markdown"
)

// ArticleCollection is the wire form of an instance's article collection.
type ArticleCollection struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	TotalItems int             `json:"totalItems"`
	Items      []ArticleObject `json:"items"`
}

// ArticleObject is the wire form of a single article.
type ArticleObject struct {
	Type          string  `json:"type"`
	ID            string  `json:"id"`
	AttributedTo  string  `json:"attributedTo"`
	Name          string  `json:"name"`
	Content       string  `json:"content"`
	Source        *Source `json:"source,omitempty"`
	LatestVersion string  `json:"latestVersion,omitempty"`
}

// Source carries the original markup an object's content was rendered from.
type Source struct {
	Content   string `json:"content"`
	MediaType string `json:"mediaType"`
}
