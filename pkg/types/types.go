package types

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/zeebo/blake3"
)

// Article is a content record known to this instance. ID is the canonical
// absolute URL of the article; Instance is the identity URL of the instance
// that originated it.
type Article struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Text     string `json:"text" yaml:"text"`
	Instance string `json:"instance" yaml:"instance"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Local    bool   `json:"local" yaml:"local"`
}

// Instance is a federation participant. ID is its canonical base identity URL.
type Instance struct {
	ID    string
	Local bool
}

// NewLocalArticle builds an article authored on the given instance.
func NewLocalArticle(instance Instance, title, text string) (Article, error) {
	if strings.TrimSpace(title) == "" {
		return Article{}, fmt.Errorf("article title cannot be empty")
	}

	// "." and ".." would be cleaned out of the path by JoinPath.
	segment := url.PathEscape(title)
	if segment == "." || segment == ".." {
		return Article{}, fmt.Errorf("article title %q is not a valid path segment", title)
	}

	id, err := url.JoinPath(instance.ID, "article", segment)
	if err != nil {
		return Article{}, fmt.Errorf("invalid instance identity %q: %w", instance.ID, err)
	}

	return Article{
		ID:       id,
		Title:    title,
		Text:     text,
		Instance: instance.ID,
		Version:  ContentVersion(text),
		Local:    true,
	}, nil
}

// ContentVersion returns the hex BLAKE3 digest identifying a text revision.
func ContentVersion(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
