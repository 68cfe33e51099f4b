package config

import (
	"encoding/json"
	"fmt"
	"os"

	"articlesync/pkg/types"

	"gopkg.in/yaml.v3"
)

// SeedArticle is a locally authored article listed in the articles file.
type SeedArticle struct {
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text" yaml:"text"`
}

// LoadSeedArticles reads the articles file and authors each entry on instance,
// in file order.
func LoadSeedArticles(path string, instance types.Instance) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read articles file: %w", err)
	}

	var seeds []SeedArticle
	if isYAML(path) {
		err = yaml.Unmarshal(data, &seeds)
	} else {
		err = json.Unmarshal(data, &seeds)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse articles file: %w", err)
	}

	articles := make([]types.Article, 0, len(seeds))
	for i, s := range seeds {
		a, err := types.NewLocalArticle(instance, s.Title, s.Text)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", i, err)
		}
		articles = append(articles, a)
	}
	return articles, nil
}
