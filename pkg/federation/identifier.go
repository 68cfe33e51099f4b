package federation

import "strings"

// articlesPath is the path segment of an instance's article collection.
const articlesPath = "articles"

// GenerateCollectionID derives the canonical id of the article collection
// owned by the instance with the given identity. The same owner always yields
// the same id.
func GenerateCollectionID(owner string) (string, error) {
	u, err := ParseIdentity(owner)
	if err != nil {
		return "", err
	}

	id := *u
	id.RawQuery = ""
	id.Fragment = ""
	id.RawFragment = ""
	id.Host = CanonicalHost(u)
	id.Path = strings.TrimSuffix(u.Path, "/") + "/" + articlesPath
	id.RawPath = ""
	return id.String(), nil
}
