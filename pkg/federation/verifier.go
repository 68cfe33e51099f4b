package federation

import (
	"context"
	"fmt"
)

// Verifier gates imports. Verify must return nil only if collection may be
// converted and merged.
type Verifier interface {
	Verify(ctx context.Context, collection *ArticleCollection, expectedDomain string) error
}

// DomainVerifier accepts a collection only if it is a Collection whose id and
// item ids are all hosted on expectedDomain. expectedDomain may be a bare host
// or a URL (see DomainOf); the comparison is on the lower-cased host and
// non-default port.
type DomainVerifier struct{}

// Verify implements Verifier.
func (DomainVerifier) Verify(_ context.Context, collection *ArticleCollection, expectedDomain string) error {
	if collection == nil {
		return fmt.Errorf("%w: no collection", ErrVerificationFailed)
	}
	if collection.Type != CollectionType {
		return fmt.Errorf("%w: unexpected type %q", ErrVerificationFailed, collection.Type)
	}

	id, err := ParseIdentity(collection.ID)
	if err != nil {
		return fmt.Errorf("%w: collection id: %v", ErrVerificationFailed, err)
	}
	expected, err := DomainOf(expectedDomain)
	if err != nil {
		return fmt.Errorf("%w: expected domain: %v", ErrVerificationFailed, err)
	}

	if got := CanonicalHost(id); got != expected {
		return fmt.Errorf("%w: collection %s is hosted on %s, expected %s",
			ErrVerificationFailed, collection.ID, got, expected)
	}

	// Every item must live on the collection's host.
	for i, item := range collection.Items {
		itemID, err := ParseIdentity(item.ID)
		if err != nil {
			return fmt.Errorf("%w: item %d id: %v", ErrVerificationFailed, i, err)
		}
		if got := CanonicalHost(itemID); got != expected {
			return fmt.Errorf("%w: item %d (%s) is hosted on %s, expected %s",
				ErrVerificationFailed, i, item.ID, got, expected)
		}
	}
	return nil
}
