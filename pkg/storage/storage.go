package storage

import (
	"errors"
	"fmt"
	"sync"

	"articlesync/pkg/types"

	"go.uber.org/zap"
)

var (
	// ErrStoreUnavailable is returned once a critical section has panicked and
	// the store contents can no longer be trusted.
	ErrStoreUnavailable = errors.New("article store unavailable")

	// ErrConflict is returned by Merge under MergeReject when an incoming
	// article collides with an existing one.
	ErrConflict = errors.New("article already exists")
)

// MergePolicy decides what happens when a merged article has the same
// canonical identifier as an entry already in the store.
type MergePolicy int

const (
	// MergeOverwrite replaces the existing entry in place. Entries with
	// Local set are never replaced by an import.
	MergeOverwrite MergePolicy = iota
	// MergeKeepExisting retains the existing entry and drops the incoming one.
	MergeKeepExisting
	// MergeReject fails the whole merge on the first collision.
	MergeReject
)

func (p MergePolicy) String() string {
	switch p {
	case MergeOverwrite:
		return "overwrite"
	case MergeKeepExisting:
		return "keep-existing"
	case MergeReject:
		return "reject"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParseMergePolicy maps a config value to a MergePolicy. Empty means overwrite.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "", "overwrite":
		return MergeOverwrite, nil
	case "keep-existing", "keep":
		return MergeKeepExisting, nil
	case "reject":
		return MergeReject, nil
	default:
		return MergeOverwrite, fmt.Errorf("unknown merge policy %q (expected overwrite, keep-existing or reject)", s)
	}
}

// ArticleStore is the shared source of truth for known articles. Callers never
// see the lock; every method copies in or out under it.
type ArticleStore interface {
	// SnapshotLocal returns a copy of all locally originated articles in
	// store order.
	SnapshotLocal() ([]types.Article, error)
	// Merge upserts batch atomically and returns the articles it committed,
	// in batch order.
	Merge(batch []types.Article) ([]types.Article, error)
}

// MemoryStore is an ordered, mutex-guarded ArticleStore.
type MemoryStore struct {
	mu sync.Mutex

	articles []types.Article
	index    map[string]int // canonical ID -> position in articles
	policy   MergePolicy
	broken   bool

	logger *zap.Logger
}

// NewMemoryStore creates an empty store using the given merge policy.
func NewMemoryStore(policy MergePolicy, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		index:  make(map[string]int),
		policy: policy,
		logger: logger,
	}
}

// Policy returns the store's merge policy.
func (s *MemoryStore) Policy() MergePolicy {
	return s.policy
}

// SnapshotLocal implements ArticleStore.
func (s *MemoryStore) SnapshotLocal() ([]types.Article, error) {
	var local []types.Article
	err := s.withLock(func() error {
		local = make([]types.Article, 0, len(s.articles))
		for _, a := range s.articles {
			if a.Local {
				local = append(local, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return local, nil
}

// All returns a copy of every entry in store order.
func (s *MemoryStore) All() ([]types.Article, error) {
	var all []types.Article
	err := s.withLock(func() error {
		all = make([]types.Article, len(s.articles))
		copy(all, s.articles)
		return nil
	})
	return all, err
}

// Len returns the number of entries, or 0 if the store is unavailable.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return 0
	}
	return len(s.articles)
}

// Add records a locally authored article, replacing any entry with the same ID.
func (s *MemoryStore) Add(article types.Article) error {
	if article.ID == "" {
		return fmt.Errorf("article id cannot be empty")
	}
	return s.withLock(func() error {
		if pos, ok := s.index[article.ID]; ok {
			s.articles[pos] = article
			return nil
		}
		s.index[article.ID] = len(s.articles)
		s.articles = append(s.articles, article)
		return nil
	})
}

// Merge implements ArticleStore. The batch is planned completely before the
// store is touched, so a rejected batch leaves no trace.
func (s *MemoryStore) Merge(batch []types.Article) ([]types.Article, error) {
	// Validate outside the lock
	for i, a := range batch {
		if a.ID == "" {
			return nil, fmt.Errorf("article at index %d has no id", i)
		}
	}

	batch = dedupe(batch)

	var merged []types.Article
	err := s.withLock(func() error {
		// Decide every step first; nothing is written if any step fails
		plan, err := s.plan(batch)
		if err != nil {
			return err
		}
		merged = s.apply(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Merged articles",
		zap.Int("received", len(batch)),
		zap.Int("merged", len(merged)),
		zap.Stringer("policy", s.policy))

	return merged, nil
}

type mergeStep struct {
	article types.Article
	pos     int // existing position, -1 to append
}

// plan must be called with s.mu held.
func (s *MemoryStore) plan(batch []types.Article) ([]mergeStep, error) {
	steps := make([]mergeStep, 0, len(batch))
	for _, a := range batch {
		// New articles are appended
		pos, exists := s.index[a.ID]
		if !exists {
			steps = append(steps, mergeStep{article: a, pos: -1})
			continue
		}

		switch s.policy {
		case MergeReject:
			return nil, fmt.Errorf("%w: %s", ErrConflict, a.ID)
		case MergeKeepExisting:
			continue
		default:
			// Imports never replace local articles
			if s.articles[pos].Local {
				s.logger.Debug("Keeping local article over imported copy",
					zap.String("article", a.ID))
				continue
			}
			steps = append(steps, mergeStep{article: a, pos: pos})
		}
	}
	return steps, nil
}

// apply must be called with s.mu held.
func (s *MemoryStore) apply(steps []mergeStep) []types.Article {
	merged := make([]types.Article, 0, len(steps))
	for _, step := range steps {
		if step.pos >= 0 {
			// Replace in place to keep store order
			s.articles[step.pos] = step.article
		} else {
			s.index[step.article.ID] = len(s.articles)
			s.articles = append(s.articles, step.article)
		}
		merged = append(merged, step.article)
	}
	return merged
}

// withLock runs fn under the store mutex. A panic inside fn marks the store
// unavailable before it propagates.
func (s *MemoryStore) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return ErrStoreUnavailable
	}

	// Mark the store broken if fn panics mid-update
	defer func() {
		if r := recover(); r != nil {
			s.broken = true
			s.logger.Error("Article store critical section panicked",
				zap.Any("panic", r))
			panic(r)
		}
	}()

	return fn()
}

// dedupe collapses repeated IDs to the last occurrence, kept at the position
// of the first.
func dedupe(batch []types.Article) []types.Article {
	seen := make(map[string]int, len(batch))
	out := make([]types.Article, 0, len(batch))
	for _, a := range batch {
		if i, ok := seen[a.ID]; ok {
			out[i] = a
			continue
		}
		seen[a.ID] = len(out)
		out = append(out, a)
	}
	return out
}
