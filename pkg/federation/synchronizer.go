package federation

import (
	"context"
	"fmt"
	"time"

	"articlesync/pkg/storage"
	"articlesync/pkg/types"

	"go.uber.org/zap"
)

// ImportState is a step of the import state machine.
type ImportState int

const (
	StateReceived ImportState = iota
	StateVerifying
	StateVerificationFailed
	StateVerified
	StateConverting
	StateConversionFailed
	StateConverted
	StateMerging
	StateMergeFailed
	StateMerged
)

var importStateNames = [...]string{
	StateReceived:           "received",
	StateVerifying:          "verifying",
	StateVerificationFailed: "verification_failed",
	StateVerified:           "verified",
	StateConverting:         "converting",
	StateConversionFailed:   "conversion_failed",
	StateConverted:          "converted",
	StateMerging:            "merging",
	StateMergeFailed:        "merge_failed",
	StateMerged:             "merged",
}

func (s ImportState) String() string {
	if s < 0 || int(s) >= len(importStateNames) {
		return fmt.Sprintf("unknown(%d)", int(s))
	}
	return importStateNames[s]
}

// Terminal reports whether no further transition follows s.
func (s ImportState) Terminal() bool {
	switch s {
	case StateVerificationFailed, StateConversionFailed, StateMergeFailed, StateMerged:
		return true
	}
	return false
}

// CollectionFetcher retrieves a peer's collection of the given kind.
type CollectionFetcher interface {
	FetchCollection(ctx context.Context, address string, kind CollectionKind) (*ArticleCollection, error)
}

// Peer is a remote instance and the transport address it serves on.
type Peer struct {
	Instance types.Instance
	Address  string
}

// Synchronizer runs collection export and import against a store.
type Synchronizer struct {
	store    storage.ArticleStore
	codec    *CollectionCodec
	verifier Verifier
	fetcher  CollectionFetcher
	metrics  *SyncMetrics
	logger   *zap.Logger

	// observe, when set, is called on every import state transition.
	observe func(ImportState)
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithFetcher enables Sync against remote peers.
func WithFetcher(f CollectionFetcher) SyncOption {
	return func(s *Synchronizer) { s.fetcher = f }
}

// WithMetrics records export and import metrics.
func WithMetrics(m *SyncMetrics) SyncOption {
	return func(s *Synchronizer) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) SyncOption {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStateObserver registers fn for import state transitions.
func WithStateObserver(fn func(ImportState)) SyncOption {
	return func(s *Synchronizer) { s.observe = fn }
}

// NewSynchronizer creates a synchronizer. A nil verifier selects DomainVerifier.
func NewSynchronizer(store storage.ArticleStore, codec *CollectionCodec, verifier Verifier, opts ...SyncOption) *Synchronizer {
	if verifier == nil {
		verifier = DomainVerifier{}
	}
	s := &Synchronizer{
		store:    store,
		codec:    codec,
		verifier: verifier,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export builds the collection of articles originated locally, owned by owner.
// It only reads the store.
func (s *Synchronizer) Export(ctx context.Context, owner types.Instance) (*ArticleCollection, error) {
	start := time.Now()
	collection, err := s.export(ctx, owner)
	if err != nil {
		s.metrics.observeExport(start, 0, err)
		s.logger.Warn("Collection export failed",
			zap.String("owner", owner.ID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.observeExport(start, collection.TotalItems, nil)
	s.logger.Debug("Exported collection",
		zap.String("id", collection.ID),
		zap.Int("total_items", collection.TotalItems))
	return collection, nil
}

func (s *Synchronizer) export(ctx context.Context, owner types.Instance) (*ArticleCollection, error) {
	id, err := GenerateCollectionID(owner.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner identity: %w", err)
	}

	local, err := s.store.SnapshotLocal()
	if err != nil {
		return nil, fmt.Errorf("failed to read local articles: %w", err)
	}

	collection, err := s.codec.Export(ctx, local)
	if err != nil {
		return nil, err
	}
	collection.ID = id
	return collection, nil
}

// Import verifies collection against expectedDomain, converts its items and
// merges them into the store. It returns the articles merged by this call.
// On any failure the store is left untouched.
func (s *Synchronizer) Import(ctx context.Context, collection *ArticleCollection, owner types.Instance, expectedDomain string) ([]types.Article, error) {
	start := time.Now()
	logger := s.logger.With(
		zap.String("owner", owner.ID),
		zap.String("expected_domain", expectedDomain))
	if collection != nil {
		logger = logger.With(zap.String("collection", collection.ID))
	}

	s.transition(logger, StateReceived)

	s.transition(logger, StateVerifying)
	if err := s.verifier.Verify(ctx, collection, expectedDomain); err != nil {
		s.transition(logger, StateVerificationFailed, zap.Error(err))
		return nil, err
	}
	s.transition(logger, StateVerified)

	s.transition(logger, StateConverting)
	articles, err := s.codec.Import(ctx, collection)
	if err != nil {
		s.transition(logger, StateConversionFailed, zap.Error(err))
		return nil, err
	}
	s.transition(logger, StateConverted, zap.Int("items", len(articles)))

	s.transition(logger, StateMerging)
	merged, err := s.store.Merge(articles)
	if err != nil {
		s.transition(logger, StateMergeFailed, zap.Error(err))
		return nil, fmt.Errorf("failed to merge collection %s: %w", collection.ID, err)
	}
	s.transition(logger, StateMerged, zap.Int("merged", len(merged)))

	s.metrics.observeImport(start, len(merged))
	return merged, nil
}

// Sync fetches the article collection of peer and imports it, expecting it to
// be hosted on the peer's own domain.
func (s *Synchronizer) Sync(ctx context.Context, peer Peer) ([]types.Article, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("no collection fetcher configured")
	}

	collection, err := s.fetcher.FetchCollection(ctx, peer.Address, KindArticles)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection from %s: %w", peer.Address, err)
	}

	return s.Import(ctx, collection, peer.Instance, peer.Instance.ID)
}

func (s *Synchronizer) transition(logger *zap.Logger, state ImportState, fields ...zap.Field) {
	s.metrics.observeState(state)
	if s.observe != nil {
		s.observe(state)
	}

	fields = append(fields, zap.Stringer("state", state))
	switch state {
	case StateVerificationFailed, StateConversionFailed, StateMergeFailed:
		logger.Warn("Collection import aborted", fields...)
	case StateMerged:
		logger.Info("Collection imported", fields...)
	default:
		logger.Debug("Collection import transition", fields...)
	}
}
