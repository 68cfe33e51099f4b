package federation

import (
	"context"
	"errors"
	"testing"
	"time"

	"articlesync/pkg/storage"
	"articlesync/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alphaInstance = types.Instance{ID: alpha, Local: true}
	betaInstance  = types.Instance{ID: beta}
)

func newTestSynchronizer(t *testing.T, conv ArticleConverter, opts ...SyncOption) (*Synchronizer, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(storage.MergeOverwrite, nil)
	return NewSynchronizer(store, NewCollectionCodec(conv), nil, opts...), store
}

func TestExportIsIdempotent(t *testing.T) {
	sync, store := newTestSynchronizer(t, NewMarkdownConverter(nil))
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Add(localArticle(alpha, i)))
	}

	first, err := sync.Export(context.Background(), alphaInstance)
	require.NoError(t, err)
	second, err := sync.Export(context.Background(), alphaInstance)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "https://alpha.example/articles", first.ID)
}

func TestExportCountConsistency(t *testing.T) {
	for n := 0; n <= 5; n++ {
		sync, store := newTestSynchronizer(t, NewMarkdownConverter(nil))
		for i := 0; i < n; i++ {
			require.NoError(t, store.Add(localArticle(alpha, i)))
		}

		c, err := sync.Export(context.Background(), alphaInstance)
		require.NoError(t, err)
		assert.Equal(t, n, c.TotalItems)
		assert.Len(t, c.Items, c.TotalItems)
	}
}

func TestExportOnlyLocalArticlesInStoreOrder(t *testing.T) {
	sync, store := newTestSynchronizer(t, NewMarkdownConverter(nil))

	require.NoError(t, store.Add(localArticle(alpha, 0)))
	_, err := store.Merge([]types.Article{remoteArticle(beta, 0)})
	require.NoError(t, err)
	require.NoError(t, store.Add(localArticle(alpha, 1)))
	_, err = store.Merge([]types.Article{remoteArticle(beta, 1)})
	require.NoError(t, err)
	require.NoError(t, store.Add(localArticle(alpha, 2)))

	c, err := sync.Export(context.Background(), alphaInstance)
	require.NoError(t, err)

	assert.Equal(t, 3, c.TotalItems)
	assert.Equal(t, []string{
		"https://alpha.example/article/0",
		"https://alpha.example/article/1",
		"https://alpha.example/article/2",
	}, itemIDs(c))
}

func TestExportMalformedOwner(t *testing.T) {
	sync, _ := newTestSynchronizer(t, NewMarkdownConverter(nil))

	_, err := sync.Export(context.Background(), types.Instance{ID: "alpha.example"})
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
}

func TestExportStoreUnavailable(t *testing.T) {
	sync := NewSynchronizer(brokenStore{}, NewCollectionCodec(NewMarkdownConverter(nil)), nil)

	_, err := sync.Export(context.Background(), alphaInstance)
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}

func TestImportPreservesOrderUnderLatency(t *testing.T) {
	sync, store := newTestSynchronizer(t, newScriptedConverter(25*time.Millisecond))
	in := remoteCollection(beta, 5)

	merged, err := sync.Import(context.Background(), in, betaInstance, "beta.example")
	require.NoError(t, err)
	assert.Equal(t, itemIDs(in), articleIDs(merged))

	all, err := store.All()
	require.NoError(t, err)
	assert.Equal(t, itemIDs(in), articleIDs(all))
}

func TestImportFailFastLeavesStoreUnchanged(t *testing.T) {
	in := remoteCollection(beta, 5)
	sync, store := newTestSynchronizer(t, newScriptedConverter(5*time.Millisecond, in.Items[3].ID))
	require.NoError(t, store.Add(localArticle(alpha, 0)))

	merged, err := sync.Import(context.Background(), in, betaInstance, beta)
	require.Error(t, err)
	assert.Nil(t, merged)
	assert.ErrorIs(t, err, ErrItemConversion)

	all, err := store.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://alpha.example/article/0"}, articleIDs(all))
}

func TestImportSecondItemFails(t *testing.T) {
	in := remoteCollection(beta, 2)
	sync, store := newTestSynchronizer(t, newScriptedConverter(0, in.Items[1].ID))

	_, err := sync.Import(context.Background(), in, betaInstance, beta)

	var itemErr *ItemConversionError
	require.True(t, errors.As(err, &itemErr))
	assert.Equal(t, 1, itemErr.Index)
	assert.Equal(t, 0, store.Len())
}

func TestImportVerificationGate(t *testing.T) {
	conv := newScriptedConverter(0)
	sync, store := newTestSynchronizer(t, conv)
	in := remoteCollection(beta, 3)

	_, err := sync.Import(context.Background(), in, betaInstance, "evil.example")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, int32(0), conv.fromWire.Load(), "no conversion may run before verification")
	assert.Equal(t, 0, store.Len())

	merged, err := sync.Import(context.Background(), in, betaInstance, "beta.example")
	require.NoError(t, err)
	assert.Len(t, merged, 3)
	assert.Equal(t, int32(3), conv.fromWire.Load())
	assert.Equal(t, 3, store.Len())
}

func TestImportRejectsItemsFromAnotherDomain(t *testing.T) {
	conv := newScriptedConverter(0)
	sync, store := newTestSynchronizer(t, conv)

	gamma := "https://gamma.example"
	_, err := sync.Import(context.Background(), remoteCollection(gamma, 1), types.Instance{ID: gamma}, gamma)
	require.NoError(t, err)
	converted := conv.fromWire.Load()

	// beta serves its own collection id but carries one of gamma's articles.
	forged := remoteCollection(beta, 1)
	forged.Items = append(forged.Items, remoteCollection(gamma, 1).Items[0])
	forged.Items[1].Source.Content = "rewritten by beta"
	forged.TotalItems = len(forged.Items)

	_, err = sync.Import(context.Background(), forged, betaInstance, "beta.example")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, converted, conv.fromWire.Load(), "no conversion may run before verification")

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "https://gamma.example/article/0", all[0].ID)
	assert.Equal(t, "Body of article 0", all[0].Text)
}

func TestImportRepeatedDoesNotDuplicate(t *testing.T) {
	sync, store := newTestSynchronizer(t, NewMarkdownConverter(nil))
	in := remoteCollection(beta, 3)

	for i := 0; i < 3; i++ {
		_, err := sync.Import(context.Background(), in, betaInstance, beta)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Len())
}

func TestImportMergeConflictAborts(t *testing.T) {
	store := storage.NewMemoryStore(storage.MergeReject, nil)
	sync := NewSynchronizer(store, NewCollectionCodec(NewMarkdownConverter(nil)), nil)
	in := remoteCollection(beta, 2)

	_, err := sync.Import(context.Background(), in, betaInstance, beta)
	require.NoError(t, err)

	_, err = sync.Import(context.Background(), in, betaInstance, beta)
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.Equal(t, 2, store.Len())
}

func TestImportStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		conv     ArticleConverter
		domain   string
		expected []ImportState
	}{
		{
			name:   "merged",
			conv:   NewMarkdownConverter(nil),
			domain: beta,
			expected: []ImportState{StateReceived, StateVerifying, StateVerified,
				StateConverting, StateConverted, StateMerging, StateMerged},
		},
		{
			name:     "verification failed",
			conv:     NewMarkdownConverter(nil),
			domain:   alpha,
			expected: []ImportState{StateReceived, StateVerifying, StateVerificationFailed},
		},
		{
			name:   "conversion failed",
			conv:   newScriptedConverter(0, "https://beta.example/article/0"),
			domain: beta,
			expected: []ImportState{StateReceived, StateVerifying, StateVerified,
				StateConverting, StateConversionFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var states []ImportState
			sync, _ := newTestSynchronizer(t, tt.conv, WithStateObserver(func(s ImportState) {
				states = append(states, s)
			}))

			_, _ = sync.Import(context.Background(), remoteCollection(beta, 2), betaInstance, tt.domain)
			assert.Equal(t, tt.expected, states)
			assert.True(t, states[len(states)-1].Terminal())
		})
	}
}

func TestSynchronizerMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewSyncMetrics(registry)
	sync, store := newTestSynchronizer(t, NewMarkdownConverter(nil), WithMetrics(metrics))
	require.NoError(t, store.Add(localArticle(alpha, 0)))

	_, err := sync.Export(context.Background(), alphaInstance)
	require.NoError(t, err)
	_, err = sync.Import(context.Background(), remoteCollection(beta, 2), betaInstance, beta)
	require.NoError(t, err)
	_, err = sync.Import(context.Background(), remoteCollection(beta, 2), betaInstance, "evil.example")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Exports.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExportedItems))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ArticlesMerged))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportStates.WithLabelValues("merged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportStates.WithLabelValues("verification_failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ImportStates.WithLabelValues("received")))
}

type fetcherFunc func(ctx context.Context, address string, kind CollectionKind) (*ArticleCollection, error)

func (f fetcherFunc) FetchCollection(ctx context.Context, address string, kind CollectionKind) (*ArticleCollection, error) {
	return f(ctx, address, kind)
}

func TestSyncFetchesAndImports(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, address string, kind CollectionKind) (*ArticleCollection, error) {
		assert.Equal(t, "beta.internal:8131", address)
		assert.Equal(t, KindArticles, kind)
		return remoteCollection(beta, 2), nil
	})
	sync, store := newTestSynchronizer(t, NewMarkdownConverter(nil), WithFetcher(fetcher))

	merged, err := sync.Sync(context.Background(), Peer{Instance: betaInstance, Address: "beta.internal:8131"})
	require.NoError(t, err)
	assert.Len(t, merged, 2)
	assert.Equal(t, 2, store.Len())
}

func TestSyncRejectsImpersonatingPeer(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, address string, kind CollectionKind) (*ArticleCollection, error) {
		return remoteCollection("https://gamma.example", 2), nil
	})
	sync, store := newTestSynchronizer(t, NewMarkdownConverter(nil), WithFetcher(fetcher))

	_, err := sync.Sync(context.Background(), Peer{Instance: betaInstance, Address: "beta.internal:8131"})
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, 0, store.Len())
}

func TestSyncWithoutFetcher(t *testing.T) {
	sync, _ := newTestSynchronizer(t, NewMarkdownConverter(nil))

	_, err := sync.Sync(context.Background(), Peer{Instance: betaInstance})
	assert.Error(t, err)
}

type brokenStore struct{}

func (brokenStore) SnapshotLocal() ([]types.Article, error) {
	return nil, storage.ErrStoreUnavailable
}

func (brokenStore) Merge([]types.Article) ([]types.Article, error) {
	return nil, storage.ErrStoreUnavailable
}
