package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"articlesync/pkg/federation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Timeout bounds a single fetch. Zero leaves the caller's context alone.
	Timeout        time.Duration
	MaxMessageSize int
	Compress       bool
	// Credentials defaults to insecure transport.
	Credentials credentials.TransportCredentials
	DialOptions []grpc.DialOption
}

// Client fetches collections from peers over pooled connections. It makes
// exactly one attempt per call; retry policy belongs to the caller.
type Client struct {
	opts   ClientOptions
	pool   *connPool
	logger *zap.Logger
}

// NewClient creates a client.
func NewClient(opts ClientOptions, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	creds := opts.Credentials
	if creds == nil {
		creds = insecure.NewCredentials()
	}
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts.DialOptions...)

	return &Client{
		opts:   opts,
		pool:   newConnPool(dialOpts, logger),
		logger: logger,
	}
}

// Close closes all peer connections.
func (c *Client) Close() error {
	return c.pool.close()
}

// FetchCollection implements federation.CollectionFetcher.
func (c *Client) FetchCollection(ctx context.Context, address string, kind federation.CollectionKind) (*federation.ArticleCollection, error) {
	conn, err := c.pool.get(address)
	if err != nil {
		return nil, err
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDKey, id)

	var callOpts []grpc.CallOption
	if c.opts.MaxMessageSize > 0 {
		callOpts = append(callOpts, grpc.MaxCallRecvMsgSize(c.opts.MaxMessageSize))
	}
	if c.opts.Compress {
		callOpts = append(callOpts, grpc.UseCompressor(ZstdCompressor))
	}

	start := time.Now()
	resp, err := NewFederationClient(conn).GetCollection(ctx, wrapperspb.String(string(kind)), callOpts...)
	if err != nil {
		c.logger.Debug("Collection fetch failed",
			zap.String("address", address),
			zap.String("request_id", id),
			zap.Error(err))
		return nil, err
	}

	var collection federation.ArticleCollection
	if err := json.Unmarshal(resp.GetValue(), &collection); err != nil {
		return nil, fmt.Errorf("failed to decode collection from %s: %w", address, err)
	}

	c.logger.Debug("Fetched collection",
		zap.String("address", address),
		zap.String("request_id", id),
		zap.String("collection", collection.ID),
		zap.Int("items", len(collection.Items)),
		zap.Duration("latency", time.Since(start)))

	return &collection, nil
}
