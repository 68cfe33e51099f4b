package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"articlesync/pkg/federation"
	"articlesync/pkg/storage"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RequestIDKey is the metadata key carrying a fetch's request id.
const RequestIDKey = "x-request-id"

// Server answers collection requests from peers through a Dispatcher.
type Server struct {
	UnimplementedFederationServer

	dispatcher *federation.Dispatcher
	logger     *zap.Logger
}

// NewServer creates a Federation service backed by dispatcher.
func NewServer(dispatcher *federation.Dispatcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// GetCollection implements FederationServer. An empty kind selects articles.
func (s *Server) GetCollection(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	kind := federation.CollectionKind(req.GetValue())
	if kind == "" {
		kind = federation.KindArticles
	}

	logger := s.logger.With(
		zap.String("kind", string(kind)),
		zap.String("request_id", requestID(ctx)))

	out, err := s.dispatcher.Export(ctx, kind)
	if err != nil {
		logger.Warn("Collection request failed", zap.Error(err))
		return nil, toStatus(err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		logger.Error("Failed to encode collection", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to encode collection: %v", err)
	}

	logger.Debug("Served collection", zap.Int("bytes", len(data)))
	return wrapperspb.Bytes(data), nil
}

// ServerOptions configures NewGRPCServer.
type ServerOptions struct {
	MaxMessageSize int
	Credentials    credentials.TransportCredentials
}

// NewGRPCServer builds a gRPC server exposing srv and the standard health
// service.
func NewGRPCServer(srv *Server, opts ServerOptions) *grpc.Server {
	var serverOpts []grpc.ServerOption
	if opts.MaxMessageSize > 0 {
		serverOpts = append(serverOpts,
			grpc.MaxRecvMsgSize(opts.MaxMessageSize),
			grpc.MaxSendMsgSize(opts.MaxMessageSize))
	}
	if opts.Credentials != nil {
		serverOpts = append(serverOpts, grpc.Creds(opts.Credentials))
	}

	gs := grpc.NewServer(serverOpts...)
	RegisterFederationServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return gs
}

// Serve listens on address and serves gs until it stops.
func Serve(gs *grpc.Server, address string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	logger.Info("Federation server listening", zap.String("address", listener.Addr().String()))
	return gs.Serve(listener)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, federation.ErrUnknownKind):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, federation.ErrMalformedIdentifier):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, storage.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if ids := md.Get(RequestIDKey); len(ids) > 0 {
		return ids[0]
	}
	return ""
}
