package transport

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

// connPool keeps one client connection per peer address.
type connPool struct {
	mu          sync.Mutex
	connections map[string]*pooledConn
	dialOpts    []grpc.DialOption
	logger      *zap.Logger
}

type pooledConn struct {
	conn     *grpc.ClientConn
	created  time.Time
	lastUsed time.Time
	useCount int64
}

func newConnPool(dialOpts []grpc.DialOption, logger *zap.Logger) *connPool {
	return &connPool{
		connections: make(map[string]*pooledConn),
		dialOpts:    dialOpts,
		logger:      logger,
	}
}

// get returns the pooled connection for address, dialing a new one when
// there is none or the old one has failed.
func (p *connPool) get(address string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pooled, ok := p.connections[address]; ok {
		if usable(pooled.conn) {
			pooled.lastUsed = time.Now()
			pooled.useCount++
			return pooled.conn, nil
		}
		pooled.conn.Close()
		delete(p.connections, address)
		p.logger.Debug("Dropped failed connection", zap.String("address", address))
	}

	conn, err := grpc.Dial(address, p.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	now := time.Now()
	p.connections[address] = &pooledConn{conn: conn, created: now, lastUsed: now, useCount: 1}
	p.logger.Debug("Opened peer connection", zap.String("address", address))
	return conn, nil
}

// len reports the number of pooled connections.
func (p *connPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// close closes every pooled connection.
func (p *connPool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for address, pooled := range p.connections {
		if err := pooled.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.connections, address)
	}
	return firstErr
}

func usable(conn *grpc.ClientConn) bool {
	switch conn.GetState() {
	case connectivity.Shutdown, connectivity.TransientFailure:
		return false
	default:
		return true
	}
}
