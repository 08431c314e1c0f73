// Package chain provides block height sources for the loan engine.
package chain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// EthHeight follows the head of an EVM chain over JSON-RPC.
type EthHeight struct {
	client *ethclient.Client
}

func DialEth(ctx context.Context, rpcURL string) (*EthHeight, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &EthHeight{client: c}, nil
}

func (h *EthHeight) CurrentBlock(ctx context.Context) (uint64, error) {
	return h.client.BlockNumber(ctx)
}

func (h *EthHeight) Close() { h.client.Close() }

// WallClock derives a height from elapsed time since genesis, one block per
// interval.
type WallClock struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

func NewWallClock(genesis time.Time, interval time.Duration) (*WallClock, error) {
	if interval <= 0 {
		return nil, errors.New("chain: block interval must be positive")
	}
	return &WallClock{genesis: genesis, interval: interval, now: time.Now}, nil
}

func (w *WallClock) CurrentBlock(context.Context) (uint64, error) {
	d := w.now().Sub(w.genesis)
	if d < 0 {
		return 0, nil
	}
	return uint64(d / w.interval), nil
}

// Manual is advanced by hand; tests and local tooling use it.
type Manual struct {
	mu sync.Mutex
	h  uint64
}

func NewManual(start uint64) *Manual { return &Manual{h: start} }

func (m *Manual) CurrentBlock(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.h, nil
}

func (m *Manual) Set(h uint64) {
	m.mu.Lock()
	m.h = h
	m.mu.Unlock()
}

func (m *Manual) Advance(n uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h += n
	return m.h
}
