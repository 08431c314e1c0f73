package loan

import "context"

// BlockSource yields the current block height. Every operation reads it once
// and uses that value throughout.
type BlockSource interface {
	CurrentBlock(ctx context.Context) (uint64, error)
}

// Publisher fans out events after the transaction that produced them has
// committed.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}
