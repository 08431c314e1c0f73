// Package events publishes committed loan events over redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"loan-engine/internal/domain/loan"

	"github.com/redis/go-redis/v9"
)

// Channel receives every event; per-loan channels are Channel + ":" + id.
const Channel = "loan-engine:events"

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher { return &RedisPublisher{rdb: rdb} }

func LoanChannel(loanID uint64) string { return Channel + ":" + strconv.FormatUint(loanID, 10) }

func (p *RedisPublisher) Publish(ctx context.Context, events []loan.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.rdb.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		pipe.Publish(ctx, Channel, payload)
		pipe.Publish(ctx, LoanChannel(e.LoanID), payload)
	}
	_, err := pipe.Exec(ctx)
	return err
}

var _ loan.Publisher = (*RedisPublisher)(nil)
