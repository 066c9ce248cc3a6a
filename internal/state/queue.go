// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/podops/overseer/internal/model"
)

// Queue is the bounded FIFO review queue. Producers block while the queue
// is at capacity; consumers block on pop up to their timeout. Backed by a
// Redis list so the bound holds across processes.
type Queue struct {
	client   *Client
	capacity int

	// fullPoll is how often a blocked producer re-checks the bound.
	fullPoll time.Duration
}

// NewQueue returns the review queue with the given capacity.
func NewQueue(client *Client, capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{
		client:   client,
		capacity: capacity,
		fullPoll: 250 * time.Millisecond,
	}
}

// Capacity returns the configured bound.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Length returns the current queue depth.
func (q *Queue) Length(ctx context.Context) (int, error) {
	n, err := q.client.rdb.LLen(ctx, keyReviewQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: llen: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// pushBelowCap checks the bound and pushes in one script, so concurrent
// producers cannot overshoot the capacity between check and push.
var pushBelowCap = redis.NewScript(`
if redis.call('LLEN', KEYS[1]) < tonumber(ARGV[2]) then
	redis.call('LPUSH', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// Push appends a review request, blocking while the queue is full until
// ctx is cancelled.
func (q *Queue) Push(ctx context.Context, req model.ReviewRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("state: marshal review request: %w", err)
	}
	for {
		ok, err := pushBelowCap.Run(ctx, q.client.rdb, []string{keyReviewQueue}, data, q.capacity).Int()
		if err != nil {
			return fmt.Errorf("%w: bounded push: %v", ErrUnavailable, err)
		}
		if ok == 1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(q.fullPoll):
		}
	}
}

// Pop removes the oldest request, blocking up to timeout. Returns
// (nil, nil) when the timeout elapses with an empty queue.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*model.ReviewRequest, error) {
	res, err := q.client.rdb.BRPop(ctx, timeout, keyReviewQueue).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: brpop: %v", ErrUnavailable, err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("state: unexpected brpop reply of length %d", len(res))
	}
	var req model.ReviewRequest
	if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
		return nil, fmt.Errorf("state: unmarshal review request: %w", err)
	}
	return &req, nil
}
