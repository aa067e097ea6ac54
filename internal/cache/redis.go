// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "daifugo_actions"

// GameActionRecord holds the minimal info needed by the historian service.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       uuid.UUID              `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ActionQueue is a Redis list carrying GameActionRecords from game servers to the historian.
type ActionQueue struct {
	Rdb       *redis.Client
	QueueName string
}

// NewActionQueue connects to Redis at addr and checks the connection.
func NewActionQueue(addr string, db int, queueName string) (*ActionQueue, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &ActionQueue{Rdb: rdb, QueueName: queueName}, nil
}

// Publish serializes the given record to JSON, then pushes it to the queue.
func (q *ActionQueue) Publish(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := q.Rdb.RPush(ctx, q.QueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.QueueName, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record. It returns nil, nil when the queue stayed empty.
func (q *ActionQueue) Pop(ctx context.Context, timeout time.Duration) (*GameActionRecord, error) {
	res, err := q.Rdb.BLPop(ctx, timeout, q.QueueName).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPop returns [queueName, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPop reply of length %d", len(res))
	}

	var rec GameActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GameActionRecord: %w", err)
	}
	return &rec, nil
}

// Close releases the Redis connection pool.
func (q *ActionQueue) Close() error {
	return q.Rdb.Close()
}
