package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is a durable delivery job queue with scheduled delays, bounded
// retries and idempotent enqueue
type Queue interface {
	// Enqueue adds a job, eligible after delay. Returns false when a job
	// with the same idempotency key already exists.
	Enqueue(ctx context.Context, job *Job, delay time.Duration) (bool, error)
	// Dequeue blocks until a job is eligible or ctx is done
	Dequeue(ctx context.Context) (*Job, error)
	// Complete marks a job terminally successful
	Complete(ctx context.Context, id, result string) error
	// Fail records a failed attempt, rescheduling with exponential backoff
	// until the attempt ceiling, then marks the job terminally failed
	Fail(ctx context.Context, id, lastError string) error
	// Get retrieves a job by id; (nil, nil) when unknown
	Get(ctx context.Context, id string) (*Job, error)
}

// QueueOptions tune the redis queue. Zero values take the defaults below,
// which mirror common chat-gateway throttling setups: 3 attempts, 2s backoff
// base, completed jobs kept 1h, failed jobs kept 24h for inspection.
// VisibilityTimeout is the processing lease: an active job whose worker dies
// is swept back into circulation once the lease expires.
type QueueOptions struct {
	BaseBackoff        time.Duration
	CompletedRetention time.Duration
	FailedRetention    time.Duration
	PollInterval       time.Duration
	VisibilityTimeout  time.Duration
}

func (o *QueueOptions) withDefaults() QueueOptions {
	opts := *o
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 2 * time.Second
	}
	if opts.CompletedRetention <= 0 {
		opts.CompletedRetention = time.Hour
	}
	if opts.FailedRetention <= 0 {
		opts.FailedRetention = 24 * time.Hour
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = time.Minute
	}
	return opts
}

const (
	jobKeyPrefix = "delivery:job:"
	scheduledKey = "delivery:scheduled"
	readyKey     = "delivery:ready"
	activeKey    = "delivery:active"
)

// RedisQueue is the redis-backed Queue implementation. Job state lives in a
// hash per job; due jobs move from a time-scored sorted set to a ready list.
type RedisQueue struct {
	client *redis.Client
	opts   QueueOptions
}

// NewRedisQueue creates a queue on the given redis client
func NewRedisQueue(client *redis.Client, opts QueueOptions) *RedisQueue {
	return &RedisQueue{client: client, opts: opts.withDefaults()}
}

// enqueueScript writes the job hash and schedules it in one atomic step. The
// job id doubles as the idempotency key: first writer wins, and a crash can
// never leave a job record without a ready or scheduled entry behind it.
var enqueueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'id', ARGV[1],
	'kind', ARGV[2],
	'payload', ARGV[3],
	'attempts', 0,
	'max_attempts', ARGV[4],
	'status', ARGV[5],
	'enqueued_at', ARGV[6])
if tonumber(ARGV[7]) > 0 then
	redis.call('ZADD', KEYS[2], ARGV[7], ARGV[1])
else
	redis.call('LPUSH', KEYS[3], ARGV[1])
end
return 1
`)

// Enqueue adds a job, eligible after delay
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) (bool, error) {
	now := time.Now()

	var score int64
	if delay > 0 {
		score = now.Add(delay).UnixMilli()
	}

	created, err := enqueueScript.Run(ctx, q.client,
		[]string{jobKeyPrefix + job.ID, scheduledKey, readyKey},
		job.ID,
		job.Kind,
		string(job.Payload),
		job.MaxAttempts,
		string(JobStatusPending),
		now.Format(time.RFC3339Nano),
		score,
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return created == 1, nil
}

// Dequeue blocks until a job is eligible or ctx is done
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		if err := q.promoteDue(ctx); err != nil {
			return nil, err
		}
		if err := q.reclaimStalled(ctx); err != nil {
			return nil, err
		}

		id, err := q.client.RPop(ctx, readyKey).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to pop job: %w", err)
		}
		if err == nil {
			return q.activate(ctx, id)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.opts.PollInterval):
		}
	}
}

// promoteDue moves scheduled jobs whose time has come onto the ready list.
// ZRem decides ownership, so concurrent workers cannot promote one job twice.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read scheduled jobs: %w", err)
	}

	for _, id := range due {
		removed, err := q.client.ZRem(ctx, scheduledKey, id).Result()
		if err != nil {
			return fmt.Errorf("failed to promote job: %w", err)
		}
		if removed == 0 {
			continue // another worker got it
		}
		if err := q.client.LPush(ctx, readyKey, id).Err(); err != nil {
			return fmt.Errorf("failed to push promoted job: %w", err)
		}
	}

	return nil
}

// reclaimStalled returns active jobs whose processing lease has expired to
// circulation: back onto the ready list while attempts remain, terminally
// failed otherwise. This is what keeps a job alive when its worker dies
// between dequeue and complete.
func (q *RedisQueue) reclaimStalled(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	expired, err := q.client.ZRangeByScore(ctx, activeKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read active jobs: %w", err)
	}

	for _, id := range expired {
		removed, err := q.client.ZRem(ctx, activeKey, id).Result()
		if err != nil {
			return fmt.Errorf("failed to reclaim job: %w", err)
		}
		if removed == 0 {
			continue // another worker got it
		}

		job, err := q.Get(ctx, id)
		if err != nil {
			return err
		}
		if job == nil || job.Status == JobStatusCompleted || job.Status == JobStatusFailed {
			continue // finished normally before the sweep
		}

		key := jobKeyPrefix + id
		if job.Attempts >= job.MaxAttempts {
			err := q.client.HSet(ctx, key, map[string]interface{}{
				"status":     string(JobStatusFailed),
				"last_error": "processing lease expired",
			}).Err()
			if err != nil {
				return fmt.Errorf("failed to mark stalled job failed: %w", err)
			}
			if err := q.client.Expire(ctx, key, q.opts.FailedRetention).Err(); err != nil {
				return fmt.Errorf("failed to expire stalled job: %w", err)
			}
			continue
		}

		if err := q.client.HSet(ctx, key, "status", string(JobStatusPending)).Err(); err != nil {
			return fmt.Errorf("failed to reset stalled job: %w", err)
		}
		if err := q.client.LPush(ctx, readyKey, id).Err(); err != nil {
			return fmt.Errorf("failed to requeue stalled job: %w", err)
		}
	}

	return nil
}

func (q *RedisQueue) activate(ctx context.Context, id string) (*Job, error) {
	key := jobKeyPrefix + id

	deadline := float64(time.Now().Add(q.opts.VisibilityTimeout).UnixMilli())
	if err := q.client.ZAdd(ctx, activeKey, redis.Z{Score: deadline, Member: id}).Err(); err != nil {
		return nil, fmt.Errorf("failed to lease job: %w", err)
	}
	if err := q.client.HSet(ctx, key, "status", string(JobStatusActive)).Err(); err != nil {
		return nil, fmt.Errorf("failed to activate job: %w", err)
	}
	if err := q.client.HIncrBy(ctx, key, "attempts", 1).Err(); err != nil {
		return nil, fmt.Errorf("failed to count attempt: %w", err)
	}

	return q.Get(ctx, id)
}

// Complete marks a job terminally successful
func (q *RedisQueue) Complete(ctx context.Context, id, result string) error {
	key := jobKeyPrefix + id

	if err := q.client.ZRem(ctx, activeKey, id).Err(); err != nil {
		return fmt.Errorf("failed to release job lease: %w", err)
	}

	err := q.client.HSet(ctx, key, map[string]interface{}{
		"status": string(JobStatusCompleted),
		"result": result,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return q.client.Expire(ctx, key, q.opts.CompletedRetention).Err()
}

// Fail records a failed attempt and either reschedules the job with
// exponential backoff or, once attempts reach the ceiling, marks it
// terminally failed
func (q *RedisQueue) Fail(ctx context.Context, id, lastError string) error {
	job, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}

	key := jobKeyPrefix + id

	if err := q.client.ZRem(ctx, activeKey, id).Err(); err != nil {
		return fmt.Errorf("failed to release job lease: %w", err)
	}

	if job.Attempts >= job.MaxAttempts {
		err := q.client.HSet(ctx, key, map[string]interface{}{
			"status":     string(JobStatusFailed),
			"last_error": lastError,
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to mark job failed: %w", err)
		}
		return q.client.Expire(ctx, key, q.opts.FailedRetention).Err()
	}

	err = q.client.HSet(ctx, key, map[string]interface{}{
		"status":     string(JobStatusPending),
		"last_error": lastError,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}

	backoff := q.opts.BaseBackoff << (job.Attempts - 1)
	score := float64(time.Now().Add(backoff).UnixMilli())
	if err := q.client.ZAdd(ctx, scheduledKey, redis.Z{Score: score, Member: id}).Err(); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	return nil
}

// Get retrieves a job by id
func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	fields, err := q.client.HGetAll(ctx, jobKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	job := &Job{
		ID:        fields["id"],
		Kind:      fields["kind"],
		Payload:   json.RawMessage(fields["payload"]),
		Status:    JobStatus(fields["status"]),
		LastError: fields["last_error"],
		Result:    fields["result"],
	}
	job.Attempts, _ = strconv.Atoi(fields["attempts"])
	job.MaxAttempts, _ = strconv.Atoi(fields["max_attempts"])
	if ts, err := time.Parse(time.RFC3339Nano, fields["enqueued_at"]); err == nil {
		job.EnqueuedAt = ts
	}

	return job, nil
}
