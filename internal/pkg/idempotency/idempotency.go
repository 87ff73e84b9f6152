package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrAlreadyFailed     = errors.New("operation already failed")
	ErrInvalidState      = errors.New("invalid state")
)

type State string

const (
	StateNone       State = "none"        // operation can proceed
	StateInProgress State = "in_progress" // operation already in progress
	StateCompleted  State = "completed"   // operation already completed
	StateFailed     State = "failed"      // previously operation failed
	StateError      State = "error"       // this operation error
)

func (s State) String() string {
	return string(s)
}

// Idempotency tracks the state of keyed operations so that concurrent or
// repeated callers run the operation at most once per state window.
type Idempotency interface {
	Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error)
	MarkCompleted(ctx context.Context, key string, ttl time.Duration) error
	MarkFailed(ctx context.Context, key string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// StateTracker keeps operation state in Redis under a key prefix.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a tracker using the "idempotency:" prefix.
func New(client redis.UniversalClient) *StateTracker {
	return NewWithPrefix(client, "idempotency:")
}

// NewWithPrefix returns a tracker with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string) *StateTracker {
	return &StateTracker{client: client, prefix: prefix}
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
)

type Option func(*execOptions)

type execOptions struct {
	lockDuration   time.Duration
	stateTTL       time.Duration
	releaseOnError bool
	skipCompleted  bool
}

func WithLockDuration(lockDuration time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = lockDuration
	}
}

func WithStateTTL(stateTTL time.Duration) Option {
	return func(o *execOptions) {
		o.stateTTL = stateTTL
	}
}

// WithReleaseOnError deletes the key when fn fails instead of recording
// StateFailed, so the next caller may retry right away.
func WithReleaseOnError() Option {
	return func(o *execOptions) {
		o.releaseOnError = true
	}
}

// WithSkipCompleted makes Exec return nil, not ErrAlreadyCompleted, when the
// key already completed. Message consumers use it to ack duplicates.
func WithSkipCompleted() Option {
	return func(o *execOptions) {
		o.skipCompleted = true
	}
}

// Acquire tries to start an operation
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return StateError, err
	}
	if acquired {
		return StateNone, nil
	}

	result, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		acquired, err = s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateError, err
		}
		if acquired {
			return StateNone, nil
		}
		return StateError, ErrInvalidState
	}
	if err != nil {
		return StateError, err
	}

	switch result {
	case StateInProgress.String():
		return StateInProgress, nil
	case StateCompleted.String():
		return StateCompleted, nil
	case StateFailed.String():
		return StateFailed, nil
	default:
		return StateError, ErrInvalidState
	}
}

// Release forgets the key.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *StateTracker) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), ttl).Err()
}

func (s *StateTracker) MarkFailed(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateFailed.String(), ttl).Err()
}

// Exec runs fn once per key. A caller that finds the key in progress gets
// ErrAlreadyInProgress; completed and failed keys are reported likewise until
// their state TTL lapses.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	execOpt := &execOptions{
		lockDuration: defaultLockDuration,
		stateTTL:     defaultStateTTL,
	}
	for _, opt := range opts {
		opt(execOpt)
	}
	if execOpt.lockDuration <= 0 {
		execOpt.lockDuration = defaultLockDuration
	}
	if execOpt.stateTTL <= 0 {
		execOpt.stateTTL = defaultStateTTL
	}

	state, err := s.Acquire(ctx, key, execOpt.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		if execOpt.skipCompleted {
			return nil
		}
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	}

	if err := fn(ctx); err != nil {
		var markErr error
		if execOpt.releaseOnError {
			markErr = s.Release(ctx, key)
		} else {
			markErr = s.MarkFailed(ctx, key, execOpt.stateTTL)
		}
		if markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}

	if err := s.MarkCompleted(ctx, key, execOpt.stateTTL); err != nil {
		return err
	}

	return nil
}
