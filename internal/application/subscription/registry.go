package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-push-relay/internal/domain"
	"github.com/go-push-relay/internal/pkg/validate"
)

// Key layout in the durable store.
const (
	subscriptionPrefix = "subscription:"
	indexKey           = "index:recipients"
)

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Registry persists one SubscriptionRecord per recipient plus a flat index
// of recipient ids used for broadcasts.
//
// Record and index writes are separate and not transactional. Index
// mutations are read-modify-write on a single value, so they are
// serialized by mu; run one writer process per store.
type Registry struct {
	store kvStore
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
}

// NewRegistry returns a Registry whose records expire after ttl.
func NewRegistry(store kvStore, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl, now: time.Now}
}

// Put validates sub and upserts it for recipientID. Re-registering keeps
// the original createdAt and refreshes updatedAt and the expiry.
func (r *Registry) Put(ctx context.Context, recipientID string, sub domain.PushSubscription) error {
	if strings.TrimSpace(recipientID) == "" {
		return fmt.Errorf("recipient id is required: %w", domain.ErrInvalidSubscription)
	}
	if err := validate.Struct(&sub); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidSubscription)
	}

	now := r.now().UTC()
	rec := domain.SubscriptionRecord{Subscription: sub, CreatedAt: now, UpdatedAt: now}
	existing, err := r.Get(ctx, recipientID)
	switch {
	case err == nil:
		rec.CreatedAt = existing.CreatedAt
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal subscription record: %w", err)
	}
	if err := r.store.Put(ctx, subscriptionPrefix+recipientID, b, r.ttl); err != nil {
		return fmt.Errorf("store subscription: %w", err)
	}
	return r.mutateIndex(ctx, func(ids []string) ([]string, bool) {
		if slices.Contains(ids, recipientID) {
			return ids, false
		}
		return append(ids, recipientID), true
	})
}

// Remove deletes the record and its index entry. Removing an unknown
// recipient is not an error.
func (r *Registry) Remove(ctx context.Context, recipientID string) error {
	if err := r.store.Delete(ctx, subscriptionPrefix+recipientID); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return r.mutateIndex(ctx, func(ids []string) ([]string, bool) {
		i := slices.Index(ids, recipientID)
		if i < 0 {
			return ids, false
		}
		return slices.Delete(ids, i, i+1), true
	})
}

// Get returns the record for recipientID, or an error wrapping
// domain.ErrNotFound when there is none.
func (r *Registry) Get(ctx context.Context, recipientID string) (*domain.SubscriptionRecord, error) {
	b, err := r.store.Get(ctx, subscriptionPrefix+recipientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("subscription for %q: %w", recipientID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	var rec domain.SubscriptionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode subscription record: %w", err)
	}
	return &rec, nil
}

// ListAll reads the index and returns a single-use sequence that resolves
// each recipient lazily. Index entries without a live record are skipped and
// dropped from the index once iteration stops.
func (r *Registry) ListAll(ctx context.Context) (iter.Seq2[string, domain.PushSubscription], error) {
	ids, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	consumed := false
	return func(yield func(string, domain.PushSubscription) bool) {
		if consumed {
			return
		}
		consumed = true
		var orphans []string
		defer func() { r.pruneOrphans(ctx, orphans) }()

		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			rec, err := r.Get(ctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					orphans = append(orphans, id)
				} else {
					slog.Warn("skipping unreadable subscription", "recipient", id, "err", err)
				}
				continue
			}
			if !yield(id, rec.Subscription) {
				return
			}
		}
	}, nil
}

// Count returns the number of recipients with a live record. Walking the
// index also prunes its orphans.
func (r *Registry) Count(ctx context.Context) (int, error) {
	seq, err := r.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for range seq {
		n++
	}
	return n, nil
}

// pruneOrphans drops ids from the index whose record is still absent under
// the index lock. A concurrent Put writes its record before taking the lock,
// so a re-registered recipient is kept.
func (r *Registry) pruneOrphans(ctx context.Context, orphans []string) {
	if len(orphans) == 0 || ctx.Err() != nil {
		return
	}
	err := r.mutateIndex(ctx, func(ids []string) ([]string, bool) {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if slices.Contains(orphans, id) && r.absent(ctx, id) {
				continue
			}
			kept = append(kept, id)
		}
		return kept, len(kept) != len(ids)
	})
	if err != nil {
		slog.Warn("pruning orphaned index entries failed", "count", len(orphans), "err", err)
		return
	}
	slog.Info("pruned orphaned index entries", "count", len(orphans))
}

func (r *Registry) absent(ctx context.Context, recipientID string) bool {
	_, err := r.Get(ctx, recipientID)
	return errors.Is(err, domain.ErrNotFound)
}

func (r *Registry) index(ctx context.Context) ([]string, error) {
	b, err := r.store.Get(ctx, indexKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recipient index: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode recipient index: %w", err)
	}
	return ids, nil
}

// mutateIndex applies fn under the index lock and writes the result only
// when fn reports a change.
func (r *Registry) mutateIndex(ctx context.Context, fn func([]string) ([]string, bool)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.index(ctx)
	if err != nil {
		return err
	}
	next, changed := fn(ids)
	if !changed {
		return nil
	}
	if next == nil {
		next = []string{}
	}
	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal recipient index: %w", err)
	}
	if err := r.store.Put(ctx, indexKey, b, 0); err != nil {
		return fmt.Errorf("store recipient index: %w", err)
	}
	return nil
}
