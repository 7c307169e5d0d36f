package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

// Optimistic holds UI-side state that is updated before the server confirms
// the change. Apply shows the predicted state immediately and rolls back to
// the previous state if the commit fails. One action may be in flight at a
// time.
type Optimistic[T any] struct {
	mu      sync.Mutex
	current T
	pending bool
}

// NewOptimistic returns an Optimistic holding initial.
func NewOptimistic[T any](initial T) *Optimistic[T] {
	return &Optimistic[T]{current: initial}
}

// Current returns the visible state, which may be a prediction.
func (o *Optimistic[T]) Current() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Pending reports whether an action is in flight.
func (o *Optimistic[T]) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// Apply sets the state to predict(current), then runs commit. If commit
// fails the previous state is restored. It returns the resulting state.
func (o *Optimistic[T]) Apply(ctx context.Context, predict func(T) T, commit func(context.Context, T) error) (T, error) {
	o.mu.Lock()
	if o.pending {
		cur := o.current
		o.mu.Unlock()
		return cur, ErrActionPending
	}
	prev := o.current
	next := predict(prev)
	o.current = next
	o.pending = true
	o.mu.Unlock()

	err := commit(ctx, next)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = false
	if err != nil {
		o.current = prev
	}
	return o.current, err
}

// LikeState is what a post card shows for the like button.
type LikeState struct {
	Liked bool `json:"liked" yaml:"liked"`
	Count int  `json:"count" yaml:"count"`
}

// Toggle returns the state after the user clicks the like button.
func (s LikeState) Toggle() LikeState {
	if s.Liked {
		s.Liked = false
		if s.Count > 0 {
			s.Count--
		}
		return s
	}
	s.Liked = true
	s.Count++
	return s
}

// ToggleLike likes or unlikes a post optimistically. The backend toggles the
// like for the token's user; any error (including non-2xx) rolls back.
func (c *APIClient) ToggleLike(ctx context.Context, postID string, state *Optimistic[LikeState]) (LikeState, error) {
	if !c.store.IsLoggedIn() {
		return state.Current(), ErrNotAuthenticated
	}

	path := fmt.Sprintf("/api/feed/posts/%s/like", url.PathEscape(postID))
	return state.Apply(ctx, LikeState.Toggle, func(ctx context.Context, _ LikeState) error {
		return c.Post(ctx, path, nil, nil)
	})
}
