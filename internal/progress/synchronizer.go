// Package progress batches and debounces time and answer updates on their
// way to persistent storage. It is the explicit queue-and-worker form of
// the debounced-write pattern: enqueue with key-based coalescing, ordered
// delivery per key, and a last-confirmed-save timestamp the UI can show
// as a trust signal.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/rs/zerolog"
)

// DefaultDebounceWindow is used when no window is configured.
const DefaultDebounceWindow = 400 * time.Millisecond

// Store persists coalesced updates. seq is a per-key issuance counter:
// implementations must drop a write whose seq is lower than one already
// applied for the same key, so a stale in-flight write can never clobber
// a newer one.
type Store interface {
	SaveAnswer(ctx context.Context, sessionID uuid.UUID, ans model.Answer, seq uint64) error
	SaveTime(ctx context.Context, sessionID uuid.UUID, seconds int, seq uint64) error
}

const timeKey = "time"

type update struct {
	answer  *model.Answer
	seconds int
	seq     uint64
}

type keyState struct {
	pending  *update
	inFlight bool
	timer    *time.Timer
	seq      uint64 // issuance counter for this key
}

// Synchronizer debounces updates per key and delivers them in issuance
// order. Time updates share one key; answer updates are keyed per
// question, so edits to different questions never block each other.
type Synchronizer struct {
	mu        sync.Mutex
	sessionID uuid.UUID
	store     Store
	window    time.Duration
	log       zerolog.Logger

	keys      map[string]*keyState
	lastSaved time.Time
	maxTime   int
	closed    bool
	wg        sync.WaitGroup
}

// NewSynchronizer creates a Synchronizer for one session.
func NewSynchronizer(sessionID uuid.UUID, store Store, window time.Duration, log zerolog.Logger) *Synchronizer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Synchronizer{
		sessionID: sessionID,
		store:     store,
		window:    window,
		log:       log.With().Str("component", "progress_sync").Str("session_id", sessionID.String()).Logger(),
		keys:      make(map[string]*keyState),
	}
}

// EnqueueTime coalesces a time-spent update. Stale values (not greater
// than the largest seen) are dropped so elapsed time never regresses.
func (s *Synchronizer) EnqueueTime(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seconds <= s.maxTime {
		return
	}
	s.maxTime = seconds
	s.enqueueLocked(timeKey, &update{seconds: seconds})
}

// EnqueueAnswer coalesces an answer update for its question. Rapid
// successive edits to the same question collapse into one write carrying
// only the final state.
func (s *Synchronizer) EnqueueAnswer(ans model.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.enqueueLocked("answer:"+ans.SessionQuestionID.String(), &update{answer: &ans})
}

func (s *Synchronizer) enqueueLocked(key string, u *update) {
	ks := s.keys[key]
	if ks == nil {
		ks = &keyState{}
		s.keys[key] = ks
	}
	ks.seq++
	u.seq = ks.seq
	ks.pending = u

	// Trailing-edge debounce: reset the window on every edit.
	if ks.timer != nil {
		ks.timer.Stop()
	}
	ks.timer = time.AfterFunc(s.window, func() { s.fire(key) })
}

// fire dispatches the pending update for key unless an earlier write for
// the same key is still in flight; completion of that write re-fires.
func (s *Synchronizer) fire(key string) {
	s.mu.Lock()
	ks := s.keys[key]
	if ks == nil || ks.pending == nil || ks.inFlight || s.closed {
		s.mu.Unlock()
		return
	}
	u := ks.pending
	ks.pending = nil
	ks.inFlight = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := s.write(context.Background(), u)

		s.mu.Lock()
		ks.inFlight = false
		newer := ks.pending != nil // an edit arrived while we were in flight
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Progress write failed, will retry on next update")
			// Keep the failed update so the next enqueue or flush for this
			// key carries it forward; a newer pending edit supersedes it.
			if ks.pending == nil {
				ks.pending = u
			}
		} else {
			s.lastSaved = time.Now()
		}
		rearm := newer && !s.closed
		s.mu.Unlock()

		if rearm {
			time.AfterFunc(s.window, func() { s.fire(key) })
		}
	}()
}

func (s *Synchronizer) write(ctx context.Context, u *update) error {
	if u.answer != nil {
		return s.store.SaveAnswer(ctx, s.sessionID, *u.answer, u.seq)
	}
	return s.store.SaveTime(ctx, s.sessionID, u.seconds, u.seq)
}

// LastSavedAt returns the time of the last confirmed save; the zero time
// means nothing has been confirmed yet.
func (s *Synchronizer) LastSavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Flush synchronously writes every pending update, bypassing the debounce
// window. Best-effort: the first error is returned but the remaining keys
// are still attempted. Used before leaving a session.
func (s *Synchronizer) Flush(ctx context.Context) error {
	var firstErr error
	for {
		// Let in-flight writes land first so flush writes stay newest.
		s.wg.Wait()

		s.mu.Lock()
		var todo []*update
		for _, ks := range s.keys {
			if ks.timer != nil {
				ks.timer.Stop()
			}
			if ks.pending != nil && !ks.inFlight {
				todo = append(todo, ks.pending)
				ks.pending = nil
			}
		}
		s.mu.Unlock()

		if len(todo) == 0 {
			return firstErr
		}
		for _, u := range todo {
			if err := s.write(ctx, u); err != nil {
				s.log.Warn().Err(err).Msg("Flush write failed")
				if firstErr == nil {
					firstErr = fmt.Errorf("flush: %w", err)
				}
				continue
			}
			s.mu.Lock()
			s.lastSaved = time.Now()
			s.mu.Unlock()
		}
	}
}

// Close flushes pending updates and stops accepting new ones.
func (s *Synchronizer) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	for _, ks := range s.keys {
		if ks.timer != nil {
			ks.timer.Stop()
		}
	}
	s.mu.Unlock()
	return err
}
