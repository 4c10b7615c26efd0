package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue: it writes the graded result
// rows, moves the session from SUBMITTED to its final state, and clears the
// session's live Redis buffers.
type ResultWorker struct {
	resultRepo  *repository.ResultRepository
	sessionRepo *repository.ExamSessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(
	resultRepo *repository.ResultRepository,
	sessionRepo *repository.ExamSessionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ResultWorker {
	return &ResultWorker{
		resultRepo:  resultRepo,
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "result_worker").Logger(),
	}
}

type resultItem struct {
	Result     model.ExamSessionResult `json:"result"`
	FinalState model.SessionState      `json:"final_state"`
}

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*resultItem, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			w.drain(context.Background())
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p resultItem
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*resultItem) {
	if len(batch) == 0 {
		return
	}

	persisted := make([]*resultItem, 0, len(batch))
	for _, p := range batch {
		if err := w.persistResult(ctx, p); err != nil {
			w.log.Error().Err(err).
				Str("session_id", p.Result.SessionID.String()).
				Msg("Result persist failed, requeueing")
			raw, _ := json.Marshal(p)
			w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			continue
		}
		persisted = append(persisted, p)
	}

	// After successful writes, the live session buffers are dead weight.
	w.bulkClearSessionBuffers(ctx, persisted)
}

func (w *ResultWorker) persistResult(ctx context.Context, p *resultItem) error {
	if err := w.resultRepo.Save(ctx, &p.Result); err != nil {
		return err
	}
	err := w.sessionRepo.UpdateState(ctx, p.Result.SessionID, p.FinalState, model.SessionStateSubmitted)
	if errors.Is(err, repository.ErrStateConflict) {
		// A direct-write fallback or a replayed message got there first.
		return nil
	}
	return err
}

func (w *ResultWorker) bulkClearSessionBuffers(ctx context.Context, batch []*resultItem) {
	if len(batch) == 0 {
		return
	}
	pipe := w.rdb.Pipeline()
	for _, p := range batch {
		id := p.Result.SessionID.String()
		pipe.Del(ctx, config.CacheKey.SessionAnswersKey(id))
		pipe.Del(ctx, config.CacheKey.SessionElapsedKey(id))
		pipe.Del(ctx, config.CacheKey.SessionFlagsKey(id))
	}
	_, _ = pipe.Exec(ctx)
}

// drain persists every queued result before shutdown.
func (w *ResultWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			break
		}

		var p resultItem
		if err := json.Unmarshal([]byte(result), &p); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistResult(ctx, &p); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, result)
			break
		}
		w.bulkClearSessionBuffers(ctx, []*resultItem{&p})
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
