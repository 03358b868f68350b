package recorder

import (
	"context"
	"time"

	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
)

// Writer persists a batch of records and reports how many were inserted.
type Writer interface {
	InsertBatch(ctx context.Context, items []domain.StrategyRecord) (int64, error)
}

// Recorder buffers generated records and writes them in batches, flushing
// when a batch is full or batchMaxWait has passed.
type Recorder struct {
	queue        chan domain.StrategyRecord
	writer       Writer
	batchMaxSize int
	batchMaxWait time.Duration
	log          *logger.Logger
}

func New(writer Writer, queueMaxSize, batchMaxSize int, batchMaxWait time.Duration, log *logger.Logger) *Recorder {
	if batchMaxSize <= 0 {
		batchMaxSize = 1
	}
	if batchMaxWait <= 0 {
		batchMaxWait = 200 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{
		queue:        make(chan domain.StrategyRecord, queueMaxSize),
		writer:       writer,
		batchMaxSize: batchMaxSize,
		batchMaxWait: batchMaxWait,
		log:          log.With("component", "recorder"),
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (rc *Recorder) Run(ctx context.Context) error {
	batch := make([]domain.StrategyRecord, 0, rc.batchMaxSize)
	t := time.NewTimer(rc.batchMaxWait)
	defer t.Stop()

	resetTimer := func() {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(rc.batchMaxWait)
	}

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		affected, err := rc.writer.InsertBatch(ctx, batch)
		if err != nil {
			rc.log.Error("batch insert failed", "error", err, "dropped", len(batch))
		} else {
			rc.log.Debug("batch insert ok", "inserted", affected, "size", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for len(rc.queue) > 0 {
				batch = append(batch, <-rc.queue)
				if len(batch) >= rc.batchMaxSize {
					rc.finalFlush(flush)
				}
			}
			rc.finalFlush(flush)
			return nil
		case rec := <-rc.queue:
			batch = append(batch, rec)
			if len(batch) >= rc.batchMaxSize {
				flush(ctx)
				resetTimer()
			}
		case <-t.C:
			flush(ctx)
			t.Reset(rc.batchMaxWait)
		}
	}
}

func (rc *Recorder) finalFlush(flush func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	flush(ctx)
}

// Enqueue hands rec to the writer without blocking. It reports false when
// the queue is full and the record was not accepted.
func (rc *Recorder) Enqueue(rec domain.StrategyRecord) bool {
	select {
	case rc.queue <- rec:
		return true
	default:
		return false
	}
}
