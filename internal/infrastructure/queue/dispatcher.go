package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes avatar variant jobs to a fixed set of workers using
// consistent hashing on the user id, so jobs of one user run in order.
type Dispatcher struct {
	workers   []chan ports.VariantJob
	processor ports.VariantProcessor
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, processor ports.VariantProcessor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan ports.VariantJob, numWorkers),
		processor: processor,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.VariantJob, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a job to the worker owning its user. When that worker's
// buffer is full the job is dropped; the original avatar keeps serving.
func (d *Dispatcher) Enqueue(job ports.VariantJob) {
	idx := d.shardIndex(job.UserID)
	select {
	case d.workers[idx] <- job:
		metrics.AvatarQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		d.log.Warn().Str("user_id", job.UserID).Int("worker_id", idx).Msg("variant queue full, job dropped")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.VariantJob) {
	depth := metrics.AvatarQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()

			start := time.Now()
			err := d.processor.Process(ctx, job)
			metrics.AvatarVariantDuration.Observe(time.Since(start).Seconds())

			if err != nil {
				metrics.AvatarVariantsTotal.WithLabelValues("error").Inc()
				d.log.Error().Err(err).
					Str("user_id", job.UserID).
					Str("key", job.AvatarKey).
					Int("worker_id", id).
					Msg("avatar variant failed")
				continue
			}
			metrics.AvatarVariantsTotal.WithLabelValues("success").Inc()
		}
	}
}
