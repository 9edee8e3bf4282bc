package record

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/utils"
)

// Builder turns raw inputs into an execution record using the reference
// clock and address layout:
//
//   - hash input i is absorbed once at (i, i+1) from address i+1 with hash
//     id i and absorb id 0, then finalized at (i+1, i+2) to address i+1
//   - compress input i reads its input at (i, i+1) and its result at
//     (i+1, i+2) with destination address i+1
//
// Every hash session starts from a zeroed sponge.
type Builder struct {
	engine  *events.Engine
	log     logrus.FieldLogger
	workers int

	corrupt bool
	seed    uint64
}

// Option configures a Builder
type Option func(*Builder)

// WithWorkers limits the number of goroutines used by BuildParallel
func WithWorkers(n int) Option {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithCorruption replaces every finalize and compress permutation output
// with random states drawn from seed. The resulting records are well formed
// but fail Verify; they exist to exercise the negative paths of a trace
// builder.
func WithCorruption(seed uint64) Option {
	return func(b *Builder) {
		b.corrupt = true
		b.seed = seed
	}
}

// NewBuilder creates a builder over engine
func NewBuilder(engine *events.Engine, log logrus.FieldLogger, opts ...Option) (*Builder, error) {
	if engine == nil {
		return nil, core.Errorf(core.ErrInvalidConfig, "engine cannot be nil")
	}

	b := &Builder{
		engine:  engine,
		log:     utils.Component(log, "builder"),
		workers: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		return nil, core.Errorf(core.ErrInvalidConfig, "workers must be positive, got %d", b.workers)
	}
	return b, nil
}

// Build constructs the record sequentially
func (b *Builder) Build(in Inputs) (*ExecutionRecord, error) {
	start := time.Now()
	rec := New()

	for i, input := range in.Hash {
		evs, err := b.hashSession(i, input)
		if err != nil {
			return nil, fmt.Errorf("hash input %d: %w", i, err)
		}
		if err := rec.AppendHash(evs...); err != nil {
			return nil, err
		}
	}

	for i, input := range in.Compress {
		if err := rec.AppendCompress(b.compress(i, input)); err != nil {
			return nil, err
		}
	}

	b.logSummary(rec, start, 1)
	return rec, nil
}

// BuildParallel constructs the same record as Build with up to the
// configured number of workers. Each session and compression is built into
// its own slot and the slots are appended in input order.
func (b *Builder) BuildParallel(ctx context.Context, in Inputs) (*ExecutionRecord, error) {
	start := time.Now()
	hashSlots := make([][]events.HashEvent, len(in.Hash))
	compressSlots := make([]events.CompressEvent, len(in.Compress))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := range in.Hash {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			evs, err := b.hashSession(i, in.Hash[i])
			if err != nil {
				return fmt.Errorf("hash input %d: %w", i, err)
			}
			hashSlots[i] = evs
			return nil
		})
	}

	for i := range in.Compress {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			compressSlots[i] = b.compress(i, in.Compress[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec := New()
	for _, evs := range hashSlots {
		if err := rec.AppendHash(evs...); err != nil {
			return nil, err
		}
	}
	if err := rec.AppendCompress(compressSlots...); err != nil {
		return nil, err
	}

	b.logSummary(rec, start, b.workers)
	return rec, nil
}

func (b *Builder) hashSession(i int, input []core.Element) ([]events.HashEvent, error) {
	if i >= int(core.MaxHashID) {
		return nil, core.Errorf(core.ErrIdentifierOverflow, "hash id %d exceeds %d", i, core.MaxHashID-1)
	}

	sess, err := NewSession(b.engine, uint32(i), core.FromInt(i), core.FromInt(i+1))
	if err != nil {
		return nil, err
	}
	if _, err := sess.Absorb(input); err != nil {
		return nil, err
	}
	if _, err := sess.Finalize(); err != nil {
		return nil, err
	}

	evs := sess.Events()
	if b.corrupt {
		b.corruptFinalize(i, evs[len(evs)-1].Finalize)
	}

	b.log.WithFields(logrus.Fields{
		"hash_id": i,
		"length":  len(input),
	}).Debug("hash session recorded")
	return evs, nil
}

func (b *Builder) compress(i int, input core.State) events.CompressEvent {
	ev := b.engine.Compress(events.CompressRequest{
		Input:              input,
		DestinationAddress: core.FromInt(i + 1),
		PreviousTimestamp:  core.FromInt(i),
		Timestamp:          core.FromInt(i + 1),
		OutputTimestamp:    core.FromInt(i + 2),
	})
	if b.corrupt {
		b.corruptCompress(i, &ev)
	}
	return ev
}

// corruption streams are keyed by input index so parallel and sequential
// builds corrupt identically
func (b *Builder) corruptionSource(kind uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(b.seed, uint64(i)<<1|kind))
}

func (b *Builder) corruptFinalize(i int, ev *events.FinalizeEvent) {
	ev.PermutationOutput = randomState(b.corruptionSource(0, i))
	if !ev.DidPermute {
		return
	}
	ev.State = ev.PermutationOutput
	prev, ts := ev.OutputRecords[0].PreviousTimestamp, ev.OutputRecords[0].Timestamp
	ev.OutputRecords = events.Synthesize(ev.State[:len(ev.OutputRecords)], prev, ts)
}

func (b *Builder) corruptCompress(i int, ev *events.CompressEvent) {
	ev.Result = randomState(b.corruptionSource(1, i))
	prev, ts := ev.ResultRecords[0].PreviousTimestamp, ev.ResultRecords[0].Timestamp
	ev.ResultRecords = events.SynthesizeState(ev.Result, prev, ts)
}

func (b *Builder) logSummary(rec *ExecutionRecord, start time.Time, workers int) {
	s := rec.Stats()
	b.log.WithFields(logrus.Fields{
		"hash_events":     s.HashEvents,
		"compress_events": s.CompressEvents,
		"permutations":    s.Permutations,
		"workers":         workers,
		"corrupt":         b.corrupt,
		"elapsed":         time.Since(start),
	}).Info("execution record built")
}
