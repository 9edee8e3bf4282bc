package vybiump2record

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/record"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/utils"
)

// Recorder builds execution records against one Poseidon2 instance. It is
// safe for concurrent use.
type Recorder struct {
	config *Config
	log    logrus.FieldLogger
	perm   *core.CountingPermuter
	engine *events.Engine
}

// New creates a recorder. A nil logger discards output.
func New(config *Config, log logrus.FieldLogger) (*Recorder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = utils.NewNopLogger()
	}

	var inner core.Permuter
	if config.FullRounds == core.DefaultFullRounds && config.PartialRounds == core.DefaultPartialRounds {
		inner = core.DefaultPoseidon2()
	} else {
		p, err := core.NewPoseidon2(config.FullRounds, config.PartialRounds)
		if err != nil {
			return nil, err
		}
		inner = p
	}

	perm := core.NewCountingPermuter(inner)
	engine, err := events.NewEngine(perm, config.DigestSize)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"digest_size":    config.DigestSize,
		"full_rounds":    config.FullRounds,
		"partial_rounds": config.PartialRounds,
		"workers":        config.Workers,
	}).Debug("recorder ready")

	return &Recorder{
		config: config.Clone(),
		log:    log,
		perm:   perm,
		engine: engine,
	}, nil
}

// Config returns a copy of the recorder configuration
func (r *Recorder) Config() *Config {
	return r.config.Clone()
}

// Permuter returns the permutation events are built against
func (r *Recorder) Permuter() Permuter {
	return r.perm
}

// Permutations returns how many permutations the recorder has run
func (r *Recorder) Permutations() uint64 {
	return r.perm.Calls()
}

// NewSession opens a multi-absorb hash session
func (r *Recorder) NewSession(hashID uint32, baseTimestamp, address Element) (*Session, error) {
	return record.NewSession(r.engine, hashID, baseTimestamp, address)
}

// Hash absorbs input into a fresh sponge and returns the digest
func (r *Recorder) Hash(input []Element) ([]Element, error) {
	sess, err := r.NewSession(0, Element{}, Element{})
	if err != nil {
		return nil, err
	}
	if _, err := sess.Absorb(input); err != nil {
		return nil, err
	}
	final, err := sess.Finalize()
	if err != nil {
		return nil, err
	}
	return final.Digest(), nil
}

// Compress records the compression of left and right into dst. The operands
// are read at (baseTimestamp, baseTimestamp+1) and the result at
// (baseTimestamp+1, baseTimestamp+2).
func (r *Recorder) Compress(left, right Half, baseTimestamp, dst Element) (CompressEvent, error) {
	base := uint64(core.Canonical(baseTimestamp))
	if base+2 >= core.Modulus {
		return CompressEvent{}, core.Errorf(core.ErrInvalidState, "base timestamp %d leaves no room for the result read", base)
	}
	return r.engine.Compress(events.CompressRequest{
		Input:              core.Concat(left, right),
		DestinationAddress: dst,
		PreviousTimestamp:  baseTimestamp,
		Timestamp:          core.Offset(baseTimestamp, 1),
		OutputTimestamp:    core.Offset(baseTimestamp, 2),
	}), nil
}

// Build constructs a record sequentially
func (r *Recorder) Build(in Inputs, opts ...BuildOption) (*ExecutionRecord, error) {
	b, err := r.builder(opts)
	if err != nil {
		return nil, err
	}
	return b.Build(in)
}

// BuildParallel constructs the same record as Build using the configured
// number of workers
func (r *Recorder) BuildParallel(ctx context.Context, in Inputs, opts ...BuildOption) (*ExecutionRecord, error) {
	b, err := r.builder(opts)
	if err != nil {
		return nil, err
	}
	return b.BuildParallel(ctx, in)
}

// Verify validates rec and re-runs its permutations
func (r *Recorder) Verify(rec *ExecutionRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("record validation failed: %w", err)
	}
	// verification permutations are not counted
	if err := rec.Verify(r.perm.Inner()); err != nil {
		return fmt.Errorf("record verification failed: %w", err)
	}
	return nil
}

func (r *Recorder) builder(opts []BuildOption) (*record.Builder, error) {
	all := append([]BuildOption{record.WithWorkers(r.config.Workers)}, opts...)
	return record.NewBuilder(r.engine, r.log, all...)
}
