package record

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/events"
	"github.com/vybium/vybium-p2record/internal/vybium-p2record/utils"
)

func newTestEngine(t *testing.T) (*events.Engine, *core.CountingPermuter) {
	t.Helper()
	perm := core.NewCountingPermuter(core.DefaultPoseidon2())
	engine, err := events.NewEngine(perm, core.DigestSize)
	require.NoError(t, err)
	return engine, perm
}

func newTestBuilder(t *testing.T, opts ...Option) (*Builder, *core.CountingPermuter) {
	t.Helper()
	engine, perm := newTestEngine(t)
	b, err := NewBuilder(engine, utils.NewNopLogger(), opts...)
	require.NoError(t, err)
	return b, perm
}

func sequence(start, n int) []core.Element {
	out := make([]core.Element, n)
	for i := range out {
		out[i] = core.FromInt(start + i)
	}
	return out
}

func testState(seed int) core.State {
	var s core.State
	for i := range s {
		s[i] = core.FromInt(seed*31 + i)
	}
	return s
}

func TestAppendAndFreeze(t *testing.T) {
	engine, _ := newTestEngine(t)
	rec := New()

	require.NoError(t, rec.AppendCompress(engine.Compress(events.CompressRequest{Input: testState(1)})))
	require.NoError(t, rec.AppendHash(events.NewFinalizeHashEvent(events.FinalizeEvent{})))
	assert.False(t, rec.Frozen())

	rec.Freeze()
	assert.True(t, rec.Frozen())

	err := rec.AppendHash(events.NewFinalizeHashEvent(events.FinalizeEvent{}))
	assert.True(t, errors.Is(err, core.ErrFrozen))
	err = rec.AppendCompress(events.CompressEvent{})
	assert.True(t, errors.Is(err, core.ErrFrozen))
	err = rec.Merge(New())
	assert.True(t, errors.Is(err, core.ErrFrozen))

	assert.Len(t, rec.HashEvents, 1)
	assert.Len(t, rec.CompressEvents, 1)
}

func TestConcurrentAppends(t *testing.T) {
	rec := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, rec.AppendCompress(events.CompressEvent{}))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, rec.Stats().CompressEvents)
}

func TestMergePreservesOrder(t *testing.T) {
	b, _ := newTestBuilder(t)

	first, err := b.Build(Inputs{Hash: [][]core.Element{sequence(0, 3)}})
	require.NoError(t, err)
	second, err := b.Build(Inputs{Compress: []core.State{testState(2)}})
	require.NoError(t, err)

	require.NoError(t, first.Merge(second))
	require.NoError(t, first.Merge(nil))
	assert.Len(t, first.HashEvents, 2)
	require.Len(t, first.CompressEvents, 1)
	assert.Equal(t, second.CompressEvents[0], first.CompressEvents[0])
}

func TestSessionClockAndAddresses(t *testing.T) {
	engine, _ := newTestEngine(t)
	base, addr := core.FromInt(10), core.FromInt(100)

	sess, err := NewSession(engine, 5, base, addr)
	require.NoError(t, err)

	first, err := sess.Absorb(sequence(0, 10))
	require.NoError(t, err)
	assert.Equal(t, core.FromInt(11), first.Timestamp)
	assert.Equal(t, addr, first.InputAddress)
	assert.Equal(t, core.FromInt(10), first.Iterations[0].InputRecords[0].PreviousTimestamp)

	second, err := sess.Absorb(sequence(10, 10))
	require.NoError(t, err)
	assert.Equal(t, core.FromInt(12), second.Timestamp)
	assert.Equal(t, core.FromInt(110), second.InputAddress)
	assert.Equal(t, core.FromInt(1), second.AbsorbID)
	assert.Equal(t, 4, sess.Cursor())

	fin, err := sess.Finalize()
	require.NoError(t, err)
	assert.Equal(t, core.FromInt(13), fin.Timestamp)
	assert.Equal(t, addr, fin.OutputAddress)
	assert.True(t, fin.DidPermute)
	assert.Equal(t, core.FromInt(12), fin.OutputRecords[0].PreviousTimestamp)
	assert.True(t, sess.Finalized())
	assert.Equal(t, core.FromInt(13), sess.Clock())

	_, err = sess.Absorb(sequence(0, 1))
	assert.True(t, errors.Is(err, core.ErrFinalized))
	_, err = sess.Finalize()
	assert.True(t, errors.Is(err, core.ErrFinalized))

	evs := sess.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, events.KindAbsorb, evs[0].Kind)
	assert.Equal(t, events.KindFinalize, evs[2].Kind)

	rec := New()
	require.NoError(t, rec.AppendHash(evs...))
	assert.NoError(t, rec.Validate())
}

func TestNewSessionRejects(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := NewSession(nil, 0, core.FromInt(0), core.FromInt(0))
	assert.True(t, errors.Is(err, core.ErrConfig))

	_, err = NewSession(engine, core.MaxHashID, core.FromInt(0), core.FromInt(0))
	assert.True(t, errors.Is(err, core.ErrIDOverflow))
}

func TestNewSessionClockBounds(t *testing.T) {
	engine, _ := newTestEngine(t)

	tests := []struct {
		name string
		base uint64
		ok   bool
	}{
		{"zero", 0, true},
		{"last usable", core.Modulus - MaxSessionCalls - 1, true},
		{"first unusable", core.Modulus - MaxSessionCalls, false},
		{"modulus minus one", core.Modulus - 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := NewSession(engine, 0, core.NewElement(tt.base), core.FromInt(1))
			if !tt.ok {
				assert.True(t, errors.Is(err, core.ErrState))
				return
			}
			require.NoError(t, err)

			_, err = sess.Absorb([]core.Element{core.FromInt(5)})
			require.NoError(t, err)
			_, err = sess.Finalize()
			require.NoError(t, err)

			rec := New()
			require.NoError(t, rec.AppendHash(sess.Events()...))
			require.NoError(t, rec.Validate())
		})
	}
}

func TestSessionAbsorbIDOverflow(t *testing.T) {
	engine, _ := newTestEngine(t)
	sess, err := NewSession(engine, 1, core.FromInt(0), core.FromInt(0))
	require.NoError(t, err)

	for i := 0; i < core.MaxAbsorbID; i++ {
		_, err := sess.Absorb(nil)
		require.NoError(t, err)
	}
	_, err = sess.Absorb(nil)
	assert.True(t, errors.Is(err, core.ErrIDOverflow))
}

func TestBuilderReferenceScheme(t *testing.T) {
	b, perm := newTestBuilder(t)

	in := Inputs{
		Hash:     [][]core.Element{sequence(1, 17), sequence(50, core.Width)},
		Compress: []core.State{testState(3)},
	}
	rec, err := b.Build(in)
	require.NoError(t, err)
	require.Len(t, rec.HashEvents, 4)
	require.Len(t, rec.CompressEvents, 1)

	for i := 0; i < 2; i++ {
		absorb := rec.HashEvents[2*i].Absorb
		fin := rec.HashEvents[2*i+1].Finalize
		require.NotNil(t, absorb)
		require.NotNil(t, fin)

		assert.Equal(t, core.FromInt(i+1), absorb.Timestamp)
		assert.Equal(t, core.FromInt(i+1), absorb.InputAddress)
		assert.Equal(t, core.FromInt(i), absorb.HashID)
		assert.True(t, absorb.AbsorbID.IsZero())
		assert.Equal(t, core.FromInt(i), absorb.Iterations[0].InputRecords[0].PreviousTimestamp)

		assert.Equal(t, core.FromInt(i+2), fin.Timestamp)
		assert.Equal(t, core.FromInt(i+1), fin.OutputAddress)
		assert.Equal(t, core.FromInt(i+1), fin.OutputRecords[0].PreviousTimestamp)
		assert.Equal(t, core.FromInt(i+2), fin.OutputRecords[0].Timestamp)
	}

	// 17 elements permute at the boundary and again on finalize; a full
	// block permutes once and squeezes without another
	assert.True(t, rec.HashEvents[1].Finalize.DidPermute)
	assert.False(t, rec.HashEvents[3].Finalize.DidPermute)

	c := rec.CompressEvents[0]
	assert.Equal(t, core.FromInt(1), c.Timestamp)
	assert.Equal(t, core.FromInt(1), c.DestinationAddress)
	assert.Equal(t, core.FromInt(9), c.LeftAddress)
	assert.Equal(t, core.FromInt(17), c.RightAddress)
	assert.Equal(t, core.FromInt(0), c.InputRecords[0].PreviousTimestamp)
	assert.Equal(t, core.FromInt(2), c.ResultRecords[0].Timestamp)

	stats := rec.Stats()
	assert.Equal(t, 2, stats.AbsorbEvents)
	assert.Equal(t, 2, stats.FinalizeEvents)
	assert.Equal(t, 1, stats.CompressEvents)
	assert.Equal(t, 4, stats.Permutations)
	assert.Equal(t, uint64(stats.Permutations), perm.Calls())

	require.NoError(t, rec.Validate())
	require.NoError(t, rec.Verify(core.DefaultPoseidon2()))

	block, err := core.StateFromSlice(in.Hash[1])
	require.NoError(t, err)
	direct := core.DefaultPoseidon2().Permute(block)
	assert.Equal(t, direct[:core.DigestSize], rec.Digests()[1])
}

func TestBuildParallelMatchesSequential(t *testing.T) {
	in := RandomInputs(42, 64, 64)

	seq, _ := newTestBuilder(t)
	want, err := seq.Build(in)
	require.NoError(t, err)

	par, _ := newTestBuilder(t, WithWorkers(4))
	got, err := par.BuildParallel(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, want.HashEvents, got.HashEvents)
	assert.Equal(t, want.CompressEvents, got.CompressEvents)
	assert.Equal(t, want.Fingerprint(), got.Fingerprint())
	assert.NoError(t, got.Validate())
}

func TestBuildParallelCancelled(t *testing.T) {
	b, _ := newTestBuilder(t, WithWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.BuildParallel(ctx, RandomInputs(1, 8, 8))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewBuilderRejects(t *testing.T) {
	_, err := NewBuilder(nil, nil)
	assert.True(t, errors.Is(err, core.ErrConfig))

	engine, _ := newTestEngine(t)
	_, err = NewBuilder(engine, nil, WithWorkers(0))
	assert.True(t, errors.Is(err, core.ErrConfig))
}

func TestCorruptionPassesValidateFailsVerify(t *testing.T) {
	in := RandomInputs(7, 16, 16)

	b, _ := newTestBuilder(t, WithCorruption(99))
	rec, err := b.Build(in)
	require.NoError(t, err)

	assert.NoError(t, rec.Validate())
	err = rec.Verify(core.DefaultPoseidon2())
	assert.True(t, errors.Is(err, core.ErrInconsistent))

	par, _ := newTestBuilder(t, WithCorruption(99), WithWorkers(3))
	again, err := par.BuildParallel(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, rec.Fingerprint(), again.Fingerprint())

	clean, _ := newTestBuilder(t)
	good, err := clean.Build(in)
	require.NoError(t, err)
	assert.NotEqual(t, good.Fingerprint(), rec.Fingerprint())
}

func TestValidateDetectsTampering(t *testing.T) {
	b, _ := newTestBuilder(t)

	tests := []struct {
		name   string
		tamper func(rec *ExecutionRecord)
	}{
		{"finalize flag", func(rec *ExecutionRecord) {
			rec.HashEvents[1].Finalize.DidPermute = !rec.HashEvents[1].Finalize.DidPermute
		}},
		{"iteration cursor", func(rec *ExecutionRecord) {
			rec.HashEvents[0].Absorb.Iterations[1].StateCursor = 3
		}},
		{"input length", func(rec *ExecutionRecord) {
			rec.HashEvents[0].Absorb.InputLength = core.FromInt(3)
		}},
		{"timestamp order", func(rec *ExecutionRecord) {
			rec.HashEvents[1].Finalize.OutputRecords[0].PreviousTimestamp = core.FromInt(50)
		}},
		{"finalize twice", func(rec *ExecutionRecord) {
			rec.HashEvents = append(rec.HashEvents, rec.HashEvents[1])
		}},
		{"absorb after finalize", func(rec *ExecutionRecord) {
			rec.HashEvents = append(rec.HashEvents, rec.HashEvents[0])
		}},
		{"compress address", func(rec *ExecutionRecord) {
			rec.CompressEvents[0].RightAddress = rec.CompressEvents[0].LeftAddress
		}},
		{"compress record value", func(rec *ExecutionRecord) {
			rec.CompressEvents[0].ResultRecords[4].Value = core.FromInt(1)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := b.Build(Inputs{
				Hash:     [][]core.Element{sequence(1, 20)},
				Compress: []core.State{testState(4)},
			})
			require.NoError(t, err)
			require.NoError(t, rec.Validate())

			tt.tamper(rec)
			assert.True(t, errors.Is(rec.Validate(), core.ErrInconsistent))
		})
	}
}

func TestLayout(t *testing.T) {
	b, _ := newTestBuilder(t)

	rec, err := b.Build(Inputs{
		Hash:     [][]core.Element{sequence(0, 17)},
		Compress: []core.State{testState(5)},
	})
	require.NoError(t, err)

	l := rec.Layout()
	assert.Equal(t, 2, l.AbsorbRows)
	assert.Equal(t, 1, l.FinalizeRows)
	assert.Equal(t, 2, l.CompressRows)
	assert.Equal(t, 5, l.Height)
	assert.Equal(t, 8, l.PaddedHeight)
	assert.Equal(t, 3, l.LogPaddedHeight)
	assert.Equal(t, 3, l.PaddingRows())

	empty := New().Layout()
	assert.Equal(t, 0, empty.Height)
	assert.Equal(t, 1, empty.PaddedHeight)
	assert.Equal(t, 0, empty.LogPaddedHeight)
}

func TestRandomInputs(t *testing.T) {
	a := RandomInputs(3, 100, 10)
	b := RandomInputs(3, 100, 10)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, RandomInputs(4, 100, 10))

	require.Len(t, a.Hash, 100)
	require.Len(t, a.Compress, 10)
	for _, input := range a.Hash {
		assert.GreaterOrEqual(t, len(input), 1)
		assert.LessOrEqual(t, len(input), MaxRandomInputLength)
	}
}

func TestFingerprintIsOrderSensitive(t *testing.T) {
	b, _ := newTestBuilder(t)

	rec, err := b.Build(Inputs{Compress: []core.State{testState(1), testState(2)}})
	require.NoError(t, err)
	swapped := New()
	require.NoError(t, swapped.AppendCompress(rec.CompressEvents[1], rec.CompressEvents[0]))

	assert.NotEqual(t, rec.Fingerprint(), swapped.Fingerprint())
	assert.Len(t, FingerprintBytes(rec.Fingerprint()), len(rec.Fingerprint())*8)
}
