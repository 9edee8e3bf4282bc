package vybiump2record

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		r, err := New(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, DigestSize, r.Config().DigestSize)
		assert.Equal(t, Width, r.Permuter().Width())
	})

	t.Run("custom rounds", func(t *testing.T) {
		r, err := New(DefaultConfig().WithRounds(8, 21), nil)
		require.NoError(t, err)

		var s State
		def, err := New(nil, nil)
		require.NoError(t, err)
		assert.NotEqual(t, def.Permuter().Permute(s), r.Permuter().Permute(s))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(DefaultConfig().WithDigestSize(Width+1), nil)
		assert.True(t, errors.Is(err, ErrConfig))
	})
}

func TestHashAndCompress(t *testing.T) {
	r, err := New(nil, nil)
	require.NoError(t, err)

	input := make([]Element, 17)
	for i := range input {
		input[i] = NewElement(uint64(i))
	}

	digest, err := r.Hash(input)
	require.NoError(t, err)
	assert.Len(t, digest, DigestSize)
	assert.Equal(t, uint64(2), r.Permutations())

	again, err := r.Hash(input)
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	var left, right Half
	left[0], right[0] = NewElement(1), NewElement(2)
	ev, err := r.Compress(left, right, NewElement(4), NewElement(20))
	require.NoError(t, err)
	assert.Equal(t, r.Permuter().Permute(ev.Input), ev.Result)
	assert.Equal(t, left[0], ev.Input[0])
	assert.Equal(t, right[0], ev.Input[HalfWidth])
	assert.Equal(t, NewElement(28), ev.LeftAddress)
	assert.Equal(t, NewElement(36), ev.RightAddress)
	assert.Equal(t, NewElement(5), ev.Timestamp)
	assert.Equal(t, NewElement(4), ev.InputRecords[0].PreviousTimestamp)
	assert.Equal(t, NewElement(6), ev.ResultRecords[0].Timestamp)
	assert.Equal(t, ev.Result[0], ev.ResultRecords[0].Value)

	swapped, err := r.Compress(right, left, NewElement(4), NewElement(20))
	require.NoError(t, err)
	assert.NotEqual(t, ev.Result, swapped.Result)

	rec := NewExecutionRecord()
	require.NoError(t, rec.AppendCompress(ev, swapped))
	require.NoError(t, r.Verify(rec))

	_, err = r.Compress(left, right, NewElement(Modulus-2), NewElement(20))
	assert.True(t, errors.Is(err, ErrState))
}

func TestRecorderBuild(t *testing.T) {
	r, err := New(DefaultConfig().WithWorkers(3), nil)
	require.NoError(t, err)

	in := RandomInputs(21, 40, 40)
	seq, err := r.Build(in)
	require.NoError(t, err)
	par, err := r.BuildParallel(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, seq.Fingerprint(), par.Fingerprint())
	assert.NoError(t, r.Verify(par))

	bad, err := r.Build(in, WithCorruption(5))
	require.NoError(t, err)
	assert.True(t, errors.Is(r.Verify(bad), ErrInconsistent))
}

func TestRecorderSession(t *testing.T) {
	r, err := New(nil, nil)
	require.NoError(t, err)

	sess, err := r.NewSession(3, NewElement(0), NewElement(10))
	require.NoError(t, err)
	_, err = sess.Absorb([]Element{NewElement(1), NewElement(2)})
	require.NoError(t, err)
	final, err := sess.Finalize()
	require.NoError(t, err)

	direct, err := r.Hash([]Element{NewElement(1), NewElement(2)})
	require.NoError(t, err)
	assert.Equal(t, direct, final.Digest(), "digest does not depend on ids or clocks")

	_, err = sess.Finalize()
	assert.True(t, errors.Is(err, ErrFinalized))

	_, err = r.NewSession(MaxHashID, NewElement(0), NewElement(0))
	assert.True(t, errors.Is(err, ErrIDOverflow))
}

func TestFixtureRoundTrip(t *testing.T) {
	r, err := New(nil, nil)
	require.NoError(t, err)

	rec, err := r.Build(RandomInputs(2, 4, 4))
	require.NoError(t, err)
	rec.Freeze()

	f, err := NewRecordFixture(rec, false)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, f.Save(path))

	_, loaded, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Fingerprint(), loaded.Fingerprint())
	assert.NoError(t, r.Verify(loaded))
}

func TestPackedIdentifier(t *testing.T) {
	packed, err := PackHashAndAbsorbID(MaxHashID-1, MaxAbsorbID-1)
	require.NoError(t, err)
	h, a := UnpackHashAndAbsorbID(packed)
	assert.Equal(t, uint32(MaxHashID-1), h)
	assert.Equal(t, uint32(MaxAbsorbID-1), a)

	_, err = PackHashAndAbsorbID(0, MaxAbsorbID)
	assert.True(t, errors.Is(err, ErrIDOverflow))

	records := Synthesize([]Element{NewElement(4)}, NewElement(1), NewElement(2))
	require.Len(t, records, 1)
	assert.Equal(t, NewElement(4), records[0].Value)
}
