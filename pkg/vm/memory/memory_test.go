package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOnceRejectsInconsistentRewrite(t *testing.T) {
	m := NewMemory()
	m.AllocateSegment()

	addr := Relocatable{SegmentIndex: 0, Offset: 0}
	require.NoError(t, m.Set(addr, NewMaybeRelocatableFelt(FeltOne())))

	err := m.Set(addr, NewMaybeRelocatableFelt(FeltFromUint64(2)))
	require.Error(t, err)
	var memErr *Error
	require.ErrorAs(t, err, &memErr)
	assert.Equal(t, InconsistentMemory, memErr.Kind)
}

func TestWriteOnceAllowsIdempotentRewrite(t *testing.T) {
	m := NewMemory()
	m.AllocateSegment()

	addr := Relocatable{SegmentIndex: 0, Offset: 0}
	require.NoError(t, m.Set(addr, NewMaybeRelocatableFelt(FeltOne())))
	require.NoError(t, m.Set(addr, NewMaybeRelocatableFelt(FeltOne())))

	v, ok := m.Get(addr)
	require.True(t, ok)
	f, ok := v.GetFelt()
	require.True(t, ok)
	assert.True(t, f.Equal(FeltOne()))
}

func TestAccessedBitIsMonotone(t *testing.T) {
	m := NewMemory()
	m.AllocateSegment()
	addr := Relocatable{SegmentIndex: 0, Offset: 0}
	require.NoError(t, m.Set(addr, NewMaybeRelocatableFelt(FeltZero())))

	m.MarkAccessed(addr)
	count, err := m.AccessedCount(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// marking again must not clear it
	m.MarkAccessed(addr)
	count, err = m.AccessedCount(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestValidationRuleRunsOnWrite(t *testing.T) {
	m := NewMemory()
	m.AllocateSegment()

	var validated []Relocatable
	m.AddValidationRule(0, func(mem *Memory, addr Relocatable) ([]Relocatable, error) {
		v, _ := mem.Get(addr)
		f, _ := v.GetFelt()
		if f.BitLength() > 128 {
			return nil, newErr(ValueTooLarge, "value too large")
		}
		validated = append(validated, addr)
		return []Relocatable{addr}, nil
	})

	addr := Relocatable{SegmentIndex: 0, Offset: 0}
	require.NoError(t, m.Set(addr, NewMaybeRelocatableFelt(FeltFromUint64(5))))
	assert.Len(t, validated, 1)
}

func TestRelocationRuleRejectsNonTemporaryOrNonZeroOffset(t *testing.T) {
	m := NewMemory()
	m.AllocateSegment()
	m.AllocateTempSegment()

	err := m.AddRelocationRule(Relocatable{SegmentIndex: 0, Offset: 0}, Relocatable{SegmentIndex: 0, Offset: 0})
	require.Error(t, err)

	err = m.AddRelocationRule(Relocatable{SegmentIndex: -1, Offset: 1}, Relocatable{SegmentIndex: 0, Offset: 0})
	require.Error(t, err)

	require.NoError(t, m.AddRelocationRule(Relocatable{SegmentIndex: -1, Offset: 0}, Relocatable{SegmentIndex: 0, Offset: 10}))
	err = m.AddRelocationRule(Relocatable{SegmentIndex: -1, Offset: 0}, Relocatable{SegmentIndex: 0, Offset: 20})
	require.Error(t, err)
}

func TestRelocatableArithmeticRoundTrips(t *testing.T) {
	r := Relocatable{SegmentIndex: 2, Offset: 5}
	moved, err := r.AddUint(7)
	require.NoError(t, err)
	diff, err := moved.SubRelocatable(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), diff)

	other := Relocatable{SegmentIndex: 3, Offset: 5}
	_, err = r.SubRelocatable(other)
	require.Error(t, err)
}

func TestGetRangeFailsOnGap(t *testing.T) {
	m := NewMemory()
	m.AllocateSegment()
	require.NoError(t, m.Set(Relocatable{SegmentIndex: 0, Offset: 0}, NewMaybeRelocatableFelt(FeltOne())))
	_, err := m.GetRange(Relocatable{SegmentIndex: 0, Offset: 0}, 2)
	require.Error(t, err)
}

func TestMemoryHolesConservation(t *testing.T) {
	sm := NewMemorySegmentManager()
	sm.AddSegment()
	require.NoError(t, sm.Memory.Set(Relocatable{SegmentIndex: 0, Offset: 0}, NewMaybeRelocatableFelt(FeltOne())))
	require.NoError(t, sm.Memory.Set(Relocatable{SegmentIndex: 0, Offset: 2}, NewMaybeRelocatableFelt(FeltOne())))
	sm.Memory.MarkAccessed(Relocatable{SegmentIndex: 0, Offset: 0})

	require.NoError(t, sm.ComputeEffectiveSizes(false))
	holes, err := sm.MemoryHoles(nil)
	require.NoError(t, err)
	// size 3 (offsets 0,1,2), accessed 1 => 2 holes (offset 1 unset, offset 2 set-but-unaccessed)
	assert.Equal(t, uint64(2), holes)
}
