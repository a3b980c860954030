package memory

import (
	"fmt"

	"github.com/NethermindEth/cairo-vm-go/pkg/safemath"
)

// Relocatable is a two dimensional address (segment_index, offset). A
// negative segment index refers to a temporary segment; those only
// ever exist until relocation resolves them to a real segment (§4.1,
// §4.9). Implementers must not fold this pair into a flat integer
// before relocation time (spec §9, Design Notes).
type Relocatable struct {
	SegmentIndex int64
	Offset       uint64
}

func (r Relocatable) IsTemporary() bool {
	return r.SegmentIndex < 0
}

func (r Relocatable) Equal(o Relocatable) bool {
	return r.SegmentIndex == o.SegmentIndex && r.Offset == o.Offset
}

func (r Relocatable) String() string {
	if r.IsTemporary() {
		return fmt.Sprintf("(-%d:%d)", -r.SegmentIndex, r.Offset)
	}
	return fmt.Sprintf("(%d:%d)", r.SegmentIndex, r.Offset)
}

// AddOffset adds a signed 16 bit offset (an instruction immediate) to r,
// failing on overflow/underflow instead of wrapping.
func (r Relocatable) AddOffset(offset int16) (Relocatable, error) {
	newOffset, overflow := safemath.SafeOffset(r.Offset, offset)
	if overflow {
		return Relocatable{}, newErr(Overflow, "offset overflow: %d + %d", r.Offset, offset)
	}
	return Relocatable{SegmentIndex: r.SegmentIndex, Offset: newOffset}, nil
}

// AddUint adds an unsigned integer to r's offset.
func (r Relocatable) AddUint(n uint64) (Relocatable, error) {
	newOffset, overflow := safemath.SafeAdd(r.Offset, n)
	if overflow {
		return Relocatable{}, newErr(Overflow, "offset overflow: %d + %d", r.Offset, n)
	}
	return Relocatable{SegmentIndex: r.SegmentIndex, Offset: newOffset}, nil
}

// AddFelt adds a field element to r's offset (mod P, then must fit in a
// u64) as described for MaybeRelocatable arithmetic in spec §3.
func (r Relocatable) AddFelt(f Felt) (Relocatable, error) {
	u, err := FeltFromUint64(r.Offset).Add(f).ToU64()
	if err != nil {
		return Relocatable{}, newErr(RelocatableAdd, "relocatable + felt overflow: %s", err)
	}
	return Relocatable{SegmentIndex: r.SegmentIndex, Offset: u}, nil
}

// SubRelocatable returns r - o as an integer offset difference. Both
// must live in the same segment, otherwise this fails (spec §3, §8
// property 4).
func (r Relocatable) SubRelocatable(o Relocatable) (uint64, error) {
	if r.SegmentIndex != o.SegmentIndex {
		return 0, newErr(RelocatableAdd, "cannot subtract relocatables from different segments: %s - %s", r, o)
	}
	diff, underflow := safemath.SafeSub(r.Offset, o.Offset)
	if underflow {
		return 0, newErr(Overflow, "relocatable subtraction underflow: %s - %s", r, o)
	}
	return diff, nil
}

// Cmp provides a total order for relocatables within the same segment;
// it panics if asked to compare across segments, mirroring the spec's
// "ordering within one segment" restriction (§3).
func (r Relocatable) Cmp(o Relocatable) int {
	if r.SegmentIndex != o.SegmentIndex {
		panic(fmt.Sprintf("cannot order relocatables from different segments: %s, %s", r, o))
	}
	switch {
	case r.Offset < o.Offset:
		return -1
	case r.Offset > o.Offset:
		return 1
	default:
		return 0
	}
}

// kind tags a MaybeRelocatable's contents.
type kind uint8

const (
	kindUnknown kind = iota
	kindFelt
	kindRelocatable
)

// MaybeRelocatable is a tagged union of Felt or Relocatable (spec §3).
// The zero value represents "unknown" (no write has happened yet),
// mirroring how the operand engine treats not-yet-computed cells.
type MaybeRelocatable struct {
	tag         kind
	felt        Felt
	relocatable Relocatable
}

func EmptyMaybeRelocatable() MaybeRelocatable {
	return MaybeRelocatable{}
}

func NewMaybeRelocatableFelt(f Felt) MaybeRelocatable {
	return MaybeRelocatable{tag: kindFelt, felt: f}
}

func NewMaybeRelocatableRelocatable(r Relocatable) MaybeRelocatable {
	return MaybeRelocatable{tag: kindRelocatable, relocatable: r}
}

// Known reports whether this value has actually been set.
func (m MaybeRelocatable) Known() bool {
	return m.tag != kindUnknown
}

func (m MaybeRelocatable) IsFelt() bool {
	return m.tag == kindFelt
}

func (m MaybeRelocatable) IsRelocatable() bool {
	return m.tag == kindRelocatable
}

// GetFelt returns the felt value and true, or the zero felt and false
// if m does not hold a felt.
func (m MaybeRelocatable) GetFelt() (Felt, bool) {
	if m.tag != kindFelt {
		return Felt{}, false
	}
	return m.felt, true
}

// GetRelocatable returns the relocatable value and true, or the zero
// relocatable and false if m does not hold one.
func (m MaybeRelocatable) GetRelocatable() (Relocatable, bool) {
	if m.tag != kindRelocatable {
		return Relocatable{}, false
	}
	return m.relocatable, true
}

func (m MaybeRelocatable) Equal(o MaybeRelocatable) bool {
	if m.tag != o.tag {
		return false
	}
	switch m.tag {
	case kindFelt:
		return m.felt.Equal(o.felt)
	case kindRelocatable:
		return m.relocatable.Equal(o.relocatable)
	default:
		return true
	}
}

// IsZero reports whether m is the felt zero, or a relocatable whose
// offset and segment index are both zero (used by the Jnz rule, §4.6).
func (m MaybeRelocatable) IsZero() bool {
	switch m.tag {
	case kindFelt:
		return m.felt.IsZero()
	case kindRelocatable:
		return m.relocatable.SegmentIndex == 0 && m.relocatable.Offset == 0
	default:
		return false
	}
}

// Add implements spec §3's arithmetic table: felt+felt, felt+relocatable
// and relocatable+felt are allowed; relocatable+relocatable is not.
func (m MaybeRelocatable) Add(o MaybeRelocatable) (MaybeRelocatable, error) {
	switch {
	case m.tag == kindFelt && o.tag == kindFelt:
		return NewMaybeRelocatableFelt(m.felt.Add(o.felt)), nil
	case m.tag == kindRelocatable && o.tag == kindFelt:
		r, err := m.relocatable.AddFelt(o.felt)
		if err != nil {
			return MaybeRelocatable{}, err
		}
		return NewMaybeRelocatableRelocatable(r), nil
	case m.tag == kindFelt && o.tag == kindRelocatable:
		r, err := o.relocatable.AddFelt(m.felt)
		if err != nil {
			return MaybeRelocatable{}, err
		}
		return NewMaybeRelocatableRelocatable(r), nil
	default:
		return MaybeRelocatable{}, newErr(RelocatableAdd, "cannot add two relocatables: %s + %s", m, o)
	}
}

// Sub implements dst - op1 style subtraction used by operand deduction
// (§4.4): felt-felt, relocatable-felt and relocatable-relocatable (same
// segment, yields a felt) are allowed.
func (m MaybeRelocatable) Sub(o MaybeRelocatable) (MaybeRelocatable, error) {
	switch {
	case m.tag == kindFelt && o.tag == kindFelt:
		return NewMaybeRelocatableFelt(m.felt.Sub(o.felt)), nil
	case m.tag == kindRelocatable && o.tag == kindFelt:
		r, err := m.relocatable.AddFelt(FeltZero().Sub(o.felt))
		if err != nil {
			return MaybeRelocatable{}, err
		}
		return NewMaybeRelocatableRelocatable(r), nil
	case m.tag == kindRelocatable && o.tag == kindRelocatable:
		diff, err := m.relocatable.SubRelocatable(o.relocatable)
		if err != nil {
			return MaybeRelocatable{}, err
		}
		return NewMaybeRelocatableFelt(FeltFromUint64(diff)), nil
	default:
		return MaybeRelocatable{}, newErr(RelocatableAdd, "cannot subtract a relocatable from a felt: %s - %s", m, o)
	}
}

// Mul implements spec §3: multiplying any relocatable is forbidden.
func (m MaybeRelocatable) Mul(o MaybeRelocatable) (MaybeRelocatable, error) {
	if m.tag != kindFelt || o.tag != kindFelt {
		return MaybeRelocatable{}, newErr(RelocatableMul, "cannot multiply a relocatable: %s * %s", m, o)
	}
	return NewMaybeRelocatableFelt(m.felt.Mul(o.felt)), nil
}

func (m MaybeRelocatable) String() string {
	switch m.tag {
	case kindFelt:
		return m.felt.String()
	case kindRelocatable:
		return m.relocatable.String()
	default:
		return "<unknown>"
	}
}

// Relocate applies relocation rules (temp segment -> real destination)
// to m if it holds a relocatable in a temporary segment; otherwise m is
// returned unchanged (spec §4.1).
func (m MaybeRelocatable) Relocate(rules map[int64]Relocatable) (MaybeRelocatable, error) {
	if m.tag != kindRelocatable || !m.relocatable.IsTemporary() {
		return m, nil
	}
	dst, ok := rules[m.relocatable.SegmentIndex]
	if !ok {
		return m, nil
	}
	relocated, err := dst.AddUint(m.relocatable.Offset)
	if err != nil {
		return MaybeRelocatable{}, err
	}
	return NewMaybeRelocatableRelocatable(relocated), nil
}
