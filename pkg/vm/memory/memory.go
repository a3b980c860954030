package memory

import (
	"github.com/NethermindEth/cairo-vm-go/pkg/safemath"
)

// MemoryCell holds one memory slot: a value plus its accessed bit. Once
// a cell's value is set it is frozen — spec §3, "write-once semantics".
// A cell tracks "known or not" plus the accessed bit used by the
// memory-holes computation (§4.1).
type MemoryCell struct {
	value    MaybeRelocatable
	accessed bool
}

func (c MemoryCell) Value() MaybeRelocatable {
	return c.value
}

func (c MemoryCell) IsAccessed() bool {
	return c.accessed
}

// segment is an ordered, densely indexed array of cells. Gaps (cells
// whose value is still "unknown") are permitted and contribute to
// memory holes (spec §3, §4.1). A segment grows on write; builtin auto
// deduction is the VM's job (§4.8), not the segment's.
type segment struct {
	cells []MemoryCell
}

func newSegment() *segment {
	return &segment{cells: make([]MemoryCell, 0, 32)}
}

func (s *segment) ensure(offset uint64) {
	if uint64(len(s.cells)) <= offset {
		grown := make([]MemoryCell, safemath.Max(offset+1, uint64(len(s.cells))*2))
		copy(grown, s.cells)
		s.cells = grown
	}
}

// usedSize is the highest set offset + 1, or 0 if nothing was ever set.
func (s *segment) usedSize() uint64 {
	for i := len(s.cells) - 1; i >= 0; i-- {
		if s.cells[i].value.Known() {
			return uint64(i + 1)
		}
	}
	return 0
}

func (s *segment) accessedCount() uint64 {
	var n uint64
	for _, c := range s.cells {
		if c.accessed {
			n++
		}
	}
	return n
}

// ValidationRule is run against a segment's cells, either on every
// write to that segment or in bulk via ValidateExistingMemory. It may
// reject a cell (returning an error) or mark addresses as validated.
type ValidationRule func(*Memory, Relocatable) ([]Relocatable, error)

// AddressSet is a set of relocatables, used to track validated
// addresses.
type AddressSet map[Relocatable]bool

func (s AddressSet) Add(addrs ...Relocatable) {
	for _, a := range addrs {
		s[a] = true
	}
}

func (s AddressSet) Contains(a Relocatable) bool {
	return s[a]
}

// Memory is the Cairo VM's segmented, write-once memory (spec §3, §4.1):
// a vector of real segments, a vector of temporary segments, a
// validated-address set, a validation-rule table keyed by segment
// index, and a relocation-rule table mapping temporary segments to
// their real destination.
type Memory struct {
	data               []*segment
	tempData           []*segment
	validationRules    map[int64]ValidationRule
	validatedAddresses AddressSet
	relocationRules    map[int64]Relocatable
}

func NewMemory() *Memory {
	return &Memory{
		validationRules:    make(map[int64]ValidationRule),
		validatedAddresses: make(AddressSet),
		relocationRules:    make(map[int64]Relocatable),
	}
}

// NumSegments returns the number of real segments.
func (m *Memory) NumSegments() int {
	return len(m.data)
}

// NumTempSegments returns the number of temporary segments.
func (m *Memory) NumTempSegments() int {
	return len(m.tempData)
}

// AllocateSegment appends a new, empty real segment and returns its
// index.
func (m *Memory) AllocateSegment() int64 {
	m.data = append(m.data, newSegment())
	return int64(len(m.data) - 1)
}

// AllocateTempSegment appends a new, empty temporary segment and
// returns its (negative) index.
func (m *Memory) AllocateTempSegment() int64 {
	m.tempData = append(m.tempData, newSegment())
	return -int64(len(m.tempData))
}

func (m *Memory) getSegment(idx int64) (*segment, error) {
	if idx >= 0 {
		if idx >= int64(len(m.data)) {
			return nil, newErr(UnknownMemoryCell, "segment %d is not allocated", idx)
		}
		return m.data[idx], nil
	}
	tidx := -idx - 1
	if tidx >= int64(len(m.tempData)) {
		return nil, newErr(AddressNotInTemporarySegment, "temporary segment %d is not allocated", idx)
	}
	return m.tempData[tidx], nil
}

// Set writes value at addr under write-once semantics: it succeeds if
// the cell is empty or already holds an equal value, otherwise it fails
// with InconsistentMemory (spec §4.1).
func (m *Memory) Set(addr Relocatable, value MaybeRelocatable) error {
	seg, err := m.getSegment(addr.SegmentIndex)
	if err != nil {
		return err
	}
	seg.ensure(addr.Offset)
	cell := &seg.cells[addr.Offset]
	if cell.value.Known() {
		if cell.value.Equal(value) {
			return nil
		}
		return newErr(InconsistentMemory, "cell %s already set to %s, cannot rewrite with %s", addr, cell.value, value)
	}
	cell.value = value
	return m.validateAddress(addr)
}

// Get reads the value stored at addr, or (zero, false) if nothing was
// ever written there.
func (m *Memory) Get(addr Relocatable) (MaybeRelocatable, bool) {
	seg, err := m.getSegment(addr.SegmentIndex)
	if err != nil {
		return MaybeRelocatable{}, false
	}
	if addr.Offset >= uint64(len(seg.cells)) {
		return MaybeRelocatable{}, false
	}
	cell := seg.cells[addr.Offset]
	if !cell.value.Known() {
		return MaybeRelocatable{}, false
	}
	return cell.value, true
}

// GetFelt reads a felt at addr, failing with ExpectedInteger if the
// cell holds a relocatable, or UnknownMemoryCell if nothing was set.
func (m *Memory) GetFelt(addr Relocatable) (Felt, error) {
	v, ok := m.Get(addr)
	if !ok {
		return Felt{}, newErr(UnknownMemoryCell, "no value at %s", addr)
	}
	f, ok := v.GetFelt()
	if !ok {
		return Felt{}, newErr(ExpectedInteger, "value at %s is not a felt: %s", addr, v)
	}
	return f, nil
}

// GetRelocatable reads a relocatable at addr, failing with
// ExpectedRelocatable if the cell holds a felt.
func (m *Memory) GetRelocatable(addr Relocatable) (Relocatable, error) {
	v, ok := m.Get(addr)
	if !ok {
		return Relocatable{}, newErr(UnknownMemoryCell, "no value at %s", addr)
	}
	r, ok := v.GetRelocatable()
	if !ok {
		return Relocatable{}, newErr(ExpectedRelocatable, "value at %s is not a relocatable: %s", addr, v)
	}
	return r, nil
}

// GetRange reads n consecutive values starting at addr, failing if any
// cell in the range is unset.
func (m *Memory) GetRange(addr Relocatable, n uint64) ([]MaybeRelocatable, error) {
	out := make([]MaybeRelocatable, n)
	for i := uint64(0); i < n; i++ {
		a, err := addr.AddUint(i)
		if err != nil {
			return nil, err
		}
		v, ok := m.Get(a)
		if !ok {
			return nil, newErr(UnknownMemoryCell, "no value at %s", a)
		}
		out[i] = v
	}
	return out, nil
}

// GetFeltRange reads n consecutive felts starting at addr, failing on
// any missing cell or any cell holding a relocatable.
func (m *Memory) GetFeltRange(addr Relocatable, n uint64) ([]Felt, error) {
	out := make([]Felt, n)
	for i := uint64(0); i < n; i++ {
		a, err := addr.AddUint(i)
		if err != nil {
			return nil, err
		}
		f, err := m.GetFelt(a)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// MarkAccessed sets the accessed bit of the cell at addr. It is a
// no-op if the cell was never set.
func (m *Memory) MarkAccessed(addr Relocatable) {
	seg, err := m.getSegment(addr.SegmentIndex)
	if err != nil || addr.Offset >= uint64(len(seg.cells)) || !seg.cells[addr.Offset].value.Known() {
		return
	}
	seg.cells[addr.Offset].accessed = true
}

// AddValidationRule registers rule for segmentIndex. Subsequent writes
// to that segment, and any call to ValidateExistingMemory, will run it.
func (m *Memory) AddValidationRule(segmentIndex int64, rule ValidationRule) {
	m.validationRules[segmentIndex] = rule
}

func (m *Memory) validateAddress(addr Relocatable) error {
	if addr.IsTemporary() || m.validatedAddresses.Contains(addr) {
		return nil
	}
	rule, ok := m.validationRules[addr.SegmentIndex]
	if !ok {
		return nil
	}
	validated, err := rule(m, addr)
	if err != nil {
		return err
	}
	m.validatedAddresses.Add(validated...)
	return nil
}

// ValidateExistingMemory runs every registered validation rule against
// every currently-set cell in its segment (spec §4.1).
func (m *Memory) ValidateExistingMemory() error {
	for segIdx, seg := range m.data {
		if _, ok := m.validationRules[int64(segIdx)]; !ok {
			continue
		}
		for offset, cell := range seg.cells {
			if !cell.value.Known() {
				continue
			}
			if err := m.validateAddress(Relocatable{SegmentIndex: int64(segIdx), Offset: uint64(offset)}); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddRelocationRule registers a rule mapping the temporary segment src
// to the real destination dst. src must be the base of a temporary
// segment (offset 0); duplicate sources fail (spec §4.1).
func (m *Memory) AddRelocationRule(src, dst Relocatable) error {
	if !src.IsTemporary() {
		return newErr(AddressNotInTemporarySegment, "relocation source %s is not a temporary segment", src)
	}
	if src.Offset != 0 {
		return newErr(NonZeroOffset, "relocation source %s must have offset 0", src)
	}
	if _, ok := m.relocationRules[src.SegmentIndex]; ok {
		return newErr(DuplicatedRelocation, "segment %d already has a relocation rule", src.SegmentIndex)
	}
	m.relocationRules[src.SegmentIndex] = dst
	return nil
}

// RelocationRules exposes a copy of the current relocation-rule table.
func (m *Memory) RelocationRules() map[int64]Relocatable {
	out := make(map[int64]Relocatable, len(m.relocationRules))
	for k, v := range m.relocationRules {
		out[k] = v
	}
	return out
}

// Relocate applies m's relocation rules to r: if r's segment has a
// rule, the result is dst + r.offset; otherwise r is unchanged.
func (m *Memory) Relocate(r Relocatable) (Relocatable, error) {
	if !r.IsTemporary() {
		return r, nil
	}
	dst, ok := m.relocationRules[r.SegmentIndex]
	if !ok {
		return r, nil
	}
	return dst.AddUint(r.Offset)
}

// UsedSize returns the used size of segment idx (max set offset + 1).
func (m *Memory) UsedSize(idx int64) (uint64, error) {
	seg, err := m.getSegment(idx)
	if err != nil {
		return 0, err
	}
	return seg.usedSize(), nil
}

// AccessedCount returns the number of accessed cells in segment idx.
func (m *Memory) AccessedCount(idx int64) (uint64, error) {
	seg, err := m.getSegment(idx)
	if err != nil {
		return 0, err
	}
	return seg.accessedCount(), nil
}

// CellsOf returns a snapshot of every set cell in segment idx, ordered
// by offset, for builtin verification and relocation passes.
func (m *Memory) CellsOf(idx int64) ([]Relocatable, error) {
	seg, err := m.getSegment(idx)
	if err != nil {
		return nil, err
	}
	out := make([]Relocatable, 0, len(seg.cells))
	for offset, cell := range seg.cells {
		if cell.value.Known() {
			out = append(out, Relocatable{SegmentIndex: idx, Offset: uint64(offset)})
		}
	}
	return out, nil
}
