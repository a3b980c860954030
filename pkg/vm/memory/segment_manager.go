package memory

import "sort"

// publicMemoryEntry is one (offset, page_id) pair contributed by a
// finalized segment (spec §4.2).
type publicMemoryEntry struct {
	offset uint64
	pageID uint64
}

// segmentInfo records the bookkeeping kept per real segment by the
// segment manager on top of the raw Memory: a finalized size override
// (when the segment's layout is fixed ahead of use, e.g. builtins) and
// its public-memory contribution.
type segmentInfo struct {
	finalizedSize *uint64
	publicMemory  []publicMemoryEntry
}

// MemorySegmentManager wraps Memory with segment-level bookkeeping:
// allocation, effective-size computation, relocation-base computation,
// finalized sizes/public memory, and argument-writing helpers (spec
// §4.2): segment allocation plus the finalized-sizes and public-memory
// bookkeeping a prover needs on top of it.
type MemorySegmentManager struct {
	Memory *Memory

	segmentUsedSizes map[int64]uint64
	segmentSizes     map[int64]uint64
	segmentInfos     map[int64]*segmentInfo
}

func NewMemorySegmentManager() *MemorySegmentManager {
	return &MemorySegmentManager{
		Memory:       NewMemory(),
		segmentInfos: make(map[int64]*segmentInfo),
	}
}

// AddSegment allocates a new real segment and returns its base address.
func (s *MemorySegmentManager) AddSegment() Relocatable {
	idx := s.Memory.AllocateSegment()
	s.segmentInfos[idx] = &segmentInfo{}
	return Relocatable{SegmentIndex: idx, Offset: 0}
}

// AddTempSegment allocates a new temporary segment and returns its
// (negative) base address.
func (s *MemorySegmentManager) AddTempSegment() Relocatable {
	idx := s.Memory.AllocateTempSegment()
	return Relocatable{SegmentIndex: idx, Offset: 0}
}

// LoadData writes values consecutively starting at ptr and returns
// ptr + len(values).
func (s *MemorySegmentManager) LoadData(ptr Relocatable, values []MaybeRelocatable) (Relocatable, error) {
	addr := ptr
	for _, v := range values {
		if err := s.Memory.Set(addr, v); err != nil {
			return Relocatable{}, err
		}
		next, err := addr.AddUint(1)
		if err != nil {
			return Relocatable{}, err
		}
		addr = next
	}
	return addr, nil
}

// ComputeEffectiveSizes populates segmentUsedSizes from the current
// cells. It is idempotent: once populated it is not recomputed, and a
// later call returns nil at once whatever its allowTmp argument; allowTmp
// only has an effect on the first call, where it adds the temporary
// segments to the table (spec §4.2; default for allow_tmp_segments is
// false per spec §9).
func (s *MemorySegmentManager) ComputeEffectiveSizes(allowTmp bool) error {
	if s.segmentUsedSizes != nil {
		return nil
	}
	s.segmentUsedSizes = make(map[int64]uint64, s.Memory.NumSegments())
	for i := 0; i < s.Memory.NumSegments(); i++ {
		used, err := s.Memory.UsedSize(int64(i))
		if err != nil {
			return err
		}
		s.segmentUsedSizes[int64(i)] = used
	}
	if allowTmp {
		for i := 0; i < s.Memory.NumTempSegments(); i++ {
			idx := -int64(i) - 1
			used, err := s.Memory.UsedSize(idx)
			if err != nil {
				return err
			}
			s.segmentUsedSizes[idx] = used
		}
	}
	return nil
}

// SegmentUsedSizes returns the populated used-size table, failing with
// MissingSegmentUsedSizes if ComputeEffectiveSizes was never called.
func (s *MemorySegmentManager) SegmentUsedSizes() (map[int64]uint64, error) {
	if s.segmentUsedSizes == nil {
		return nil, newErr(MissingSegmentUsedSizes, "segment used sizes were never computed")
	}
	return s.segmentUsedSizes, nil
}

// sizeOf returns the finalized size for segment idx if one was set via
// Finalize, otherwise its used size.
func (s *MemorySegmentManager) sizeOf(idx int64) (uint64, error) {
	if s.segmentSizes != nil {
		if sz, ok := s.segmentSizes[idx]; ok {
			return sz, nil
		}
	}
	sizes, err := s.SegmentUsedSizes()
	if err != nil {
		return 0, err
	}
	return sizes[idx], nil
}

// RelocateSegments requires segmentUsedSizes to be populated and
// produces a base table with base[0] = 1 and base[i] = base[i-1] +
// size(i-1) (spec §3, §4.9).
func (s *MemorySegmentManager) RelocateSegments() ([]uint64, error) {
	n := s.Memory.NumSegments()
	bases := make([]uint64, n)
	var next uint64 = 1
	for i := 0; i < n; i++ {
		bases[i] = next
		size, err := s.sizeOf(int64(i))
		if err != nil {
			return nil, err
		}
		next += size
	}
	return bases, nil
}

// Finalize records a chosen size (must fit in a u32) and a public
// memory list for segmentIndex (spec §4.2).
func (s *MemorySegmentManager) Finalize(segmentIndex int64, size *uint64, publicMemoryOffsets []struct {
	Offset uint64
	PageID uint64
}) error {
	if size != nil {
		if *size > 0xFFFFFFFF {
			return newErr(ValueTooLarge, "finalized size %d does not fit in a u32", *size)
		}
		if s.segmentSizes == nil {
			s.segmentSizes = make(map[int64]uint64)
		}
		s.segmentSizes[segmentIndex] = *size
	}
	info, ok := s.segmentInfos[segmentIndex]
	if !ok {
		info = &segmentInfo{}
		s.segmentInfos[segmentIndex] = info
	}
	for _, e := range publicMemoryOffsets {
		info.publicMemory = append(info.publicMemory, publicMemoryEntry{offset: e.Offset, pageID: e.PageID})
	}
	return nil
}

// PublicMemoryAddress is one (flat address, page id) pair in the final
// public memory list (spec §4.2, §8 scenario S6).
type PublicMemoryAddress struct {
	Address uint64
	PageID  uint64
}

// GetPublicMemoryAddresses returns (base[seg]+off, page_id) for every
// finalized public entry, ordered by segment then offset, failing with
// MalformedPublicMemory if bases is shorter than the segment count.
func (s *MemorySegmentManager) GetPublicMemoryAddresses(bases []uint64) ([]PublicMemoryAddress, error) {
	if len(bases) < s.Memory.NumSegments() {
		return nil, newErr(MalformedPublicMemory, "relocation table has %d entries, need at least %d", len(bases), s.Memory.NumSegments())
	}
	segIdxs := make([]int64, 0, len(s.segmentInfos))
	for idx := range s.segmentInfos {
		segIdxs = append(segIdxs, idx)
	}
	sort.Slice(segIdxs, func(i, j int) bool { return segIdxs[i] < segIdxs[j] })

	out := make([]PublicMemoryAddress, 0)
	for _, idx := range segIdxs {
		info := s.segmentInfos[idx]
		entries := append([]publicMemoryEntry(nil), info.publicMemory...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })
		for _, e := range entries {
			out = append(out, PublicMemoryAddress{Address: bases[idx] + e.offset, PageID: e.pageID})
		}
	}
	return out, nil
}

// MemoryHoles computes, for every non-builtin segment, holes = size -
// accessed, failing with SegmentHasMoreAccessedAddressesThanSize if
// accessed exceeds size (spec §4.1, §8 property 8). builtinSegments
// lists segment indices to skip (their cells are builtin-deduced, not
// holes in the ordinary sense).
func (s *MemorySegmentManager) MemoryHoles(builtinSegments map[int64]bool) (uint64, error) {
	var holes uint64
	for i := 0; i < s.Memory.NumSegments(); i++ {
		idx := int64(i)
		if builtinSegments[idx] {
			continue
		}
		size, err := s.sizeOf(idx)
		if err != nil {
			return 0, err
		}
		accessed, err := s.Memory.AccessedCount(idx)
		if err != nil {
			return 0, err
		}
		if accessed > size {
			return 0, newErr(SegmentHasMoreAccessedAddressesThanSize, "segment %d has %d accessed cells but size %d", idx, accessed, size)
		}
		holes += size - accessed
	}
	return holes, nil
}

// GenArg allocates a new segment and writes a flat sequence of values
// (felts and relocatables) into it, returning the segment's base pointer
// (spec §4.2). It does not accept nested sequences; WriteArg handles one
// level of nesting by calling GenArg for each inner sequence.
func (s *MemorySegmentManager) GenArg(values []MaybeRelocatable) (Relocatable, error) {
	base := s.AddSegment()
	if _, err := s.LoadData(base, values); err != nil {
		return Relocatable{}, err
	}
	return base, nil
}

// WriteArg writes values (which may themselves be []MaybeRelocatable
// sequences, resolved via GenArg before being written as pointers)
// starting at ptr, returning ptr + len(values).
func (s *MemorySegmentManager) WriteArg(ptr Relocatable, values []any) (Relocatable, error) {
	resolved := make([]MaybeRelocatable, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case MaybeRelocatable:
			resolved[i] = val
		case Felt:
			resolved[i] = NewMaybeRelocatableFelt(val)
		case Relocatable:
			resolved[i] = NewMaybeRelocatableRelocatable(val)
		case []MaybeRelocatable:
			nested, err := s.GenArg(val)
			if err != nil {
				return Relocatable{}, err
			}
			resolved[i] = NewMaybeRelocatableRelocatable(nested)
		default:
			return Relocatable{}, newErr(GenArgInvalidType, "unsupported argument type at index %d: %T", i, v)
		}
	}
	return s.LoadData(ptr, resolved)
}
