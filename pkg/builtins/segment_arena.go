package builtins

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

const segmentArenaCellsPerInstance = 3

// SegmentArena lays out instances as three consecutive cells (info
// segment pointer, n_segments, n_finalized); it contributes no
// deduction, only the structural check that n_finalized never exceeds
// n_segments (spec §4.8).
type SegmentArena struct {
	base memory.Relocatable
}

func NewSegmentArena() *SegmentArena {
	return &SegmentArena{}
}

func (s *SegmentArena) Name() string            { return "segment_arena" }
func (s *SegmentArena) CellsPerInstance() uint64 { return segmentArenaCellsPerInstance }
func (s *SegmentArena) Base() memory.Relocatable { return s.base }

func (s *SegmentArena) InitializeSegments(segments *memory.MemorySegmentManager) {
	s.base = segments.AddSegment()
}

func (s *SegmentArena) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(s.base)}
}

func (s *SegmentArena) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	return nil, nil
}

func (s *SegmentArena) AddValidationRule(mem *memory.Memory) {
	segIdx := s.base.SegmentIndex
	mem.AddValidationRule(segIdx, func(m *memory.Memory, addr memory.Relocatable) ([]memory.Relocatable, error) {
		index := addr.Offset % segmentArenaCellsPerInstance
		if index != 2 {
			return []memory.Relocatable{addr}, nil
		}
		instanceBase := addr.Offset - index
		nSegments, err := m.GetFelt(memory.Relocatable{SegmentIndex: segIdx, Offset: instanceBase + 1})
		if err != nil {
			return nil, err
		}
		nFinalized, err := m.GetFelt(addr)
		if err != nil {
			return nil, err
		}
		if nFinalized.ToBigInt().Cmp(nSegments.ToBigInt()) > 0 {
			return nil, newErr(SegmentArenaInvalid, "n_finalized %s exceeds n_segments %s at %s", nFinalized, nSegments, addr)
		}
		return []memory.Relocatable{addr}, nil
	})
}
