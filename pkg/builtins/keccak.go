package builtins

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

const keccakCellsPerInstance = 16
const keccakInputCells = 8

// Keccak lays out instances as sixteen consecutive cells: eight input
// limbs followed by eight output limbs. Each input limb contributes only
// its low 64 bits, as one lane; higher bits of an input cell are
// ignored. The eight lanes are assembled into a 25 lane keccak-f[1600]
// state (the remaining lanes zero padded) and the permutation's first
// eight output lanes become the output limbs (spec §4.8). golang.org/x/crypto/sha3 only exposes
// full sponge constructions with their own padding/squeezing, not the
// raw permutation this builtin needs applied to an already-assembled
// state, so keccak-f[1600] is implemented directly here against the
// published FIPS 202 round-constant and rotation-offset tables.
type Keccak struct {
	base memory.Relocatable
}

func NewKeccak() *Keccak {
	return &Keccak{}
}

func (k *Keccak) Name() string            { return "keccak" }
func (k *Keccak) CellsPerInstance() uint64 { return keccakCellsPerInstance }
func (k *Keccak) Base() memory.Relocatable { return k.base }

func (k *Keccak) InitializeSegments(segments *memory.MemorySegmentManager) {
	k.base = segments.AddSegment()
}

func (k *Keccak) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(k.base)}
}

func (k *Keccak) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	if addr.SegmentIndex != k.base.SegmentIndex {
		return nil, nil
	}
	index := addr.Offset % keccakCellsPerInstance
	if index < keccakInputCells {
		return nil, nil
	}
	instanceBase := addr.Offset - index

	var state [25]uint64
	for i := uint64(0); i < keccakInputCells; i++ {
		f, err := mem.GetFelt(memory.Relocatable{SegmentIndex: addr.SegmentIndex, Offset: instanceBase + i})
		if err != nil {
			return nil, nil
		}
		b := f.ToBigInt()
		state[i] = b.Uint64()
	}
	keccakF1600(&state)

	mr := memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(state[index-keccakInputCells]))
	return &mr, nil
}

func (k *Keccak) AddValidationRule(mem *memory.Memory) {}

var keccakRC = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808a, 0x8000000080008000,
	0x000000000000808b, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008a, 0x0000000000000088, 0x0000000080008009, 0x000000008000000a,
	0x000000008000808b, 0x800000000000008b, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800a, 0x800000008000000a,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

var keccakRotc = [24]uint{1, 3, 6, 10, 15, 21, 28, 36, 45, 55, 2, 14, 27, 41, 56, 8, 25, 43, 62, 18, 39, 61, 20, 44}
var keccakPiln = [24]int{10, 7, 11, 17, 18, 3, 5, 16, 8, 21, 24, 4, 15, 23, 19, 13, 12, 2, 20, 14, 22, 9, 6, 1}

func keccakF1600(a *[25]uint64) {
	var bc [5]uint64
	for round := 0; round < 24; round++ {
		for i := 0; i < 5; i++ {
			bc[i] = a[i] ^ a[i+5] ^ a[i+10] ^ a[i+15] ^ a[i+20]
		}
		for i := 0; i < 5; i++ {
			t := bc[(i+4)%5] ^ rotl64(bc[(i+1)%5], 1)
			for j := 0; j < 25; j += 5 {
				a[j+i] ^= t
			}
		}
		t := a[1]
		for i := 0; i < 24; i++ {
			j := keccakPiln[i]
			bc[0] = a[j]
			a[j] = rotl64(t, keccakRotc[i])
			t = bc[0]
		}
		for j := 0; j < 25; j += 5 {
			for i := 0; i < 5; i++ {
				bc[i] = a[j+i]
			}
			for i := 0; i < 5; i++ {
				a[j+i] ^= (^bc[(i+1)%5]) & bc[(i+2)%5]
			}
		}
		a[0] ^= keccakRC[round]
	}
}

func rotl64(x uint64, n uint) uint64 {
	return (x << n) | (x >> (64 - n))
}
