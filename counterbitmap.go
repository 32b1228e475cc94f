package flashee

import (
	"github.com/dsoprea/go-logging"
)

// The overwrite counter bitmap is a unary counter spread across
// 4-byte words: each word starts 0xFFFFFFFF, and each occupied overwrite
// slot clears exactly one more low-order bit of the first non-full word.
// popcountZeros(w) below counts the number of cleared bits in one word by
// counting how many low bits are zero before the first 1, which — because
// bits are only ever cleared in order via `w <<= 1` — equals the number of
// slots that word accounts for.

// countAreaPlusOne advances the unary counter by one bit. It is always
// called before the corresponding overwrite slot is programmed, so a
// crash after this call but before the slot write just makes recovery
// tolerate a counter that is one ahead of reality.
func countAreaPlusOne(f Flash, g regionGeometry) error {
	base := g.overwriteCountAreaAddr()

	for off := uint32(0); off < g.overwriteCountAreaSize; off += 4 {
		word, err := readUint32(f, base+off)
		log.PanicIf(err)

		if word == 0x00000000 {
			// fully counted, move to the next word
			continue
		}

		word <<= 1

		err = writeUint32(f, base+off, word)
		log.PanicIf(err)

		return nil
	}

	// bitmap fully saturated: every overwrite slot is already accounted
	// for. This can only happen if the overwrite sub-region is already
	// full, which the caller must have already routed through swap().
	return log.Errorf("flashee: overwrite counter bitmap is saturated")
}

// overwriteFreeAddr returns the address of the first free overwrite slot,
// derived from the number of cleared bits across the bitmap.
func overwriteFreeAddr(f Flash, g regionGeometry) (uint32, error) {
	count, err := overwriteSlotCount(f, g)
	if err != nil {
		return 0, err
	}

	return g.overwriteAddr + indexRecordSize*count, nil
}

// overwriteSlotCount walks the bitmap word by word and returns the total
// number of cleared (occupied-slot) bits, stopping at the first
// all-1s (0xFFFFFFFF) word.
func overwriteSlotCount(f Flash, g regionGeometry) (uint32, error) {
	base := g.overwriteCountAreaAddr()

	var count uint32
	for off := uint32(0); off < g.overwriteCountAreaSize; off += 4 {
		word, err := readUint32(f, base+off)
		log.PanicIf(err)

		if word == 0xFFFFFFFF {
			break
		}

		count += popcountZeros(word)

		if word != 0x00000000 {
			// the first non-full, non-empty word is necessarily the last
			// word with any cleared bits, since bits are cleared strictly
			// left-to-right word-by-word.
			break
		}
	}

	return count, nil
}

// popcountZeros counts the number of low-order zero bits in w before the
// first set bit, i.e. how many times `w <<= 1` has been applied starting
// from 0xFFFFFFFF.
func popcountZeros(w uint32) uint32 {
	var n uint32
	for i := 0; i < 32; i++ {
		if w&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}
