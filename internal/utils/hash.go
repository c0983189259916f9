package utils

import (
	"encoding/binary"

	"github.com/dchest/siphash"
)

// memoKey0, memoKey1 seed the structural hash used by the checked-expression
// memo. They are fixed, not secret: the hash only needs to distribute well,
// not resist an adversary.
const (
	memoKey0, memoKey1 = 0x5bd1e995, 0xc2b2ae35
)

// StructuralHash hashes the canonical byte encoding of an expression node
// (as built by the expr package's hashValueType and hashAttrs) into a 64-bit digest suitable as a map
// key for the structural-equality cache described in the design notes.
func StructuralHash(buf []byte) uint64 {
	return siphash.Hash(memoKey0, memoKey1, buf)
}

// HashUint64 folds a uint64 into the same hash space, used when combining
// child digests into a parent digest.
func HashUint64(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return siphash.Hash(memoKey0, memoKey1, buf[:])
}

// CombineHash folds an additional 64-bit digest into an accumulator,
// order-sensitive (needed since operand order matters structurally).
func CombineHash(acc, next uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], acc)
	binary.LittleEndian.PutUint64(buf[8:], next)
	return siphash.Hash(memoKey0, memoKey1, buf[:])
}
