package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// TypeTag is the runtime identifier stored in every compiled behaviour's
// `__refl_const_intnl_udonTypeID` constant: the first eight bytes of the
// SHA-256 of the full type name, little endian, reinterpreted as signed.
func TypeTag(t *Type) int64 {
	return TypeTagOf(t.FullName())
}

func TypeTagOf(fullName string) int64 {
	sum := sha256.Sum256([]byte(fullName))
	return int64(binary.LittleEndian.Uint64(sum[:8])) //nolint:gosec // bit reinterpretation
}
