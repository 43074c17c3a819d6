package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"

	"udonsharp/internal/compiler"
	"udonsharp/internal/resolver"
)

// Digest is a SHA-256 cache key.
type Digest [32]byte

// keyInputs is everything that can change the assembly of a unit.
type keyInputs struct {
	content     [32]byte
	fingerprint string
	version     string
	compiler    compiler.Options
	resolver    resolver.Options
	usings      []string
}

// cacheKey: H(content || fingerprint || version || options || usings).
// Strings are length-prefixed so adjacent fields cannot run together.
func cacheKey(in keyInputs) Digest {
	h := sha256.New()
	_, _ = h.Write(in.content[:])
	writeString := func(s string) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(s))
	}
	writeString(in.fingerprint)
	writeString(in.version)
	writeString(strconv.FormatBool(in.compiler.ExplicitCastFallback))
	writeString(strconv.FormatBool(in.resolver.ProxySetterQuirk))
	for _, u := range in.usings {
		writeString(u)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
