package asm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects an output encoding for an assembled program.
type Format string

const (
	FormatText    Format = "uasm"
	FormatMsgpack Format = "msgpack"
	FormatCBOR    Format = "cbor"
)

// ParseFormat validates a --emit value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatMsgpack, FormatCBOR:
		return Format(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown emit format %q (want uasm, msgpack or cbor)", s)
	}
}

// Ext is the conventional file extension for f.
func (f Format) Ext() string {
	switch f {
	case FormatMsgpack:
		return ".uasm.msgpack"
	case FormatCBOR:
		return ".uasm.cbor"
	default:
		return ".uasm"
	}
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("asm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes a in the requested format.
func (a *Assembly) Encode(f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(a.Text()), nil
	case FormatMsgpack:
		data, err := msgpack.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("asm: msgpack encode: %w", err)
		}
		return data, nil
	case FormatCBOR:
		data, err := cborEncMode.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("asm: cbor encode: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("asm: unknown format %q", f)
	}
}

// Decode reads an Assembly previously written with Encode in a binary
// format.
func Decode(f Format, data []byte) (*Assembly, error) {
	var a Assembly
	switch f {
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("asm: msgpack decode: %w", err)
		}
	case FormatCBOR:
		if err := cbor.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("asm: cbor decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("asm: format %q cannot be decoded", f)
	}
	return &a, nil
}
