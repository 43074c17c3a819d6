package asm

import "fmt"

// Opcode values match the Udon VM encoding.
type Opcode uint8

const (
	OpNop          Opcode = 0
	OpPush         Opcode = 1
	OpPop          Opcode = 2
	OpJumpIfFalse  Opcode = 4
	OpJump         Opcode = 5
	OpExtern       Opcode = 6
	OpJumpIndirect Opcode = 8
	OpCopy         Opcode = 9
)

func (o Opcode) String() string {
	switch o {
	case OpNop:
		return "NOP"
	case OpPush:
		return "PUSH"
	case OpPop:
		return "POP"
	case OpJumpIfFalse:
		return "JUMP_IF_FALSE"
	case OpJump:
		return "JUMP"
	case OpExtern:
		return "EXTERN"
	case OpJumpIndirect:
		return "JUMP_INDIRECT"
	case OpCopy:
		return "COPY"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// Size is the encoded width in bytes: opcode word plus an optional operand
// word.
func (o Opcode) Size() uint32 {
	switch o {
	case OpPush, OpJumpIfFalse, OpJump, OpExtern, OpJumpIndirect:
		return 8
	default:
		return 4
	}
}

// HaltAddress is the sentinel jump target that stops the VM.
const HaltAddress uint32 = 0xFFFFFFFC
