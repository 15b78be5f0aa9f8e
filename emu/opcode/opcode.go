/*
 * Lightrec - MIPS R3000 opcode model
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package opcode

// Opcode is one raw MIPS-I instruction word.
type Opcode uint32

// Primary opcode field values.
const (
	OpSpecial uint32 = 0x00
	OpRegimm  uint32 = 0x01
	OpJ       uint32 = 0x02
	OpJal     uint32 = 0x03
	OpBeq     uint32 = 0x04
	OpBne     uint32 = 0x05
	OpBlez    uint32 = 0x06
	OpBgtz    uint32 = 0x07
	OpAddi    uint32 = 0x08
	OpAddiu   uint32 = 0x09
	OpSlti    uint32 = 0x0a
	OpSltiu   uint32 = 0x0b
	OpAndi    uint32 = 0x0c
	OpOri     uint32 = 0x0d
	OpXori    uint32 = 0x0e
	OpLui     uint32 = 0x0f
	OpCop0    uint32 = 0x10
	OpCop2    uint32 = 0x12
	OpLb      uint32 = 0x20
	OpLh      uint32 = 0x21
	OpLwl     uint32 = 0x22
	OpLw      uint32 = 0x23
	OpLbu     uint32 = 0x24
	OpLhu     uint32 = 0x25
	OpLwr     uint32 = 0x26
	OpSb      uint32 = 0x28
	OpSh      uint32 = 0x29
	OpSwl     uint32 = 0x2a
	OpSw      uint32 = 0x2b
	OpSwr     uint32 = 0x2e
	OpLwc2    uint32 = 0x32
	OpSwc2    uint32 = 0x3a
)

// Special function field values.
const (
	SpSll     uint32 = 0x00
	SpSrl     uint32 = 0x02
	SpSra     uint32 = 0x03
	SpSllv    uint32 = 0x04
	SpSrlv    uint32 = 0x06
	SpSrav    uint32 = 0x07
	SpJr      uint32 = 0x08
	SpJalr    uint32 = 0x09
	SpSyscall uint32 = 0x0c
	SpBreak   uint32 = 0x0d
	SpMfhi    uint32 = 0x10
	SpMthi    uint32 = 0x11
	SpMflo    uint32 = 0x12
	SpMtlo    uint32 = 0x13
	SpMult    uint32 = 0x18
	SpMultu   uint32 = 0x19
	SpDiv     uint32 = 0x1a
	SpDivu    uint32 = 0x1b
	SpAdd     uint32 = 0x20
	SpAddu    uint32 = 0x21
	SpSub     uint32 = 0x22
	SpSubu    uint32 = 0x23
	SpAnd     uint32 = 0x24
	SpOr      uint32 = 0x25
	SpXor     uint32 = 0x26
	SpNor     uint32 = 0x27
	SpSlt     uint32 = 0x2a
	SpSltu    uint32 = 0x2b
)

// Regimm rt field values.
const (
	RiBltz   uint32 = 0x00
	RiBgez   uint32 = 0x01
	RiBltzal uint32 = 0x10
	RiBgezal uint32 = 0x11
)

// Field accessors.
func (op Opcode) Op() uint32     { return uint32(op) >> 26 }
func (op Opcode) Rs() uint32     { return (uint32(op) >> 21) & 0x1f }
func (op Opcode) Rt() uint32     { return (uint32(op) >> 16) & 0x1f }
func (op Opcode) Rd() uint32     { return (uint32(op) >> 11) & 0x1f }
func (op Opcode) Shamt() uint32  { return (uint32(op) >> 6) & 0x1f }
func (op Opcode) Fn() uint32     { return uint32(op) & 0x3f }
func (op Opcode) Imm() uint32    { return uint32(op) & 0xffff }
func (op Opcode) Target() uint32 { return uint32(op) & 0x03ffffff }

// SImm returns the 16 bit immediate sign extended to 32 bits.
func (op Opcode) SImm() uint32 {
	return uint32(int32(int16(uint16(op) & 0xffff)))
}

// IsNop reports an all zero word, which assemblers emit for nop.
func (op Opcode) IsNop() bool {
	return op == 0
}

// HasDelaySlot reports whether the instruction following op executes before
// control transfers.
func (op Opcode) HasDelaySlot() bool {
	switch op.Op() {
	case OpJ, OpJal, OpBeq, OpBne, OpBlez, OpBgtz, OpRegimm:
		return true
	case OpSpecial:
		fn := op.Fn()
		return fn == SpJr || fn == SpJalr
	}
	return false
}

// EndsBlock reports whether op terminates a straight line run of guest code.
func (op Opcode) EndsBlock() bool {
	if op.HasDelaySlot() {
		return true
	}
	if op.Op() == OpSpecial {
		fn := op.Fn()
		return fn == SpSyscall || fn == SpBreak
	}
	return false
}

// IsLoad reports the word loads from guest memory.
func (op Opcode) IsLoad() bool {
	switch op.Op() {
	case OpLb, OpLbu, OpLh, OpLhu, OpLw, OpLwl, OpLwr, OpLwc2:
		return true
	}
	return false
}

// IsStore reports the word stores to guest memory.
func (op Opcode) IsStore() bool {
	switch op.Op() {
	case OpSb, OpSh, OpSw, OpSwl, OpSwr, OpSwc2:
		return true
	}
	return false
}
