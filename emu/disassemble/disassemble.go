/*
 * Lightrec - MIPS disassembler
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

package disassemble

import (
	"encoding/binary"
	"fmt"

	op "github.com/SoriDon/lightrec/emu/opcode"
)

const (
	tyImm = 1 + iota // rt, rs, imm
	tyMem            // rt, imm(rs)
	tyBranch         // rs, rt, offset
	tyBranch1        // rs, offset
	tyJump           // target
	tyLui            // rt, imm
	tyReg            // rd, rs, rt
	tyShift          // rd, rt, shamt
	tyShiftV         // rd, rt, rs
	tyMulDiv         // rs, rt
	tyMove           // rd
	tyMoveTo         // rs
	tyJr             // rs
	tyJalr           // rd, rs
	tyTrap           // no operands
	tyCop            // raw coprocessor word
)

type mnemonic struct {
	opName string // Mnemonic string.
	opType int    // Operand layout.
}

var opMap = map[uint32]mnemonic{
	op.OpJ:     {"j", tyJump},
	op.OpJal:   {"jal", tyJump},
	op.OpBeq:   {"beq", tyBranch},
	op.OpBne:   {"bne", tyBranch},
	op.OpBlez:  {"blez", tyBranch1},
	op.OpBgtz:  {"bgtz", tyBranch1},
	op.OpAddi:  {"addi", tyImm},
	op.OpAddiu: {"addiu", tyImm},
	op.OpSlti:  {"slti", tyImm},
	op.OpSltiu: {"sltiu", tyImm},
	op.OpAndi:  {"andi", tyImm},
	op.OpOri:   {"ori", tyImm},
	op.OpXori:  {"xori", tyImm},
	op.OpLui:   {"lui", tyLui},
	op.OpCop0:  {"cop0", tyCop},
	op.OpCop2:  {"cop2", tyCop},
	op.OpLb:    {"lb", tyMem},
	op.OpLh:    {"lh", tyMem},
	op.OpLwl:   {"lwl", tyMem},
	op.OpLw:    {"lw", tyMem},
	op.OpLbu:   {"lbu", tyMem},
	op.OpLhu:   {"lhu", tyMem},
	op.OpLwr:   {"lwr", tyMem},
	op.OpSb:    {"sb", tyMem},
	op.OpSh:    {"sh", tyMem},
	op.OpSwl:   {"swl", tyMem},
	op.OpSw:    {"sw", tyMem},
	op.OpSwr:   {"swr", tyMem},
	op.OpLwc2:  {"lwc2", tyMem},
	op.OpSwc2:  {"swc2", tyMem},
}

var specialMap = map[uint32]mnemonic{
	op.SpSll:     {"sll", tyShift},
	op.SpSrl:     {"srl", tyShift},
	op.SpSra:     {"sra", tyShift},
	op.SpSllv:    {"sllv", tyShiftV},
	op.SpSrlv:    {"srlv", tyShiftV},
	op.SpSrav:    {"srav", tyShiftV},
	op.SpJr:      {"jr", tyJr},
	op.SpJalr:    {"jalr", tyJalr},
	op.SpSyscall: {"syscall", tyTrap},
	op.SpBreak:   {"break", tyTrap},
	op.SpMfhi:    {"mfhi", tyMove},
	op.SpMthi:    {"mthi", tyMoveTo},
	op.SpMflo:    {"mflo", tyMove},
	op.SpMtlo:    {"mtlo", tyMoveTo},
	op.SpMult:    {"mult", tyMulDiv},
	op.SpMultu:   {"multu", tyMulDiv},
	op.SpDiv:     {"div", tyMulDiv},
	op.SpDivu:    {"divu", tyMulDiv},
	op.SpAdd:     {"add", tyReg},
	op.SpAddu:    {"addu", tyReg},
	op.SpSub:     {"sub", tyReg},
	op.SpSubu:    {"subu", tyReg},
	op.SpAnd:     {"and", tyReg},
	op.SpOr:      {"or", tyReg},
	op.SpXor:     {"xor", tyReg},
	op.SpNor:     {"nor", tyReg},
	op.SpSlt:     {"slt", tyReg},
	op.SpSltu:    {"sltu", tyReg},
}

var regimmMap = map[uint32]string{
	op.RiBltz:   "bltz",
	op.RiBgez:   "bgez",
	op.RiBltzal: "bltzal",
	op.RiBgezal: "bgezal",
}

// MaxBlockOps caps the straight line run a single block may cover.
const MaxBlockOps = 256

// Disassemble decodes little endian instruction words starting at code into
// the opcode list of one block. The list ends after the delay slot of the
// first branch or jump, at syscall or break, at the cap, or when code runs
// out.
func Disassemble(code []byte) []op.Opcode {
	list := make([]op.Opcode, 0, 16)

	delay := false
	for i := 0; i+4 <= len(code); i += 4 {
		word := op.Opcode(binary.LittleEndian.Uint32(code[i:]))
		list = append(list, word)
		if delay {
			break
		}
		if word.EndsBlock() {
			if !word.HasDelaySlot() {
				break
			}
			// Always take the delay slot, even past the cap.
			delay = true
			continue
		}
		if len(list) >= MaxBlockOps {
			break
		}
	}
	return list
}

// String formats one instruction the way the monitor displays it.
func String(word op.Opcode, pc uint32) string {
	if word.IsNop() {
		return "nop"
	}

	switch word.Op() {
	case op.OpSpecial:
		m, ok := specialMap[word.Fn()]
		if !ok {
			return fmt.Sprintf(".word 0x%08x", uint32(word))
		}
		switch m.opType {
		case tyShift:
			return fmt.Sprintf("%s r%d, r%d, %d", m.opName, word.Rd(), word.Rt(), word.Shamt())
		case tyShiftV:
			return fmt.Sprintf("%s r%d, r%d, r%d", m.opName, word.Rd(), word.Rt(), word.Rs())
		case tyReg:
			return fmt.Sprintf("%s r%d, r%d, r%d", m.opName, word.Rd(), word.Rs(), word.Rt())
		case tyMulDiv:
			return fmt.Sprintf("%s r%d, r%d", m.opName, word.Rs(), word.Rt())
		case tyMove:
			return fmt.Sprintf("%s r%d", m.opName, word.Rd())
		case tyMoveTo:
			return fmt.Sprintf("%s r%d", m.opName, word.Rs())
		case tyJr:
			return fmt.Sprintf("%s r%d", m.opName, word.Rs())
		case tyJalr:
			return fmt.Sprintf("%s r%d, r%d", m.opName, word.Rd(), word.Rs())
		default:
			return m.opName
		}
	case op.OpRegimm:
		name, ok := regimmMap[word.Rt()]
		if !ok {
			return fmt.Sprintf(".word 0x%08x", uint32(word))
		}
		return fmt.Sprintf("%s r%d, 0x%08x", name, word.Rs(), branchTarget(word, pc))
	}

	m, ok := opMap[word.Op()]
	if !ok {
		return fmt.Sprintf(".word 0x%08x", uint32(word))
	}
	switch m.opType {
	case tyImm:
		return fmt.Sprintf("%s r%d, r%d, 0x%04x", m.opName, word.Rt(), word.Rs(), word.Imm())
	case tyMem:
		return fmt.Sprintf("%s r%d, %d(r%d)", m.opName, word.Rt(), int32(word.SImm()), word.Rs())
	case tyBranch:
		return fmt.Sprintf("%s r%d, r%d, 0x%08x", m.opName, word.Rs(), word.Rt(), branchTarget(word, pc))
	case tyBranch1:
		return fmt.Sprintf("%s r%d, 0x%08x", m.opName, word.Rs(), branchTarget(word, pc))
	case tyJump:
		return fmt.Sprintf("%s 0x%08x", m.opName, jumpTarget(word, pc))
	case tyLui:
		return fmt.Sprintf("%s r%d, 0x%04x", m.opName, word.Rt(), word.Imm())
	case tyCop:
		return fmt.Sprintf("%s 0x%07x", m.opName, uint32(word)&0x1ffffff)
	}
	return m.opName
}

func branchTarget(word op.Opcode, pc uint32) uint32 {
	return pc + 4 + word.SImm()<<2
}

func jumpTarget(word op.Opcode, pc uint32) uint32 {
	return (pc+4)&0xf0000000 | word.Target()<<2
}
