/*
 * Lightrec - Per opcode emitters
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

package cpu

import (
	"encoding/binary"
	"log/slog"

	op "github.com/SoriDon/lightrec/emu/opcode"
)

type emitResult int

const (
	recEmitted emitResult = iota
	recSkipDelaySlot
)

// recCtx carries the emission position of one opcode.
type recCtx struct {
	st  *State
	e   *Emitter
	b   *Block
	idx int    // Position in the block opcode list.
	pc  uint32 // Guest address of the opcode.
	o   op.Opcode
}

type recFn func(ctx *recCtx) emitResult

var recTable [64]recFn

func init() {
	recTable = [64]recFn{
		op.OpSpecial: recSpecial,
		op.OpRegimm:  recRegimm,
		op.OpJ:       recJump,
		op.OpJal:     recJump,
		op.OpBeq:     recBranch,
		op.OpBne:     recBranch,
		op.OpBlez:    recBranch,
		op.OpBgtz:    recBranch,
		op.OpAddi:    recAluImm,
		op.OpAddiu:   recAluImm,
		op.OpSlti:    recAluImm,
		op.OpSltiu:   recAluImm,
		op.OpAndi:    recAluImm,
		op.OpOri:     recAluImm,
		op.OpXori:    recAluImm,
		op.OpLui:     recLui,
		op.OpCop0:    recCop,
		op.OpCop2:    recCop,
		op.OpLb:      recLoadStore,
		op.OpLh:      recLoadStore,
		op.OpLwl:     recLoadStore,
		op.OpLw:      recLoadStore,
		op.OpLbu:     recLoadStore,
		op.OpLhu:     recLoadStore,
		op.OpLwr:     recLoadStore,
		op.OpSb:      recLoadStore,
		op.OpSh:      recLoadStore,
		op.OpSwl:     recLoadStore,
		op.OpSw:      recLoadStore,
		op.OpSwr:     recLoadStore,
		op.OpLwc2:    recLwc2,
		op.OpSwc2:    recSwc2,
	}
}

// recOpcode emits the native code of one opcode. Reserved encodings emit
// nothing; the guest treated them as no-ops often enough that stopping the
// block would be worse than running past them.
func recOpcode(ctx *recCtx) emitResult {
	if fn := recTable[ctx.o.Op()]; fn != nil {
		return fn(ctx)
	}
	slog.Warn("lightrec: unhandled opcode", "pc", hex32(ctx.pc), "word", hex32(uint32(ctx.o)))
	return recEmitted
}

// emitDelaySlot folds the instruction after a branch into the branch's own
// emission. A second branch in the slot is undefined on the guest and is
// dropped.
func emitDelaySlot(ctx *recCtx) {
	i := ctx.idx + 1
	if i >= len(ctx.b.OpcodeList) {
		return
	}
	ds := ctx.b.OpcodeList[i]
	if ds.IsNop() {
		return
	}
	if ds.HasDelaySlot() {
		slog.Warn("lightrec: branch in delay slot dropped", "pc", hex32(ctx.pc+4))
		return
	}
	recOpcode(&recCtx{st: ctx.st, e: ctx.e, b: ctx.b, idx: i, pc: ctx.pc + 4, o: ds})
}

// emitBranchSelect closes a conditional branch: jump to the taken exit if
// the sampled condition held, else exit to the fall through address.
func emitBranchSelect(ctx *recCtx, target uint32) {
	b := ctx.b
	fall := ctx.pc + 8
	j := ctx.e.EmitJumpIf(func(st *State) bool { return st.branchTaken })
	ctx.e.EmitExit(func(st *State) {
		st.NextPC = fall
		st.ExitCycles = b.CycleCount
	})
	ctx.e.Patch(j, ctx.e.Label())
	ctx.e.EmitExit(func(st *State) {
		st.NextPC = target
		st.ExitCycles = b.CycleCount
	})
}

func recAluImm(ctx *recCtx) emitResult {
	o := ctx.o
	rs, rt := o.Rs(), o.Rt()
	imm, simm := o.Imm(), o.SImm()

	var f func(a uint32) uint32
	switch o.Op() {
	case op.OpAddi, op.OpAddiu:
		// Overflow traps are not taken; addi behaves like addiu.
		f = func(a uint32) uint32 { return a + simm }
	case op.OpSlti:
		f = func(a uint32) uint32 {
			if int32(a) < int32(simm) {
				return 1
			}
			return 0
		}
	case op.OpSltiu:
		f = func(a uint32) uint32 {
			if a < simm {
				return 1
			}
			return 0
		}
	case op.OpAndi:
		f = func(a uint32) uint32 { return a & imm }
	case op.OpOri:
		f = func(a uint32) uint32 { return a | imm }
	case op.OpXori:
		f = func(a uint32) uint32 { return a ^ imm }
	}

	if rt != 0 {
		ctx.e.Emit(func(st *State) { st.Regs[rt] = f(st.Regs[rs]) })
	}
	if v, ok := ctx.st.regs.get(rs); ok {
		ctx.st.regs.set(rt, f(v))
	} else {
		ctx.st.regs.invalidate(rt)
	}
	return recEmitted
}

func recLui(ctx *recCtx) emitResult {
	rt := ctx.o.Rt()
	v := ctx.o.Imm() << 16
	if rt != 0 {
		ctx.e.Emit(func(st *State) { st.Regs[rt] = v })
	}
	ctx.st.regs.set(rt, v)
	return recEmitted
}

func recSpecial(ctx *recCtx) emitResult {
	o := ctx.o
	rs, rt, rd := o.Rs(), o.Rt(), o.Rd()
	shamt := o.Shamt()

	switch o.Fn() {
	case op.SpJr:
		ctx.e.Emit(func(st *State) { st.branchTarget = st.Regs[rs] })
		emitDelaySlot(ctx)
		b := ctx.b
		ctx.e.EmitExit(func(st *State) {
			st.NextPC = st.branchTarget
			st.ExitCycles = b.CycleCount
		})
		return recSkipDelaySlot

	case op.SpJalr:
		link := ctx.pc + 8
		ctx.e.Emit(func(st *State) {
			st.branchTarget = st.Regs[rs]
			if rd != 0 {
				st.Regs[rd] = link
			}
		})
		ctx.st.regs.set(rd, link)
		emitDelaySlot(ctx)
		b := ctx.b
		ctx.e.EmitExit(func(st *State) {
			st.NextPC = st.branchTarget
			st.ExitCycles = b.CycleCount
		})
		return recSkipDelaySlot

	case op.SpSyscall, op.SpBreak:
		flag := ExitSyscall
		if o.Fn() == op.SpBreak {
			flag = ExitBreak
		}
		pc := ctx.pc
		b := ctx.b
		ctx.e.EmitExit(func(st *State) {
			st.Stop = true
			st.ExitFlags |= flag
			st.NextPC = pc
			st.ExitCycles = b.CycleCount
		})
		return recEmitted

	case op.SpMfhi:
		if rd != 0 {
			ctx.e.Emit(func(st *State) { st.Regs[rd] = st.Hi })
		}
		ctx.st.regs.invalidate(rd)
		return recEmitted
	case op.SpMflo:
		if rd != 0 {
			ctx.e.Emit(func(st *State) { st.Regs[rd] = st.Lo })
		}
		ctx.st.regs.invalidate(rd)
		return recEmitted
	case op.SpMthi:
		ctx.e.Emit(func(st *State) { st.Hi = st.Regs[rs] })
		return recEmitted
	case op.SpMtlo:
		ctx.e.Emit(func(st *State) { st.Lo = st.Regs[rs] })
		return recEmitted

	case op.SpMult:
		ctx.e.Emit(func(st *State) {
			r := int64(int32(st.Regs[rs])) * int64(int32(st.Regs[rt]))
			st.Lo = uint32(r)
			st.Hi = uint32(r >> 32)
		})
		return recEmitted
	case op.SpMultu:
		ctx.e.Emit(func(st *State) {
			r := uint64(st.Regs[rs]) * uint64(st.Regs[rt])
			st.Lo = uint32(r)
			st.Hi = uint32(r >> 32)
		})
		return recEmitted
	case op.SpDiv:
		ctx.e.Emit(func(st *State) {
			n, d := int32(st.Regs[rs]), int32(st.Regs[rt])
			switch {
			case d == 0:
				// Divide by zero leaves the guest's conventional results.
				if n >= 0 {
					st.Lo = 0xffffffff
				} else {
					st.Lo = 1
				}
				st.Hi = uint32(n)
			case n == -0x80000000 && d == -1:
				st.Lo = 0x80000000
				st.Hi = 0
			default:
				st.Lo = uint32(n / d)
				st.Hi = uint32(n % d)
			}
		})
		return recEmitted
	case op.SpDivu:
		ctx.e.Emit(func(st *State) {
			n, d := st.Regs[rs], st.Regs[rt]
			if d == 0 {
				st.Lo = 0xffffffff
				st.Hi = n
			} else {
				st.Lo = n / d
				st.Hi = n % d
			}
		})
		return recEmitted
	}

	var f func(a, b uint32) uint32
	switch o.Fn() {
	case op.SpSll:
		f = func(_, b uint32) uint32 { return b << shamt }
	case op.SpSrl:
		f = func(_, b uint32) uint32 { return b >> shamt }
	case op.SpSra:
		f = func(_, b uint32) uint32 { return uint32(int32(b) >> shamt) }
	case op.SpSllv:
		f = func(a, b uint32) uint32 { return b << (a & 0x1f) }
	case op.SpSrlv:
		f = func(a, b uint32) uint32 { return b >> (a & 0x1f) }
	case op.SpSrav:
		f = func(a, b uint32) uint32 { return uint32(int32(b) >> (a & 0x1f)) }
	case op.SpAdd, op.SpAddu:
		f = func(a, b uint32) uint32 { return a + b }
	case op.SpSub, op.SpSubu:
		f = func(a, b uint32) uint32 { return a - b }
	case op.SpAnd:
		f = func(a, b uint32) uint32 { return a & b }
	case op.SpOr:
		f = func(a, b uint32) uint32 { return a | b }
	case op.SpXor:
		f = func(a, b uint32) uint32 { return a ^ b }
	case op.SpNor:
		f = func(a, b uint32) uint32 { return ^(a | b) }
	case op.SpSlt:
		f = func(a, b uint32) uint32 {
			if int32(a) < int32(b) {
				return 1
			}
			return 0
		}
	case op.SpSltu:
		f = func(a, b uint32) uint32 {
			if a < b {
				return 1
			}
			return 0
		}
	default:
		slog.Warn("lightrec: unhandled special opcode", "pc", hex32(ctx.pc), "word", hex32(uint32(o)))
		return recEmitted
	}

	if rd != 0 {
		ctx.e.Emit(func(st *State) { st.Regs[rd] = f(st.Regs[rs], st.Regs[rt]) })
	}
	va, oka := ctx.st.regs.get(rs)
	vb, okb := ctx.st.regs.get(rt)
	if oka && okb {
		ctx.st.regs.set(rd, f(va, vb))
	} else {
		ctx.st.regs.invalidate(rd)
	}
	return recEmitted
}

func recRegimm(ctx *recCtx) emitResult {
	o := ctx.o
	rs := o.Rs()
	target := ctx.pc + 4 + o.SImm()<<2

	ge := o.Rt() == op.RiBgez || o.Rt() == op.RiBgezal
	link := o.Rt() == op.RiBltzal || o.Rt() == op.RiBgezal

	linkPC := ctx.pc + 8
	ctx.e.Emit(func(st *State) {
		taken := int32(st.Regs[rs]) < 0
		if ge {
			taken = !taken
		}
		st.branchTaken = taken
		if link {
			// The link register is written whether or not the branch
			// is taken.
			st.Regs[31] = linkPC
		}
	})
	if link {
		ctx.st.regs.set(31, linkPC)
	}
	emitDelaySlot(ctx)
	emitBranchSelect(ctx, target)
	return recSkipDelaySlot
}

func recJump(ctx *recCtx) emitResult {
	o := ctx.o
	target := (ctx.pc+4)&0xf0000000 | o.Target()<<2

	if o.Op() == op.OpJal {
		linkPC := ctx.pc + 8
		ctx.e.Emit(func(st *State) { st.Regs[31] = linkPC })
		ctx.st.regs.set(31, linkPC)
	}
	emitDelaySlot(ctx)
	b := ctx.b
	ctx.e.EmitExit(func(st *State) {
		st.NextPC = target
		st.ExitCycles = b.CycleCount
	})
	return recSkipDelaySlot
}

func recBranch(ctx *recCtx) emitResult {
	o := ctx.o
	rs, rt := o.Rs(), o.Rt()
	target := ctx.pc + 4 + o.SImm()<<2

	var cond func(st *State) bool
	switch o.Op() {
	case op.OpBeq:
		cond = func(st *State) bool { return st.Regs[rs] == st.Regs[rt] }
	case op.OpBne:
		cond = func(st *State) bool { return st.Regs[rs] != st.Regs[rt] }
	case op.OpBlez:
		cond = func(st *State) bool { return int32(st.Regs[rs]) <= 0 }
	case op.OpBgtz:
		cond = func(st *State) bool { return int32(st.Regs[rs]) > 0 }
	}

	ctx.e.Emit(func(st *State) { st.branchTaken = cond(st) })
	emitDelaySlot(ctx)
	emitBranchSelect(ctx, target)
	return recSkipDelaySlot
}

// simpleMemOp reports ops the direct fast path can serve.
func simpleMemOp(o op.Opcode) bool {
	return accessSize(o) != 0
}

func recLoadStore(ctx *recCtx) emitResult {
	o := ctx.o
	rs, rt := o.Rs(), o.Rt()

	if v, ok := ctx.st.regs.get(rs); ok && simpleMemOp(o) {
		addr := v + o.SImm()
		if region, _, hit := ctx.st.Resolve(addr); hit && region.Ops == nil {
			if host, off, hit := ctx.st.lookup(addr); hit && int(off)+accessSize(o) <= len(host) {
				emitFastMem(ctx, host, off, rt)
				if o.IsLoad() {
					ctx.st.regs.invalidate(rt)
				}
				return recEmitted
			}
		}
	}

	isStore := o.IsStore()
	ctx.e.Emit(func(st *State) {
		res := st.RW(st, o, st.Regs[rs], st.Regs[rt])
		if !isStore && rt != 0 {
			st.Regs[rt] = res
		}
	})
	if o.IsLoad() {
		ctx.st.regs.invalidate(rt)
	}
	return recEmitted
}

// emitFastMem emits a load or store whose host address was resolved at
// compile time. Only called for in range accesses to plain memory.
func emitFastMem(ctx *recCtx, host []byte, off uint32, rt uint32) {
	switch ctx.o.Op() {
	case op.OpSb:
		ctx.e.Emit(func(st *State) { host[off] = uint8(st.Regs[rt]) })
	case op.OpSh:
		ctx.e.Emit(func(st *State) { binary.LittleEndian.PutUint16(host[off:], uint16(st.Regs[rt])) })
	case op.OpSw:
		ctx.e.Emit(func(st *State) { binary.LittleEndian.PutUint32(host[off:], st.Regs[rt]) })
	case op.OpLb:
		if rt != 0 {
			ctx.e.Emit(func(st *State) { st.Regs[rt] = uint32(int32(int8(host[off]))) })
		}
	case op.OpLbu:
		if rt != 0 {
			ctx.e.Emit(func(st *State) { st.Regs[rt] = uint32(host[off]) })
		}
	case op.OpLh:
		if rt != 0 {
			ctx.e.Emit(func(st *State) {
				st.Regs[rt] = uint32(int32(int16(binary.LittleEndian.Uint16(host[off:]))))
			})
		}
	case op.OpLhu:
		if rt != 0 {
			ctx.e.Emit(func(st *State) { st.Regs[rt] = uint32(binary.LittleEndian.Uint16(host[off:])) })
		}
	case op.OpLw:
		if rt != 0 {
			ctx.e.Emit(func(st *State) { st.Regs[rt] = binary.LittleEndian.Uint32(host[off:]) })
		}
	}
}

func recCop(ctx *recCtx) emitResult {
	o := ctx.o
	cop := uint32(0)
	if o.Op() == op.OpCop2 {
		cop = 2
	}
	rt := o.Rt()

	if o.Rs()&0x10 != 0 {
		ctx.e.Emit(func(st *State) {
			if st.cops != nil && st.cops.Op != nil {
				st.cops.Op(st, cop, o)
			}
		})
		return recEmitted
	}

	switch o.Rs() {
	case 0x00, 0x02: // mfc, cfc
		if rt != 0 {
			ctx.e.Emit(func(st *State) {
				if st.cops != nil && st.cops.Mfc != nil {
					st.Regs[rt] = st.cops.Mfc(st, cop, o)
				}
			})
		}
		ctx.st.regs.invalidate(rt)
	case 0x04, 0x06: // mtc, ctc
		ctx.e.Emit(func(st *State) {
			if st.cops != nil && st.cops.Mtc != nil {
				st.cops.Mtc(st, cop, o, st.Regs[rt])
			}
		})
	default:
		slog.Warn("lightrec: unhandled coprocessor opcode", "pc", hex32(ctx.pc), "word", hex32(uint32(o)))
	}
	return recEmitted
}

func recLwc2(ctx *recCtx) emitResult {
	o := ctx.o
	rs := o.Rs()
	ctx.e.Emit(func(st *State) {
		v := st.RW(st, o, st.Regs[rs], 0)
		if st.cops != nil && st.cops.Mtc != nil {
			st.cops.Mtc(st, 2, o, v)
		}
	})
	return recEmitted
}

func recSwc2(ctx *recCtx) emitResult {
	o := ctx.o
	rs := o.Rs()
	ctx.e.Emit(func(st *State) {
		var v uint32
		if st.cops != nil && st.cops.Mfc != nil {
			v = st.cops.Mfc(st, 2, o)
		}
		st.RW(st, o, st.Regs[rs], v)
	})
	return recEmitted
}
