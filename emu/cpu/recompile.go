/*
 * Lightrec - Recompiler driver
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
	"fmt"

	"github.com/SoriDon/lightrec/emu/disassemble"
	op "github.com/SoriDon/lightrec/emu/opcode"
)

// Block is one recompiled run of guest code. Created by Recompile, owned
// by the block cache once registered.
type Block struct {
	PC         uint32      // Guest address the block was compiled at.
	KunsegPC   uint32      // Same address, unsegmented.
	Function   Function    // Native entry point; valid for the block's lifetime.
	OpcodeList []op.Opcode // Decoded guest instructions.
	CycleCount uint32      // Total cycle cost, skipped slots included.
	Code       []byte      // Covered guest code, aliasing the memory map.

	state   *State
	emitter *Emitter
	hash    uint32
}

// Free releases the opcode list and the emission handle. The cache calls
// this for registered blocks; callers free unregistered blocks themselves.
func (b *Block) Free() {
	b.OpcodeList = nil
	if b.emitter != nil {
		b.emitter.Free()
		b.emitter = nil
	}
	b.Function = nil
}

// Recompile builds a new block starting at pc. The guest code must live in
// plain mapped memory.
func (st *State) Recompile(pc uint32) (*Block, error) {
	region, offset, ok := st.Resolve(pc)
	if !ok || region.Ops != nil {
		return nil, fmt.Errorf("lightrec: no code mapped at %s", hex32(pc))
	}

	list := disassemble.Disassemble(region.Host[offset:])
	if len(list) == 0 {
		return nil, fmt.Errorf("lightrec: code region exhausted at %s", hex32(pc))
	}

	// No allocation state leaks between blocks.
	st.regs.Reset()

	e := newEmitter()
	b := &Block{
		PC:         pc,
		KunsegPC:   Kunseg(pc),
		OpcodeList: list,
		Code:       region.Host[offset : offset+uint32(4*len(list))],
		state:      st,
		emitter:    e,
	}

	// Prologue: entered by a jump from the trampoline, so only the
	// branch scratch needs establishing.
	e.Emit(func(s *State) {
		s.branchTaken = false
		s.branchTarget = 0
	})

	var cycles uint32
	skip, exited := false, false
	cpc := pc
	for i, o := range list {
		// Skipped slots and NOPs still cost their cycles.
		cycles += op.Cycles(o)
		switch {
		case skip:
			skip = false
		case o.IsNop():
		default:
			ctx := &recCtx{st: st, e: e, b: b, idx: i, pc: cpc, o: o}
			if recOpcode(ctx) == recSkipDelaySlot {
				skip = true
				exited = true
			}
			if o.EndsBlock() && !o.HasDelaySlot() {
				exited = true
			}
		}
		cpc += 4
	}
	b.CycleCount = cycles

	if !exited {
		end := cpc
		e.EmitExit(func(s *State) {
			s.NextPC = end
			s.ExitCycles = b.CycleCount
		})
	}

	b.Function = e.Finalize()
	return b, nil
}
