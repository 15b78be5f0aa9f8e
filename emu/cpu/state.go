/*
 * Lightrec - Recompiler state and guest memory map
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
	"errors"
	"log/slog"

	op "github.com/SoriDon/lightrec/emu/opcode"
)

// Exit flags left on the state when a block returns to the executor.
const (
	ExitNormal   uint32 = 0
	ExitSegfault uint32 = 1 << 0
	ExitSyscall  uint32 = 1 << 1
	ExitBreak    uint32 = 1 << 2
)

// MMIOOps serves a map region through callbacks instead of backing memory.
// Load callbacks return zero extended values; the load/store engine applies
// sign extension for lb and lh.
type MMIOOps struct {
	SB func(st *State, o op.Opcode, addr uint32, data uint8)
	SH func(st *State, o op.Opcode, addr uint32, data uint16)
	SW func(st *State, o op.Opcode, addr uint32, data uint32)
	LB func(st *State, o op.Opcode, addr uint32) uint8
	LH func(st *State, o op.Opcode, addr uint32) uint16
	LW func(st *State, o op.Opcode, addr uint32) uint32
}

// CopOps dispatches coprocessor instructions. The core never interprets
// coprocessor state; it only forwards. Any nil callback turns the
// instruction into a no-op.
type CopOps struct {
	Mfc func(st *State, cop uint32, o op.Opcode) uint32
	Mtc func(st *State, cop uint32, o op.Opcode, data uint32)
	Op  func(st *State, cop uint32, o op.Opcode)
}

// Region is one entry of the guest memory map. Entries are immutable after
// New.
type Region struct {
	Base   uint32   // Guest base address, after unsegmenting for plain memory.
	Length uint32   // Region length in bytes.
	Host   []byte   // Backing memory. nil for MMIO regions.
	Ops    *MMIOOps // Non nil routes all accesses through callbacks.
}

// RWFunc is the load/store dispatcher emitted code calls through.
type RWFunc func(st *State, o op.Opcode, base uint32, data uint32) uint32

// lookupFunc resolves a guest address to backing memory for the direct
// path. Generated once at init, see lookup.go.
type lookupFunc func(addr uint32) ([]byte, uint32, bool)

// State is the whole recompiler: guest register file, memory map, block
// cache and the generated entry points. One per embedding; never copied
// after New.
type State struct {
	Regs       [32]uint32 // Guest register file.
	Hi, Lo     uint32     // Multiply/divide results.
	NextPC     uint32     // Guest PC to resume at after the current block.
	Stop       bool       // Set by faults and callbacks; executor observes on return.
	ExitFlags  uint32     // Why the last block exited.
	ExitCycles uint32     // Cycles charged by the last block.
	Cycles     uint32     // Running cycle total, accumulated by the executor.
	Current    *Block     // Block being executed.

	RW RWFunc // Load/store dispatcher used by emitted code.

	ident  string
	maps   []Region
	cache  *BlockCache
	regs   *regCache
	tramp  *trampoline
	lookup lookupFunc
	cops   *CopOps

	// Branch scratch used by emitted code between a branch and its
	// folded delay slot.
	branchTaken  bool
	branchTarget uint32
}

// Kunseg strips the kseg0/kseg1 mirror bits of a guest address.
func Kunseg(addr uint32) uint32 {
	if addr >= 0xa0000000 {
		return addr - 0xa0000000
	}
	if addr >= 0x80000000 {
		return addr - 0x80000000
	}
	return addr
}

// Resolve finds the map entry containing addr. MMIO entries match on the
// raw address so callbacks may tell the kernel mirrors apart; plain memory
// matches on the unsegmented address. First hit in init order wins.
func (st *State) Resolve(addr uint32) (*Region, uint32, bool) {
	kaddr := Kunseg(addr)
	for i := range st.maps {
		r := &st.maps[i]
		a := kaddr
		if r.Ops != nil {
			a = addr
		}
		if a >= r.Base && a-r.Base < r.Length {
			return r, a - r.Base, true
		}
	}
	return nil, 0, false
}

// New builds a recompiler state for the given memory map. The map slice is
// referenced, not copied; the caller must not change it afterwards. cops
// may be nil if the guest code uses no coprocessor instructions.
func New(ident string, maps []Region, cops *CopOps) (*State, error) {
	if len(maps) == 0 {
		return nil, errors.New("lightrec: empty memory map")
	}
	for i := range maps {
		r := &maps[i]
		if r.Ops == nil && uint32(len(r.Host)) < r.Length {
			return nil, errors.New("lightrec: region backing smaller than its length")
		}
		if r.Ops != nil {
			continue
		}
		for j := range maps[:i] {
			p := &maps[j]
			if p.Ops != nil {
				continue
			}
			if r.Base < p.Base+p.Length && p.Base < r.Base+r.Length {
				return nil, errors.New("lightrec: overlapping memory regions")
			}
		}
	}

	st := &State{
		ident: ident,
		maps:  maps,
		cops:  cops,
	}
	st.RW = rw
	st.cache = NewBlockCache(st)
	st.regs = newRegCache()
	st.tramp = newTrampoline(st)
	st.lookup = genAddressLookup(st)

	slog.Debug("lightrec: state initialized", "ident", ident, "regions", len(maps))
	return st, nil
}

// Close frees every compiled block and the generated entry points.
func (st *State) Close() {
	if st.cache != nil {
		st.cache.Free()
		st.cache = nil
	}
	st.regs = nil
	st.tramp = nil
	st.lookup = nil
}

// segfault records a guest access outside the memory map. Emitted code is
// never unwound; the block runs to its exit and the executor observes Stop.
func (st *State) segfault(addr uint32) {
	st.Stop = true
	st.ExitFlags |= ExitSegfault
	slog.Warn("lightrec: segfault", "addr", hex32(addr))
}
