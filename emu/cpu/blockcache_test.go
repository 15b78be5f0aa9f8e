/*
 * Lightrec - Block cache tests
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
	"testing"

	op "github.com/SoriDon/lightrec/emu/opcode"
)

func compileTestBlock(t *testing.T) (*State, []byte, *Block) {
	t.Helper()
	st, ram := testState(t, []uint32{
		iType(op.OpAddiu, 0, 8, 1),
		iType(op.OpAddiu, 8, 8, 2),
		jType(op.OpJ, 0x100),
		0,
	})
	block, err := st.Recompile(0x80000000)
	if err != nil {
		t.Fatalf("Recompile failed: %v", err)
	}
	return st, ram, block
}

func TestRegisterFindUnregister(t *testing.T) {
	st, _, block := compileTestBlock(t)
	defer st.Close()

	cache := st.Cache()
	if err := cache.Register(block); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if b := cache.Find(0x80000000); b != block {
		t.Errorf("Find after Register not correct got: %p expected: %p", b, block)
	}
	if err := cache.Register(block); err == nil {
		t.Errorf("duplicate Register accepted")
	}

	cache.Unregister(block)
	if b := cache.Find(0x80000000); b != nil {
		t.Errorf("Find after Unregister not correct got: %p expected: nil", b)
	}
	// Unregister does not free: the entry stays runnable.
	if block.Function == nil {
		t.Errorf("Unregister freed the block")
	}
	block.Free()
}

func TestHashDeterministic(t *testing.T) {
	st, _, block := compileTestBlock(t)
	defer st.Close()
	defer block.Free()

	h1 := CalculateHash(block)
	h2 := CalculateHash(block)
	if h1 != h2 {
		t.Errorf("hash not deterministic got: %08x and %08x", h1, h2)
	}
}

func TestIsOutdated(t *testing.T) {
	st, ram, block := compileTestBlock(t)
	defer st.Close()

	if err := st.Cache().Register(block); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if IsOutdated(block) {
		t.Errorf("fresh block reported outdated")
	}

	// Flip one byte inside the covered range.
	ram[5] ^= 0x01
	if !IsOutdated(block) {
		t.Errorf("modified block not reported outdated")
	}

	// Restore: hashes match again.
	ram[5] ^= 0x01
	if IsOutdated(block) {
		t.Errorf("restored block reported outdated")
	}
}

func TestFreeCache(t *testing.T) {
	st, _, block := compileTestBlock(t)
	defer st.Close()

	if err := st.Cache().Register(block); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	st.Cache().Free()
	if st.Cache().Len() != 0 {
		t.Errorf("cache not empty after Free got: %d", st.Cache().Len())
	}
	if block.Function != nil || block.OpcodeList != nil {
		t.Errorf("Free did not release the block")
	}
}

// Stale block flow: unregister, free, re-execute compiles new code.
func TestStaleBlockRecompile(t *testing.T) {
	st, ram, block := compileTestBlock(t)
	defer st.Close()

	if err := st.Cache().Register(block); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	st.Execute(0x80000000)
	if st.Regs[8] != 3 {
		t.Errorf("first run not correct got: %d expected: 3", st.Regs[8])
	}

	// Overwrite the second instruction: addiu r8, r8, 5.
	putWord(ram, 4, iType(op.OpAddiu, 8, 8, 5))
	if !IsOutdated(block) {
		t.Fatalf("modified block not reported outdated")
	}
	st.Cache().Unregister(block)
	block.Free()

	st.Regs[8] = 0
	st.Execute(0x80000000)
	if st.Regs[8] != 6 {
		t.Errorf("recompiled run not correct got: %d expected: 6", st.Regs[8])
	}
}
