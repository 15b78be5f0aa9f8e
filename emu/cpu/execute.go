/*
 * Lightrec - Executor
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
	"log/slog"
)

// Execute runs the block at pc, compiling and registering it on a cache
// miss, and returns the guest PC to resume at. A failed compile returns pc
// unchanged; callers distinguish progress by the PC not moving.
func (st *State) Execute(pc uint32) uint32 {
	block := st.cache.Find(pc)
	if block == nil {
		var err error
		block, err = st.Recompile(pc)
		if err != nil {
			slog.Error("lightrec: recompile failed", "pc", hex32(pc), "err", err.Error())
			return pc
		}
		if err := st.cache.Register(block); err != nil {
			slog.Error("lightrec: register failed", "pc", hex32(pc), "err", err.Error())
			block.Free()
			return pc
		}
	}

	st.ExitFlags = ExitNormal
	st.ExitCycles = 0
	st.Current = block

	st.tramp.enter(block)

	st.Cycles += st.ExitCycles
	return st.NextPC
}

// Cache exposes the block cache for staleness management by the embedder.
func (st *State) Cache() *BlockCache {
	return st.cache
}
