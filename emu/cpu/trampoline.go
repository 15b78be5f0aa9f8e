/*
 * Lightrec - Entry and exit wrapper
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

// trampoline is the single boundary every block entry and exit crosses.
// Generated once at init. Entry pins the state for the duration of the
// block; the exit of every compiled block transfers back here, so blocks
// never return on their own.
type trampoline struct {
	enter func(b *Block)
}

func newTrampoline(st *State) *trampoline {
	t := &trampoline{}
	t.enter = func(b *Block) {
		// Establish the conventions emitted code relies on: the
		// branch scratch is clean and the state is the one the block
		// was compiled against.
		st.branchTaken = false
		st.branchTarget = 0
		b.Function(st)
	}
	return t
}
