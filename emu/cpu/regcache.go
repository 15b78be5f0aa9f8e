/*
 * Lightrec - Register cache
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

// regCache tracks, during emission of one block, which guest registers
// hold values known at compile time. Known values feed the direct memory
// fast path for loads and stores. r0 is pinned to zero.
type regCache struct {
	known [32]bool
	value [32]uint32
}

func newRegCache() *regCache {
	rc := &regCache{}
	rc.known[0] = true
	return rc
}

// Reset drops everything tracked so no state leaks between blocks.
func (rc *regCache) Reset() {
	for i := 1; i < 32; i++ {
		rc.known[i] = false
		rc.value[i] = 0
	}
}

// get returns the compile time value of reg, if known.
func (rc *regCache) get(reg uint32) (uint32, bool) {
	return rc.value[reg], rc.known[reg]
}

// set records the value reg will hold when the emitted instruction runs.
// Writes to r0 are discarded by the guest and stay pinned here.
func (rc *regCache) set(reg uint32, v uint32) {
	if reg == 0 {
		return
	}
	rc.known[reg] = true
	rc.value[reg] = v
}

// invalidate marks reg as holding a runtime value.
func (rc *regCache) invalidate(reg uint32) {
	if reg == 0 {
		return
	}
	rc.known[reg] = false
	rc.value[reg] = 0
}
