/*
 * Lightrec - Generated address lookup
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

// genAddressLookup builds the fast resolve routine emitted code uses for
// plain memory. It scans the map from the last entry down so hot regions
// can be placed late, skips MMIO entries, and reports a miss instead of
// dispatching callbacks. A miss does not call the segfault handler; the
// load/store emitter then falls back to the RW dispatcher, which segfaults
// at run time.
func genAddressLookup(st *State) lookupFunc {
	maps := st.maps
	return func(addr uint32) ([]byte, uint32, bool) {
		kaddr := Kunseg(addr)
		for i := len(maps) - 1; i >= 0; i-- {
			r := &maps[i]
			if r.Ops != nil {
				continue
			}
			if kaddr >= r.Base && kaddr-r.Base < r.Length {
				return r.Host, kaddr - r.Base, true
			}
		}
		return nil, 0, false
	}
}
