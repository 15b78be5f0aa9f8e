/*
 * Lightrec - Instruction cycle table
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

// Per instruction cost on an R3000 class pipeline. The base cost covers one
// fetch plus execute; multiply and divide stall the pipeline for their full
// latency.
const (
	baseCycles uint32 = 4
	multCycles uint32 = 4 * 12
	divCycles  uint32 = 4 * 35
)

// Cycles returns the cycle cost charged for op. NOPs and skipped delay
// slots are charged like any other instruction.
func Cycles(op Opcode) uint32 {
	if op.Op() == OpSpecial {
		switch op.Fn() {
		case SpMult, SpMultu:
			return multCycles
		case SpDiv, SpDivu:
			return divCycles
		}
	}
	return baseCycles
}
