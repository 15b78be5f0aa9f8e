/*
 * Lightrec - Code emission backend
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

// Function is the entry point of one compiled block. It runs to the block
// exit and transfers back to the trampoline by returning.
type Function func(st *State)

// A step is one emitted unit of native code. Its return value selects the
// continuation: stepNext falls through, stepExit leaves the block, any
// other value is an absolute jump target inside the block.
type step func(st *State) int

const (
	stepNext = -1
	stepExit = -2
)

// Emitter buffers the code of one block under construction. One handle per
// block; the block owns it and frees it.
type Emitter struct {
	steps []step
}

func newEmitter() *Emitter {
	return &Emitter{steps: make([]step, 0, 32)}
}

// Emit appends a straight line instruction.
func (e *Emitter) Emit(fn func(st *State)) {
	e.steps = append(e.steps, func(st *State) int {
		fn(st)
		return stepNext
	})
}

// EmitExit appends an instruction followed by a jump to the trampoline
// exit.
func (e *Emitter) EmitExit(fn func(st *State)) {
	e.steps = append(e.steps, func(st *State) int {
		fn(st)
		return stepExit
	})
}

// EmitJumpIf appends a forward conditional branch and returns its patch
// cell. Until patched the branch falls through to the block exit.
func (e *Emitter) EmitJumpIf(cond func(st *State) bool) *int {
	target := new(int)
	*target = stepExit
	e.steps = append(e.steps, func(st *State) int {
		if cond(st) {
			return *target
		}
		return stepNext
	})
	return target
}

// Label returns the position the next emitted instruction will take.
func (e *Emitter) Label() int {
	return len(e.steps)
}

// Patch points a branch previously emitted by EmitJumpIf at label.
func (e *Emitter) Patch(target *int, label int) {
	*target = label
}

// Finalize fuses the buffered steps into the block entry function. No
// further emission is allowed on the handle.
func (e *Emitter) Finalize() Function {
	steps := e.steps
	return func(st *State) {
		for i := 0; i >= 0 && i < len(steps); {
			switch n := steps[i](st); n {
			case stepNext:
				i++
			case stepExit:
				return
			default:
				i = n
			}
		}
	}
}

// Free releases the code buffer. The entry function of a finalized handle
// keeps the fused steps alive until the block itself is freed.
func (e *Emitter) Free() {
	e.steps = nil
}
