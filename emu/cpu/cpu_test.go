/*
 * Lightrec - Test helpers
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
	"testing"

	op "github.com/SoriDon/lightrec/emu/opcode"
)

const testRAMSize = 64 * 1024

// Instruction encoders.
func iType(opc, rs, rt, imm uint32) uint32 {
	return opc<<26 | rs<<21 | rt<<16 | imm&0xffff
}

func rType(fn, rs, rt, rd, sh uint32) uint32 {
	return rs<<21 | rt<<16 | rd<<11 | sh<<6 | fn
}

func jType(opc, target uint32) uint32 {
	return opc<<26 | target>>2&0x03ffffff
}

// testState maps one RAM region at guest zero and copies the program to
// its start.
func testState(t *testing.T, program []uint32) (*State, []byte) {
	t.Helper()
	ram := make([]byte, testRAMSize)
	for i, w := range program {
		binary.LittleEndian.PutUint32(ram[i*4:], w)
	}
	st, err := New("test", []Region{{Base: 0, Length: testRAMSize, Host: ram}}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return st, ram
}

func memOp(opc, rs, rt, imm uint32) op.Opcode {
	return op.Opcode(iType(opc, rs, rt, imm))
}

func getWord(ram []byte, off uint32) uint32 {
	return binary.LittleEndian.Uint32(ram[off:])
}

func putWord(ram []byte, off uint32, v uint32) {
	binary.LittleEndian.PutUint32(ram[off:], v)
}
