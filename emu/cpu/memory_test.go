/*
 * Lightrec - Memory map and load/store engine tests
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

func TestKunseg(t *testing.T) {
	cases := []struct {
		addr uint32
		want uint32
	}{
		{0x00000000, 0x00000000},
		{0x00001234, 0x00001234},
		{0x7fffffff, 0x7fffffff},
		{0x80000000, 0x00000000},
		{0x80001234, 0x00001234},
		{0xa0000000, 0x00000000},
		{0xa0001234, 0x00001234},
		{0xbfc00000, 0x1fc00000},
	}
	for _, c := range cases {
		if r := Kunseg(c.addr); r != c.want {
			t.Errorf("Kunseg(%08x) not correct got: %08x expected: %08x", c.addr, r, c.want)
		}
	}
}

func TestResolveBoundary(t *testing.T) {
	st, _ := testState(t, nil)
	defer st.Close()

	if _, _, ok := st.Resolve(testRAMSize - 1); !ok {
		t.Errorf("Resolve at last byte of region missed")
	}
	if _, _, ok := st.Resolve(testRAMSize); ok {
		t.Errorf("Resolve one past region hit")
	}
	if _, off, ok := st.Resolve(0x80000010); !ok || off != 0x10 {
		t.Errorf("Resolve kseg0 not correct got: %x, %v expected: 10, true", off, ok)
	}
	if _, off, ok := st.Resolve(0xa0000010); !ok || off != 0x10 {
		t.Errorf("Resolve kseg1 not correct got: %x, %v expected: 10, true", off, ok)
	}
}

// MMIO entries match the raw address, plain memory the unsegmented one.
func TestResolveMMIOAsymmetry(t *testing.T) {
	ram := make([]byte, 0x1000)
	ops := &MMIOOps{}
	st, err := New("test", []Region{
		{Base: 0x1f801000, Length: 0x10, Ops: ops},
		{Base: 0, Length: 0x1000, Host: ram},
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer st.Close()

	if r, _, ok := st.Resolve(0x1f801004); !ok || r.Ops != ops {
		t.Errorf("raw MMIO address did not hit the MMIO entry")
	}
	// The kseg1 mirror of the device does not unsegment onto the entry.
	if _, _, ok := st.Resolve(0xbf801004); ok {
		t.Errorf("mirrored MMIO address resolved, expected miss")
	}
	if r, _, ok := st.Resolve(0x80000008); !ok || r.Host == nil {
		t.Errorf("mirrored plain address did not hit RAM")
	}
}

func TestRWBytes(t *testing.T) {
	st, ram := testState(t, nil)
	defer st.Close()

	st.Regs[8] = 0x100
	rw(st, memOp(op.OpSb, 8, 0, 1), st.Regs[8], 0xab)
	if ram[0x101] != 0xab {
		t.Errorf("SB not correct got: %02x expected: ab", ram[0x101])
	}
	if ram[0x100] != 0 || ram[0x102] != 0 {
		t.Errorf("SB modified neighbour bytes")
	}

	ram[0x104] = 0xff
	if r := rw(st, memOp(op.OpLb, 8, 0, 4), st.Regs[8], 0); r != 0xffffffff {
		t.Errorf("LB not correct got: %08x expected: ffffffff", r)
	}
	if r := rw(st, memOp(op.OpLbu, 8, 0, 4), st.Regs[8], 0); r != 0x000000ff {
		t.Errorf("LBU not correct got: %08x expected: 000000ff", r)
	}
}

func TestRWHalfAndWord(t *testing.T) {
	st, ram := testState(t, nil)
	defer st.Close()

	rw(st, memOp(op.OpSh, 0, 0, 0x200), 0, 0x8765)
	if r := getWord(ram, 0x200); r != 0x8765 {
		t.Errorf("SH not correct got: %08x expected: 00008765", r)
	}
	if r := rw(st, memOp(op.OpLh, 0, 0, 0x200), 0, 0); r != 0xffff8765 {
		t.Errorf("LH not correct got: %08x expected: ffff8765", r)
	}
	if r := rw(st, memOp(op.OpLhu, 0, 0, 0x200), 0, 0); r != 0x8765 {
		t.Errorf("LHU not correct got: %08x expected: 00008765", r)
	}

	rw(st, memOp(op.OpSw, 0, 0, 0x204), 0, 0xdeadbeef)
	if r := rw(st, memOp(op.OpLw, 0, 0, 0x204), 0, 0); r != 0xdeadbeef {
		t.Errorf("LW not correct got: %08x expected: deadbeef", r)
	}
}

// Negative displacements and kernel mirrors reach the same bytes.
func TestRWMirrorsAndDisplacement(t *testing.T) {
	st, ram := testState(t, nil)
	defer st.Close()

	rw(st, memOp(op.OpSb, 8, 0, 0), 0xa0000010, 0x5a)
	if ram[0x10] != 0x5a {
		t.Errorf("store via kseg1 not correct got: %02x expected: 5a", ram[0x10])
	}
	if r := rw(st, memOp(op.OpLbu, 8, 0, 0), 0x80000010, 0); r != 0x5a {
		t.Errorf("load via kseg0 not correct got: %02x expected: 5a", r)
	}

	// imm is sign extended: base 0x20, imm -16.
	rw(st, memOp(op.OpSb, 8, 0, 0xfff0), 0x20, 0x77)
	if ram[0x10] != 0x77 {
		t.Errorf("negative displacement not correct got: %02x expected: 77", ram[0x10])
	}
}

func TestRWUnalignedStoreMasks(t *testing.T) {
	st, ram := testState(t, nil)
	defer st.Close()

	putWord(ram, 0, 0xaabbccdd)
	rw(st, memOp(op.OpSwl, 0, 0, 1), 0, 0x11223344)
	if r := getWord(ram, 0); r != 0xaabb1122 {
		t.Errorf("SWL not correct got: %08x expected: aabb1122", r)
	}
	rw(st, memOp(op.OpSwr, 0, 0, 1), 0, 0x11223344)
	if r := getWord(ram, 0); r != 0x22334422 {
		t.Errorf("SWR not correct got: %08x expected: 22334422", r)
	}
}

// usw/ulw pair: swr at the address, swl three bytes on, restores any value
// at any alignment.
func TestRWUnalignedRoundTrip(t *testing.T) {
	st, ram := testState(t, nil)
	defer st.Close()

	const v = uint32(0x11223344)
	for shift := uint32(0); shift < 4; shift++ {
		putWord(ram, 0x40, 0xdeadbeef)
		putWord(ram, 0x44, 0xcafebabe)

		addr := uint32(0x40) + shift
		rw(st, memOp(op.OpSwr, 8, 0, 0), addr, v)
		rw(st, memOp(op.OpSwl, 8, 0, 3), addr, v)

		r := rw(st, memOp(op.OpLwr, 8, 0, 0), addr, 0)
		r = rw(st, memOp(op.OpLwl, 8, 0, 3), addr, r)
		if r != v {
			t.Errorf("round trip at shift %d not correct got: %08x expected: %08x", shift, r, v)
		}
	}
}

func TestRWSegfault(t *testing.T) {
	st, _ := testState(t, nil)
	defer st.Close()

	if r := rw(st, memOp(op.OpLw, 8, 9, 0), 0xdeadbeef, 0); r != 0 {
		t.Errorf("unmapped load not correct got: %08x expected: 0", r)
	}
	if !st.Stop {
		t.Errorf("unmapped load did not set stop")
	}
	if st.ExitFlags&ExitSegfault == 0 {
		t.Errorf("unmapped load flags not correct got: %x expected segfault", st.ExitFlags)
	}
}

func TestRWMMIODispatch(t *testing.T) {
	var gotAddr uint32
	var gotData uint8
	ops := &MMIOOps{
		SB: func(_ *State, _ op.Opcode, addr uint32, data uint8) {
			gotAddr, gotData = addr, data
		},
		LB: func(_ *State, _ op.Opcode, _ uint32) uint8 {
			return 0x80
		},
	}
	st, err := New("test", []Region{
		{Base: 0x1f801000, Length: 0x10, Ops: ops},
		{Base: 0, Length: 0x1000, Host: make([]byte, 0x1000)},
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer st.Close()

	rw(st, memOp(op.OpSb, 8, 0, 4), 0x1f801000, 0x42)
	if gotAddr != 0x1f801004 || gotData != 0x42 {
		t.Errorf("MMIO SB not correct got: %08x/%02x expected: 1f801004/42", gotAddr, gotData)
	}

	// Engine sign extends lb, zero extends lbu.
	if r := rw(st, memOp(op.OpLb, 8, 0, 0), 0x1f801000, 0); r != 0xffffff80 {
		t.Errorf("MMIO LB not correct got: %08x expected: ffffff80", r)
	}
	if r := rw(st, memOp(op.OpLbu, 8, 0, 0), 0x1f801000, 0); r != 0x80 {
		t.Errorf("MMIO LBU not correct got: %08x expected: 00000080", r)
	}
}

func TestNewRejectsOverlap(t *testing.T) {
	a := make([]byte, 0x100)
	if _, err := New("test", []Region{
		{Base: 0, Length: 0x100, Host: a},
		{Base: 0x80, Length: 0x100, Host: make([]byte, 0x100)},
	}, nil); err == nil {
		t.Errorf("overlapping map accepted")
	}
	if _, err := New("test", nil, nil); err == nil {
		t.Errorf("empty map accepted")
	}
	if _, err := New("test", []Region{{Base: 0, Length: 0x200, Host: a}}, nil); err == nil {
		t.Errorf("short backing accepted")
	}
}

func TestAddressLookup(t *testing.T) {
	ram := make([]byte, 0x1000)
	st, err := New("test", []Region{
		{Base: 0x1f801000, Length: 0x10, Ops: &MMIOOps{}},
		{Base: 0, Length: 0x1000, Host: ram},
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer st.Close()

	host, off, ok := st.lookup(0x80000123)
	if !ok || off != 0x123 || &host[0] != &ram[0] {
		t.Errorf("lookup kseg0 not correct got: %x, %v", off, ok)
	}
	// MMIO never resolves on the fast path.
	if _, _, ok := st.lookup(0x1f801004); ok {
		t.Errorf("lookup resolved MMIO")
	}
	if _, _, ok := st.lookup(0xdeadbeef); ok {
		t.Errorf("lookup resolved unmapped address")
	}
}
