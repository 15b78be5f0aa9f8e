/*
 * Lightrec - Guest load/store engine
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
	"fmt"

	op "github.com/SoriDon/lightrec/emu/opcode"
)

// Little endian merge tables for the unaligned word instructions, indexed
// by kaddr & 3. swl/lwl shift by 24-8*shift, swr/lwr by 8*shift.
var (
	swlMask = [4]uint32{0xffffff00, 0xffff0000, 0xff000000, 0x00000000}
	swrMask = [4]uint32{0x00000000, 0x000000ff, 0x0000ffff, 0x00ffffff}
	lwlMask = [4]uint32{0x00ffffff, 0x0000ffff, 0x000000ff, 0x00000000}
	lwrMask = [4]uint32{0x00000000, 0xff000000, 0xffff0000, 0xffffff00}
)

// rw executes one guest memory access: addr = base + signext(imm), then
// resolve and apply the opcode's semantics. Unmapped addresses segfault and
// read as zero so emitted code can run on to its exit without branching.
func rw(st *State, o op.Opcode, base uint32, data uint32) uint32 {
	addr := base + o.SImm()
	region, offset, ok := st.Resolve(addr)
	if !ok {
		st.segfault(addr)
		return 0
	}

	if region.Ops != nil {
		return mmio(st, region.Ops, o, addr, data)
	}

	host := region.Host
	kaddr := Kunseg(addr)
	shift := kaddr & 3
	woff := offset &^ 3
	need, at := accessSize(o), offset
	if need == 0 {
		// Unaligned word forms touch the whole containing word.
		need, at = 4, woff
	}
	if int(at)+need > len(host) {
		st.segfault(addr)
		return 0
	}

	switch o.Op() {
	case op.OpSb:
		host[offset] = uint8(data)
	case op.OpSh:
		binary.LittleEndian.PutUint16(host[offset:], uint16(data))
	case op.OpSw, op.OpSwc2:
		binary.LittleEndian.PutUint32(host[offset:], data)
	case op.OpSwl:
		mem := binary.LittleEndian.Uint32(host[woff:])
		mem = mem&swlMask[shift] | data>>(24-shift*8)
		binary.LittleEndian.PutUint32(host[woff:], mem)
	case op.OpSwr:
		mem := binary.LittleEndian.Uint32(host[woff:])
		mem = mem&swrMask[shift] | data<<(shift*8)
		binary.LittleEndian.PutUint32(host[woff:], mem)
	case op.OpLb:
		return uint32(int32(int8(host[offset])))
	case op.OpLbu:
		return uint32(host[offset])
	case op.OpLh:
		return uint32(int32(int16(binary.LittleEndian.Uint16(host[offset:]))))
	case op.OpLhu:
		return uint32(binary.LittleEndian.Uint16(host[offset:]))
	case op.OpLw, op.OpLwc2:
		return binary.LittleEndian.Uint32(host[offset:])
	case op.OpLwl:
		mem := binary.LittleEndian.Uint32(host[woff:])
		return data&lwlMask[shift] | mem<<(24-shift*8)
	case op.OpLwr:
		mem := binary.LittleEndian.Uint32(host[woff:])
		return data&lwrMask[shift] | mem>>(shift*8)
	}
	return 0
}

// mmio dispatches one access through the region callbacks. Loads through a
// missing callback read as zero.
func mmio(st *State, ops *MMIOOps, o op.Opcode, addr uint32, data uint32) uint32 {
	switch o.Op() {
	case op.OpSb:
		if ops.SB != nil {
			ops.SB(st, o, addr, uint8(data))
		}
	case op.OpSh:
		if ops.SH != nil {
			ops.SH(st, o, addr, uint16(data))
		}
	case op.OpSw, op.OpSwl, op.OpSwr, op.OpSwc2:
		if ops.SW != nil {
			ops.SW(st, o, addr, data)
		}
	case op.OpLb:
		if ops.LB != nil {
			return uint32(int32(int8(ops.LB(st, o, addr))))
		}
	case op.OpLbu:
		if ops.LB != nil {
			return uint32(ops.LB(st, o, addr))
		}
	case op.OpLh:
		if ops.LH != nil {
			return uint32(int32(int16(ops.LH(st, o, addr))))
		}
	case op.OpLhu:
		if ops.LH != nil {
			return uint32(ops.LH(st, o, addr))
		}
	case op.OpLw, op.OpLwl, op.OpLwr, op.OpLwc2:
		if ops.LW != nil {
			return ops.LW(st, o, addr)
		}
	}
	return 0
}

// accessSize returns the byte width of an access, or 0 for the unaligned
// word forms.
func accessSize(o op.Opcode) int {
	switch o.Op() {
	case op.OpSb, op.OpLb, op.OpLbu:
		return 1
	case op.OpSh, op.OpLh, op.OpLhu:
		return 2
	case op.OpSw, op.OpLw, op.OpSwc2, op.OpLwc2:
		return 4
	}
	return 0
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
