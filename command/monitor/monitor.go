/*
 * Lightrec - Interactive monitor
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

package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/SoriDon/lightrec/emu/cpu"
	"github.com/SoriDon/lightrec/emu/disassemble"
)

type cmd struct {
	name    string // Command name.
	min     int    // Minimum match size.
	process func(*monitor, []string) (bool, error)
}

type monitor struct {
	st *cpu.State
	pc uint32
}

var cmdList = []cmd{
	{name: "step", min: 2, process: step},
	{name: "go", min: 1, process: run},
	{name: "regs", min: 1, process: regs},
	{name: "mem", min: 1, process: mem},
	{name: "list", min: 1, process: list},
	{name: "blocks", min: 1, process: blocks},
	{name: "quit", min: 1, process: quit},
}

// Run drives the recompiler from an interactive prompt, starting at pc.
func Run(st *cpu.State, pc uint32) {
	mon := &monitor{st: st, pc: pc}

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(line string) []string {
		var match []string
		for _, c := range cmdList {
			if strings.HasPrefix(c.name, line) {
				match = append(match, c.name)
			}
		}
		return match
	})

	for {
		command, err := line.Prompt("lightrec> ")
		if err == nil {
			line.AppendHistory(command)
			done, err := mon.process(command)
			if err != nil {
				fmt.Println("Error: " + err.Error())
			}
			if done {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("error reading line: " + err.Error())
		return
	}
}

// Execute the command line given.
func (mon *monitor) process(commandLine string) (bool, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return false, nil
	}

	var match *cmd
	for i := range cmdList {
		c := &cmdList[i]
		if len(fields[0]) >= c.min && strings.HasPrefix(c.name, fields[0]) {
			if match != nil {
				return false, errors.New("unique command not found: " + fields[0])
			}
			match = c
		}
	}
	if match == nil {
		return false, errors.New("command not found: " + fields[0])
	}
	return match.process(mon, fields[1:])
}

// Run a number of blocks, default one.
func step(mon *monitor, args []string) (bool, error) {
	count := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return false, errors.New("bad count: " + args[0])
		}
		count = n
	}

	for i := 0; i < count; i++ {
		next := mon.st.Execute(mon.pc)
		if next == mon.pc && mon.st.Current == nil {
			return false, errors.New("no block at " + fmtAddr(mon.pc))
		}
		mon.pc = next
		fmt.Printf("pc=%08x cycles=%d flags=%x\n", mon.pc, mon.st.Cycles, mon.st.ExitFlags)
		if mon.st.Stop {
			fmt.Println("stopped")
			break
		}
	}
	return false, nil
}

// Run until the guest stops.
func run(mon *monitor, _ []string) (bool, error) {
	for !mon.st.Stop {
		next := mon.st.Execute(mon.pc)
		if next == mon.pc && mon.st.Stop {
			break
		}
		if next == mon.pc && mon.st.ExitFlags == cpu.ExitNormal && mon.st.Current == nil {
			return false, errors.New("no block at " + fmtAddr(mon.pc))
		}
		mon.pc = next
	}
	fmt.Printf("stopped at pc=%08x flags=%x\n", mon.pc, mon.st.ExitFlags)
	return false, nil
}

func regs(mon *monitor, _ []string) (bool, error) {
	for i := 0; i < 32; i += 4 {
		fmt.Printf("r%-2d %08x  r%-2d %08x  r%-2d %08x  r%-2d %08x\n",
			i, mon.st.Regs[i], i+1, mon.st.Regs[i+1],
			i+2, mon.st.Regs[i+2], i+3, mon.st.Regs[i+3])
	}
	fmt.Printf("hi  %08x  lo  %08x  pc  %08x\n", mon.st.Hi, mon.st.Lo, mon.pc)
	return false, nil
}

// Dump guest memory: mem <addr> [words].
func mem(mon *monitor, args []string) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("mem <addr> [words]")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return false, err
	}
	words := 8
	if len(args) > 1 {
		if words, err = strconv.Atoi(args[1]); err != nil || words <= 0 {
			return false, errors.New("bad count: " + args[1])
		}
	}

	for i := 0; i < words; i++ {
		a := addr + uint32(i*4)
		region, off, ok := mon.st.Resolve(a)
		if !ok || region.Ops != nil || int(off)+4 > len(region.Host) {
			fmt.Printf("%08x: ********\n", a)
			continue
		}
		v := uint32(region.Host[off]) | uint32(region.Host[off+1])<<8 |
			uint32(region.Host[off+2])<<16 | uint32(region.Host[off+3])<<24
		fmt.Printf("%08x: %08x\n", a, v)
	}
	return false, nil
}

// Disassemble guest code: list [addr] [count].
func list(mon *monitor, args []string) (bool, error) {
	addr := mon.pc
	var err error
	if len(args) > 0 {
		if addr, err = parseAddr(args[0]); err != nil {
			return false, err
		}
	}
	count := 8
	if len(args) > 1 {
		if count, err = strconv.Atoi(args[1]); err != nil || count <= 0 {
			return false, errors.New("bad count: " + args[1])
		}
	}

	region, off, ok := mon.st.Resolve(addr)
	if !ok || region.Ops != nil {
		return false, errors.New("no code at " + fmtAddr(addr))
	}
	words := disassemble.Disassemble(region.Host[off:])
	for i, w := range words {
		if i >= count {
			break
		}
		pc := addr + uint32(i*4)
		fmt.Printf("%08x: %08x  %s\n", pc, uint32(w), disassemble.String(w, pc))
	}
	return false, nil
}

func blocks(mon *monitor, _ []string) (bool, error) {
	fmt.Printf("%d blocks cached\n", mon.st.Cache().Len())
	return false, nil
}

func quit(_ *monitor, _ []string) (bool, error) {
	return true, nil
}

func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, errors.New("bad address: " + s)
	}
	return uint32(v), nil
}

func fmtAddr(a uint32) string {
	return fmt.Sprintf("%08x", a)
}
