/*
 * Lightrec - Main process.
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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	monitor "github.com/SoriDon/lightrec/command/monitor"
	mapfile "github.com/SoriDon/lightrec/config/mapfile"
	cpu "github.com/SoriDon/lightrec/emu/cpu"
	opcode "github.com/SoriDon/lightrec/emu/opcode"
	logger "github.com/SoriDon/lightrec/util/logger"
)

const (
	ramSize    = 2 * 1024 * 1024
	scratchPad = 0x1f800000
	console    = 0x1f801000
)

func main() {
	optBinary := getopt.StringLong("binary", 'b', "", "Flat binary to load")
	optEntry := getopt.StringLong("entry", 'e', "80000000", "Entry PC (hex)")
	optMap := getopt.StringLong("map", 'm', "", "Memory layout file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Mirror debug records to stderr")
	optMonitor := getopt.BoolLong("monitor", 'i', "Interactive monitor")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logWriter io.Writer
	if *optLogFile != "" {
		if file, err := os.Create(*optLogFile); err == nil {
			logWriter = file
		}
	}
	logger.Setup(logWriter, *optDebug)

	slog.Info("Lightrec started")

	entry, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(*optEntry), "0x"), 16, 32)
	if err != nil {
		slog.Error("Bad entry address: " + *optEntry)
		os.Exit(1)
	}

	regions, err := buildMap(*optMap)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	st, err := cpu.New(os.Args[0], regions, nil)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	defer st.Close()

	if *optBinary != "" {
		if err := loadBinary(st, *optBinary, uint32(entry)); err != nil {
			slog.Error(err.Error())
			os.Exit(1)
		}
	}

	pc := uint32(entry)
	if *optMonitor {
		monitor.Run(st, pc)
	} else {
		for !st.Stop {
			next := st.Execute(pc)
			if next == pc && !st.Stop {
				slog.Error("No progress, stopping", "pc", fmt.Sprintf("0x%08x", pc))
				break
			}
			pc = next
		}
	}

	slog.Info("Lightrec stopped",
		"pc", fmt.Sprintf("0x%08x", pc),
		"flags", fmt.Sprintf("0x%x", st.ExitFlags),
		"cycles", strconv.FormatUint(uint64(st.Cycles), 10))
}

// buildMap reads the layout file, or sets up the default machine: main RAM
// at zero, a scratch pad, and a console device. The console is always
// appended so guest programs have somewhere to print.
func buildMap(name string) ([]cpu.Region, error) {
	var regions []cpu.Region
	if name != "" {
		var err error
		regions, _, err = mapfile.Load(name)
		if err != nil {
			return nil, err
		}
	} else {
		regions = []cpu.Region{
			{Base: 0, Length: ramSize, Host: make([]byte, ramSize)},
			{Base: scratchPad, Length: 0x400, Host: make([]byte, 0x400)},
		}
	}

	regions = append(regions, cpu.Region{
		Base:   console,
		Length: 0x10,
		Ops:    consoleOps(),
	})
	return regions, nil
}

// consoleOps writes any byte stored to the device, and the low byte of any
// word stored to it, to stdout. A word store of the all ones value stops
// the guest.
func consoleOps() *cpu.MMIOOps {
	return &cpu.MMIOOps{
		SB: func(_ *cpu.State, _ opcode.Opcode, _ uint32, data uint8) {
			os.Stdout.Write([]byte{data})
		},
		SW: func(st *cpu.State, _ opcode.Opcode, _ uint32, data uint32) {
			if data == 0xffffffff {
				st.Stop = true
				return
			}
			os.Stdout.Write([]byte{uint8(data)})
		},
	}
}

// loadBinary copies a flat binary into mapped memory at the entry address.
func loadBinary(st *cpu.State, name string, entry uint32) error {
	image, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	region, offset, ok := st.Resolve(entry)
	if !ok || region.Ops != nil {
		return fmt.Errorf("entry 0x%08x is not in mapped memory", entry)
	}
	if int(offset)+len(image) > len(region.Host) {
		return fmt.Errorf("binary does not fit at 0x%08x", entry)
	}
	copy(region.Host[offset:], image)
	slog.Info("Loaded binary", "file", name, "bytes", strconv.Itoa(len(image)))
	return nil
}
