/*
 * Lightrec - Memory layout file parser
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

package mapfile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/SoriDon/lightrec/emu/cpu"
)

/* Layout file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <name> <base> <length> [<image-file>]
 * <base>, <length> ::= hex number, optional 0x prefix
 *
 * Each line allocates one plain memory region. An image file is loaded at
 * the start of the region and must fit.
 */

// Entry is one parsed layout line.
type Entry struct {
	Name  string // Region name, informational only.
	Base  uint32 // Guest base address, unsegmented.
	Size  uint32 // Length in bytes.
	Image string // Optional file loaded at Base.
}

// Load parses a layout file and allocates the regions it describes.
func Load(name string) ([]cpu.Region, []Entry, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var regions []cpu.Region
	var entries []Entry

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 || len(fields) > 4 {
			return nil, nil, fmt.Errorf("%s:%d: want <name> <base> <length> [image]", name, lineNum)
		}

		base, err := parseHex(fields[1])
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: bad base: %s", name, lineNum, fields[1])
		}
		size, err := parseHex(fields[2])
		if err != nil || size == 0 {
			return nil, nil, fmt.Errorf("%s:%d: bad length: %s", name, lineNum, fields[2])
		}

		ent := Entry{Name: fields[0], Base: base, Size: size}
		host := make([]byte, size)
		if len(fields) == 4 {
			ent.Image = fields[3]
			image, err := os.ReadFile(ent.Image)
			if err != nil {
				return nil, nil, fmt.Errorf("%s:%d: %s", name, lineNum, err.Error())
			}
			if len(image) > len(host) {
				return nil, nil, fmt.Errorf("%s:%d: image larger than region", name, lineNum)
			}
			copy(host, image)
		}

		entries = append(entries, ent)
		regions = append(regions, cpu.Region{Base: base, Length: size, Host: host})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return regions, entries, nil
}

func parseHex(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}
