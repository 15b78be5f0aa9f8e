/*
 * Lightrec - Layout file parser tests
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
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestLoadLayout(t *testing.T) {
	image := writeFile(t, "boot.bin", "\x01\x02\x03\x04")
	layout := writeFile(t, "machine.map", ""+
		"# main memory\n"+
		"ram  0x0       200000\n"+
		"\n"+
		"bios 1fc00000  0x1000 "+image+"  # boot image\n")

	regions, entries, err := Load(layout)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(regions) != 2 || len(entries) != 2 {
		t.Fatalf("entry count not correct got: %d expected: 2", len(regions))
	}

	if entries[0].Name != "ram" || entries[0].Base != 0 || entries[0].Size != 0x200000 {
		t.Errorf("ram entry not correct got: %+v", entries[0])
	}
	if regions[0].Length != 0x200000 || len(regions[0].Host) != 0x200000 {
		t.Errorf("ram region not correct got: %x/%d", regions[0].Length, len(regions[0].Host))
	}

	if entries[1].Base != 0x1fc00000 || entries[1].Image == "" {
		t.Errorf("bios entry not correct got: %+v", entries[1])
	}
	if string(regions[1].Host[:4]) != "\x01\x02\x03\x04" {
		t.Errorf("bios image not loaded got: % x", regions[1].Host[:4])
	}
	if regions[1].Host[4] != 0 {
		t.Errorf("bios padding not zero")
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"fields", "ram 0x0\n"},
		{"base", "ram xyz 100\n"},
		{"length", "ram 0 0\n"},
		{"image", "ram 0 100 /definitely/not/there\n"},
	}
	for _, c := range cases {
		path := writeFile(t, c.name+".map", c.content)
		if _, _, err := Load(path); err == nil {
			t.Errorf("%s: bad layout accepted", c.name)
		}
	}

	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.map")); err == nil {
		t.Errorf("missing file accepted")
	}
}
