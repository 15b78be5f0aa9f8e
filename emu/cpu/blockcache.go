/*
 * Lightrec - Block cache
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
	"fmt"
	"hash/fnv"
)

// BlockCache memoises compiled blocks by the guest PC they were compiled
// at. It owns every registered block.
type BlockCache struct {
	st     *State
	blocks map[uint32]*Block
}

func NewBlockCache(st *State) *BlockCache {
	return &BlockCache{
		st:     st,
		blocks: make(map[uint32]*Block),
	}
}

// Find returns the block compiled at pc, or nil.
func (c *BlockCache) Find(pc uint32) *Block {
	return c.blocks[pc]
}

// Register inserts a block and stores its staleness hash. A PC can hold
// only one block at a time.
func (c *BlockCache) Register(b *Block) error {
	if _, ok := c.blocks[b.PC]; ok {
		return fmt.Errorf("lightrec: block already registered at %s", hex32(b.PC))
	}
	b.hash = CalculateHash(b)
	c.blocks[b.PC] = b
	return nil
}

// Unregister removes a block without freeing it.
func (c *BlockCache) Unregister(b *Block) {
	delete(c.blocks, b.PC)
}

// Free releases every registered block.
func (c *BlockCache) Free() {
	for pc, b := range c.blocks {
		b.Free()
		delete(c.blocks, pc)
	}
}

// Len reports the number of registered blocks.
func (c *BlockCache) Len() int {
	return len(c.blocks)
}

// CalculateHash hashes the guest code words a block covers. FNV-1a; stable
// within a process, which is all staleness checking needs.
func CalculateHash(b *Block) uint32 {
	h := fnv.New32a()
	h.Write(b.Code[:4*len(b.OpcodeList)])
	return h.Sum32()
}

// IsOutdated reports whether the covered guest code changed since the
// block was registered.
func IsOutdated(b *Block) bool {
	return CalculateHash(b) != b.hash
}
