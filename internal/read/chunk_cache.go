package read

import (
	"container/list"
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ChunkCache is an LRU over raw chunk bytes keyed by (fileID, chunk
// offset), shareable across readers. A single mutex guards all access;
// Get returns a copy so callers never hold cache memory outside the lock.
type ChunkCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[uint64]*list.Element
}

type cacheEntry struct {
	fileID uuid.UUID
	offset int64
	data   []byte
}

// NewChunkCache creates a cache holding up to capacity chunks.
func NewChunkCache(capacity int) *ChunkCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ChunkCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[uint64]*list.Element, capacity),
	}
}

func cacheKey(fileID uuid.UUID, offset int64) uint64 {
	var buf [24]byte
	copy(buf[:16], fileID[:])
	binary.LittleEndian.PutUint64(buf[16:], uint64(offset))
	return xxhash.Sum64(buf[:])
}

// Get returns a copy of the cached chunk bytes, or nil on miss.
func (c *ChunkCache) Get(fileID uuid.UUID, offset int64) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[cacheKey(fileID, offset)]
	if !ok {
		return nil
	}
	e := el.Value.(*cacheEntry)
	if e.fileID != fileID || e.offset != offset {
		// a hash collision shadows the key; treat as a miss
		return nil
	}
	c.order.MoveToFront(el)
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out
}

// Put stores a copy of the chunk bytes, evicting the least recently used
// entry when full.
func (c *ChunkCache) Put(fileID uuid.UUID, offset int64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(fileID, offset)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.data = append(e.data[:0], data...)
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		e := oldest.Value.(*cacheEntry)
		delete(c.entries, cacheKey(e.fileID, e.offset))
		c.order.Remove(oldest)
	}
	e := &cacheEntry{fileID: fileID, offset: offset, data: append([]byte(nil), data...)}
	c.entries[key] = c.order.PushFront(e)
}

// Len returns the number of cached chunks.
func (c *ChunkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
