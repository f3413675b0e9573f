package read

import (
	"bytes"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestChunkCacheHitAndMiss(t *testing.T) {
	c := NewChunkCache(4)
	id := uuid.New()

	if got := c.Get(id, 100); got != nil {
		t.Fatalf("expected miss, got %v", got)
	}
	c.Put(id, 100, []byte{1, 2, 3})
	got := c.Get(id, 100)
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("hit returned %v", got)
	}
	// the returned slice is a copy; mutating it must not poison the cache
	got[0] = 99
	if again := c.Get(id, 100); again[0] != 1 {
		t.Error("cache returned shared memory")
	}
}

func TestChunkCacheEviction(t *testing.T) {
	c := NewChunkCache(2)
	id := uuid.New()
	c.Put(id, 1, []byte{1})
	c.Put(id, 2, []byte{2})
	c.Get(id, 1) // touch 1 so 2 is the eviction candidate
	c.Put(id, 3, []byte{3})

	if c.Len() != 2 {
		t.Fatalf("len=%d", c.Len())
	}
	if c.Get(id, 2) != nil {
		t.Error("LRU entry survived eviction")
	}
	if c.Get(id, 1) == nil || c.Get(id, 3) == nil {
		t.Error("recently used entries evicted")
	}
}

func TestChunkCacheDistinctFiles(t *testing.T) {
	c := NewChunkCache(8)
	a, b := uuid.New(), uuid.New()
	c.Put(a, 7, []byte{0xA})
	c.Put(b, 7, []byte{0xB})
	if got := c.Get(a, 7); len(got) != 1 || got[0] != 0xA {
		t.Errorf("file a: %v", got)
	}
	if got := c.Get(b, 7); len(got) != 1 || got[0] != 0xB {
		t.Errorf("file b: %v", got)
	}
}

func TestChunkCacheConcurrentAccess(t *testing.T) {
	c := NewChunkCache(16)
	id := uuid.New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				off := int64(i % 32)
				c.Put(id, off, []byte{byte(off)})
				if got := c.Get(id, off); got != nil && got[0] != byte(off) {
					t.Errorf("wrong bytes for offset %d", off)
				}
			}
		}(g)
	}
	wg.Wait()
}
