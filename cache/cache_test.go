package cache

import (
	"sync"
	"testing"
)

func TestCacheInitF(t *testing.T) {
	cache := NewCache(5)
	sz, c, _, _ := cache.Stats()
	if sz != 0 {
		t.Errorf("size = %v, want 0", sz)
	}
	if c != 5 {
		t.Errorf("capacity = %v, want 5", c)
	}
}

func TestSetInsertsValueF(t *testing.T) {
	cache := NewCache(100)
	data := []float64{1.1, 2.2, 3.3}
	var key uint64 = 33
	cache.Set(key, data)

	v, ok := cache.Get(key)
	if !ok {
		t.Errorf("Cache returned not ok")
	}

	for i, f := range v {
		if f != data[i] {
			t.Errorf("Cache has incorrect value: %f != %f", data[i], v[i])
		}
	}
}

func TestEviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set(1, []float64{1})
	cache.Set(2, []float64{2})
	cache.Get(1) // 2 is now the oldest
	cache.Set(3, []float64{3})

	if _, ok := cache.Get(2); ok {
		t.Error("key 2 should have been evicted")
	}
	if _, ok := cache.Get(1); !ok {
		t.Error("key 1 should be present")
	}
	if !cache.Delete(3) {
		t.Error("delete of key 3 failed")
	}
	cache.Clear()
	if sz, _, _, _ := cache.Stats(); sz != 0 {
		t.Errorf("size after clear = %d", sz)
	}
}

func TestGetOrCompute(t *testing.T) {
	cache := NewCache(16)
	var mu sync.Mutex
	calls := 0
	fn := func() []float64 {
		mu.Lock()
		calls++
		mu.Unlock()
		return []float64{42}
	}

	v := cache.GetOrCompute(7, fn)
	if v[0] != 42 {
		t.Fatalf("value = %v", v)
	}
	cache.GetOrCompute(7, fn)
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
	_, _, hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 1 and 1", hits, misses)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(k uint64) {
			defer wg.Done()
			cache.GetOrCompute(k, fn)
		}(uint64(i))
	}
	wg.Wait()
}
