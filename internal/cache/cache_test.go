package cache

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/eugenenazirov/buildenv/internal/buildcfg"
)

func sampleConfig(name string) buildcfg.BuildConfig {
	return buildcfg.BuildConfig{
		Name:          name,
		Target:        buildcfg.LinuxX86_64,
		Flavor:        buildcfg.Release,
		Family:        buildcfg.FamilyLinux,
		CompilerFlags: []string{"-Wall", "-O2"},
		LinkerFlags:   []string{"-g2"},
		Defines:       []string{"NDEBUG"},
	}
}

func TestNewMemoryCacheIsEmpty(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
	if _, ok := c.Get("Linux-x86_64-release"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	if names := c.Names(); len(names) != 0 {
		t.Fatalf("expected no names, got %v", names)
	}
}

func TestLoadOrStoreKeepsFirstEntry(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	first := sampleConfig("Linux-x86_64-release")

	stored, loaded := c.LoadOrStore(first.Name, first)
	if loaded {
		t.Fatalf("first insert reported an existing entry")
	}
	if !slices.Equal(stored.CompilerFlags, first.CompilerFlags) {
		t.Fatalf("unexpected stored config %+v", stored)
	}

	second := sampleConfig(first.Name)
	second.CompilerFlags = []string{"-O0"}
	stored, loaded = c.LoadOrStore(first.Name, second)
	if !loaded {
		t.Fatalf("second insert should load the existing entry")
	}
	if !slices.Equal(stored.CompilerFlags, []string{"-Wall", "-O2"}) {
		t.Fatalf("existing entry was replaced: %v", stored.CompilerFlags)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestCacheHandsOutCopies(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	cfg := sampleConfig("Linux-x86_64-release")

	stored, _ := c.LoadOrStore(cfg.Name, cfg)

	// Neither the caller's input nor any returned value aliases the entry.
	cfg.CompilerFlags[0] = "-input"
	stored.CompilerFlags[0] = "-stored"
	got, ok := c.Get(cfg.Name)
	if !ok {
		t.Fatalf("expected hit")
	}
	got.Defines[0] = "-got"

	again, _ := c.Get(cfg.Name)
	if again.CompilerFlags[0] != "-Wall" || again.Defines[0] != "NDEBUG" {
		t.Fatalf("cached entry was mutated: %+v", again)
	}
}

func TestNamesSorted(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	for _, name := range []string{"Windows-x64-release", "Linux-i386-debug", "Linux-x86_64-release"} {
		c.LoadOrStore(name, sampleConfig(name))
	}

	want := []string{"Linux-i386-debug", "Linux-x86_64-release", "Windows-x64-release"}
	if got := c.Names(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestConcurrentLoadOrStore(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := sampleConfig("Linux-x86_64-release")
			cfg.CompilerFlags = []string{fmt.Sprintf("-worker%d", i)}
			if _, loaded := c.LoadOrStore(cfg.Name, cfg); !loaded {
				mu.Lock()
				winners++
				mu.Unlock()
			}
			_, _ = c.Get(cfg.Name)
			_ = c.Names()
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one insert to win, got %d", winners)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}
