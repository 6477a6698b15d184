// Package loaders holds the three process-wide caches named in spec
// §4.11 (the Story Parser/Index, the Voice Map, and the Character-Image
// Provider) re-expressed per the REDESIGN FLAGS as an explicit handle
// with a generational counter rather than package-level singletons: a
// single *Loaders value is constructed once at bootstrap and passed by
// reference to the orchestrator and the HTTP boundary, instead of each
// package reaching for its own hidden global.
package loaders

import (
	"sync"
	"sync/atomic"

	"github.com/arksynth/arksynth/internal/bundle"
	"github.com/arksynth/arksynth/internal/story"
	"github.com/arksynth/arksynth/internal/voice"
)

// ImageProvider extracts a character's portrait images from its
// AssetBundle, memoized per bundle path.
type ImageProvider interface {
	Images(bundlePath string) ([]bundle.ImageOutput, error)
}

// Loaders bundles the three caches behind one generation counter: each
// ResetAll bumps the generation, and every cached snapshot stamps the
// generation it was built under so a stale read rebuilds instead of
// silently serving old data.
type Loaders struct {
	langDir    string
	voiceMap   string
	modelsRoot string

	generation atomic.Uint64

	mu     sync.Mutex
	index  *snapshot[*story.Index]
	doc    *snapshot[*voiceMapSnapshot]
	images *snapshot[*imageCache]
}

type snapshot[T any] struct {
	generation uint64
	value      T
}

type voiceMapSnapshot struct {
	doc      *voice.Document
	resolver *voice.Resolver
}

type imageCache struct {
	mu    sync.Mutex
	cache map[string][]bundle.ImageOutput
}

// New builds a Loaders handle over the given game-data/voice-map/model
// directories. Nothing is loaded from disk until first use.
func New(langDir, voiceMapPath, modelsRoot string) *Loaders {
	return &Loaders{langDir: langDir, voiceMap: voiceMapPath, modelsRoot: modelsRoot}
}

// ResetAll invalidates every cached handle; the next access to any of them
// rebuilds from disk. Used after a game-data refresh or a direct edit to
// the voice map outside the HTTP boundary's own write path.
func (l *Loaders) ResetAll() {
	l.generation.Add(1)
}

// Index returns the current Story Index, building it on first access or
// after a ResetAll.
func (l *Loaders) Index() *story.Index {
	l.mu.Lock()
	defer l.mu.Unlock()
	gen := l.generation.Load()
	if l.index != nil && l.index.generation == gen {
		return l.index.value
	}
	idx := story.New(l.langDir)
	l.index = &snapshot[*story.Index]{generation: gen, value: idx}
	return idx
}

// VoiceResolver returns the current Resolver, loading the voice map
// document and the active language's tables on first access or after a
// ResetAll.
func (l *Loaders) VoiceResolver() (*voice.Resolver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	gen := l.generation.Load()
	if l.doc != nil && l.doc.generation == gen {
		return l.doc.value.resolver, nil
	}

	doc, err := voice.Load(l.voiceMap)
	if err != nil {
		return nil, err
	}
	tables, err := story.LoadTables(l.langDir)
	if err != nil {
		return nil, err
	}
	resolver := voice.NewResolver(doc, l.voiceMap, tables, l.modelsRoot)
	l.doc = &snapshot[*voiceMapSnapshot]{generation: gen, value: &voiceMapSnapshot{doc: doc, resolver: resolver}}
	return resolver, nil
}

// Images returns the image cache, empty but ready, on first access or
// after a ResetAll. Individual bundle decodes are memoized within it by
// the caller via GetOrLoad.
func (l *Loaders) Images() *imageCacheHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	gen := l.generation.Load()
	if l.images != nil && l.images.generation == gen {
		return &imageCacheHandle{l.images.value}
	}
	ic := &imageCache{cache: make(map[string][]bundle.ImageOutput)}
	l.images = &snapshot[*imageCache]{generation: gen, value: ic}
	return &imageCacheHandle{ic}
}

// imageCacheHandle is the public view over an imageCache generation.
type imageCacheHandle struct {
	ic *imageCache
}

// GetOrLoad returns the memoized image set for bundlePath, invoking load
// and caching its result on first request.
func (h *imageCacheHandle) GetOrLoad(bundlePath string, load func() ([]bundle.ImageOutput, error)) ([]bundle.ImageOutput, error) {
	h.ic.mu.Lock()
	if imgs, ok := h.ic.cache[bundlePath]; ok {
		h.ic.mu.Unlock()
		return imgs, nil
	}
	h.ic.mu.Unlock()

	imgs, err := load()
	if err != nil {
		return nil, err
	}

	h.ic.mu.Lock()
	h.ic.cache[bundlePath] = imgs
	h.ic.mu.Unlock()
	return imgs, nil
}
