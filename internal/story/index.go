package story

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Category classifies a Story Group by its table entryType.
type Category int

const (
	CategoryOther Category = iota
	CategoryMainline
	CategoryMini
	CategorySide
	CategoryEvent
)

func (c Category) String() string {
	switch c {
	case CategoryMainline:
		return "mainline"
	case CategoryMini:
		return "mini"
	case CategorySide:
		return "side"
	case CategoryEvent:
		return "event"
	default:
		return "other"
	}
}

// Group is a Story Group: a named collection of episodes sharing a
// storyGroup id in the review table.
type Group struct {
	ID       string
	Name     string
	Category Category
	SortKey  int
	Episodes []string // episode ids, sorted by storySort
}

// CategoryStats is the per-category group/episode count, memoized per
// language by the Index.
type CategoryStats struct {
	GroupCount   int
	EpisodeCount int
}

// Index scans a language subtree of the game-data directory and builds the
// group -> episode -> dialogue hierarchy. It is held by the orchestrator
// bootstrap as an explicit handle (internal/loaders), not a process-wide
// singleton, per the resettable-singleton redesign.
type Index struct {
	langDir string

	mu         sync.RWMutex
	built      bool
	tables     *Tables
	filesByID  map[string]string // episode stem -> file path
	episodes   map[string]*Episode
	groups     map[string]*Group
	statsByCat map[Category]CategoryStats
}

// New creates an Index over langDir without scanning it; the first read
// triggers a lazy build.
func New(langDir string) *Index {
	return &Index{langDir: langDir}
}

// Reset drops the built state; the next read rebuilds from disk. Valid
// only from the single-threaded driver that owns this Index, per the
// concurrency model — it must not race with a concurrent read.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.built = false
	idx.tables = nil
	idx.filesByID = nil
	idx.episodes = nil
	idx.groups = nil
	idx.statsByCat = nil
}

func (idx *Index) ensureBuilt() error {
	idx.mu.RLock()
	built := idx.built
	idx.mu.RUnlock()
	if built {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return nil
	}

	tables, err := LoadTables(idx.langDir)
	if err != nil {
		return err
	}

	files, err := scanScriptFiles(idx.langDir)
	if err != nil {
		return err
	}

	groups := make(map[string]*Group)
	for id, rev := range tables.Reviews {
		g, ok := groups[rev.GroupID]
		if !ok {
			g = &Group{ID: rev.GroupID, Category: classifyCategory(rev)}
			groups[rev.GroupID] = g
		}
		g.Episodes = append(g.Episodes, id)
		if rev.EntryType == "MAINLINE" {
			g.SortKey = mainlineChapter(rev.GroupID)
		}
	}
	for _, g := range groups {
		sort.Slice(g.Episodes, func(i, j int) bool {
			return tables.Reviews[g.Episodes[i]].StorySort < tables.Reviews[g.Episodes[j]].StorySort
		})
	}

	stats := make(map[Category]CategoryStats)
	for _, g := range groups {
		s := stats[g.Category]
		s.GroupCount++
		s.EpisodeCount += len(g.Episodes)
		stats[g.Category] = s
	}

	idx.tables = tables
	idx.filesByID = files
	idx.groups = groups
	idx.statsByCat = stats
	idx.episodes = make(map[string]*Episode)
	idx.built = true
	return nil
}

func classifyCategory(rev StoryReviewEntry) Category {
	switch {
	case rev.EntryType == "MAINLINE":
		return CategoryMainline
	case rev.EntryType == "MINI_ACTIVITY":
		return CategoryMini
	case strings.Contains(strings.ToLower(rev.GroupID), "side"):
		return CategorySide
	case rev.EntryType == "ACTIVITY":
		return CategoryEvent
	default:
		return CategoryOther
	}
}

// mainlineChapter extracts the leading numeric chapter from a mainline
// group id such as "main_07" -> 7, for sort ordering.
func mainlineChapter(groupID string) int {
	var digits strings.Builder
	for _, r := range groupID {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if digits.Len() > 0 {
			break
		}
	}
	n, _ := strconv.Atoi(digits.String())
	return n
}

// scanScriptFiles walks gamedata/story/**/*.txt and returns a map of
// episode stem -> file path. The walk itself is sequential; the collected
// paths are then entered into the map by an errgroup of up to 8 goroutines.
func scanScriptFiles(langDir string) (map[string]string, error) {
	root := filepath.Join(langDir, "gamedata", "story")
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".txt") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan story tree: %w", err)
	}

	var mu sync.Mutex
	files := make(map[string]string, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(8)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
			mu.Lock()
			files[stem] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// Episode returns the parsed episode for id, parsing and caching it on
// first access.
func (idx *Index) Episode(id string) (*Episode, error) {
	if err := idx.ensureBuilt(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	ep, ok := idx.episodes[id]
	idx.mu.RUnlock()
	if ok {
		return ep, nil
	}

	path, ok := idx.filesByID[id]
	if !ok {
		return nil, fmt.Errorf("unknown episode id %q", id)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read episode %q: %w", id, err)
	}
	ep = ParseEpisode(id, string(body))

	idx.mu.Lock()
	idx.episodes[id] = ep
	idx.mu.Unlock()
	return ep, nil
}

// EpisodesInGroup returns episode ids for group, sorted by the table's
// storySort.
func (idx *Index) EpisodesInGroup(groupID string) ([]string, error) {
	if err := idx.ensureBuilt(); err != nil {
		return nil, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	g, ok := idx.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("unknown group id %q", groupID)
	}
	out := make([]string, len(g.Episodes))
	copy(out, g.Episodes)
	return out, nil
}

// CategoryStatsFor returns the memoized group/episode counts for a
// category.
func (idx *Index) CategoryStatsFor(c Category) (CategoryStats, error) {
	if err := idx.ensureBuilt(); err != nil {
		return CategoryStats{}, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.statsByCat[c], nil
}

// Tables exposes the loaded game-data tables, e.g. for the Identity
// Resolver's official-table lookup step.
func (idx *Index) Tables() (*Tables, error) {
	if err := idx.ensureBuilt(); err != nil {
		return nil, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tables, nil
}
