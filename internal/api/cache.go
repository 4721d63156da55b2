package api

import (
	"os"
	"sync"
	"time"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
)

// ridingCache holds the decoded nationwide riding file per year, grouped by
// riding. An entry is reloaded when the file's size or mtime changes.
type ridingCache struct {
	mu      sync.Mutex
	entries map[string]*ridingEntry
}

type ridingEntry struct {
	modTime  time.Time
	size     int64
	byRiding map[int][]geo.Feature
}

// get returns the features of one riding from path, decoding the file only
// when it changed since the last call for year.
func (c *ridingCache) get(year, path string, riding int) ([]geo.Feature, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, geo.ErrMissingInput
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[year]; ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		return e.byRiding[riding], nil
	}

	fs, err := geo.ReadCollection(path)
	if err != nil {
		return nil, err
	}
	byRiding, _ := geo.GroupByRiding(fs)
	if c.entries == nil {
		c.entries = map[string]*ridingEntry{}
	}
	c.entries[year] = &ridingEntry{modTime: info.ModTime(), size: info.Size(), byRiding: byRiding}
	return byRiding[riding], nil
}
