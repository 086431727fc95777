package pipeline

import (
	"os"

	"github.com/backmassage/ogimage/internal/asset"
	"github.com/backmassage/ogimage/internal/cache"
)

// MinOutputSize is the smallest output treated as a real PNG. Anything below
// it is a leftover from an interrupted or broken write and is regenerated.
const MinOutputSize = 100

// Staleness decides whether a pair needs conversion.
type Staleness func(p asset.Pair, c *cache.Cache) bool

// ContentHash is the default policy. In order:
//
//  1. force set: stale.
//  2. output missing or below MinOutputSize: stale.
//  3. source unreadable: stale (freshness cannot be shown).
//  4. stale unless the source fingerprint equals the cached one.
func ContentHash(force bool) Staleness {
	return func(p asset.Pair, c *cache.Cache) bool {
		if force {
			return true
		}
		fi, err := os.Stat(p.Output)
		if err != nil || fi.Size() < MinOutputSize {
			return true
		}
		fp, err := cache.Fingerprint(p.Source)
		if err != nil {
			return true
		}
		stored, ok := c.Get(p.Key)
		return !ok || stored != fp
	}
}

// filter splits pairs into stale and fresh using needs.
func filter(pairs []asset.Pair, c *cache.Cache, needs Staleness) (stale, fresh []asset.Pair) {
	for _, p := range pairs {
		if needs(p, c) {
			stale = append(stale, p)
		} else {
			fresh = append(fresh, p)
		}
	}
	return stale, fresh
}
