package region

import (
	"fmt"
	"sort"
	"time"
)

// Eviction policy names accepted in configuration.
const (
	PolicyLeastRecent = "least_recent"
	PolicyArbitrary   = "arbitrary"
)

// Candidate is a monitored region considered for eviction.
type Candidate struct {
	RegionID     string
	LastActivity time.Time
}

// EvictionPolicy picks the region to drop when the ceiling is reached.
type EvictionPolicy interface {
	Name() string
	// SelectVictim returns the id to evict; candidates is never empty.
	SelectVictim(candidates []Candidate) string
}

// NewEvictionPolicy resolves a configured policy name.
func NewEvictionPolicy(name string, platform Platform) (EvictionPolicy, error) {
	switch name {
	case "", PolicyLeastRecent:
		return LeastRecent{}, nil
	case PolicyArbitrary:
		return Arbitrary{platform: platform}, nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", name)
	}
}

// LeastRecent evicts the region with the oldest activity (registration or
// transition). Ties go to the smallest id so the choice is deterministic.
type LeastRecent struct{}

func (LeastRecent) Name() string { return PolicyLeastRecent }

func (LeastRecent) SelectVictim(candidates []Candidate) string {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].LastActivity.Equal(sorted[j].LastActivity) {
			return sorted[i].RegionID < sorted[j].RegionID
		}
		return sorted[i].LastActivity.Before(sorted[j].LastActivity)
	})
	return sorted[0].RegionID
}

// Arbitrary evicts whichever candidate the platform reports first.
type Arbitrary struct {
	platform Platform
}

func (Arbitrary) Name() string { return PolicyArbitrary }

func (a Arbitrary) SelectVictim(candidates []Candidate) string {
	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.RegionID] = struct{}{}
	}
	if a.platform != nil {
		for _, id := range a.platform.Monitored() {
			if _, ok := known[id]; ok {
				return id
			}
		}
	}
	return candidates[0].RegionID
}
