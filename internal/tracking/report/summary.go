// Package report aggregates visit logs into per-zone and per-category totals.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// ZoneTotal is the aggregate for one zone, or for one orphaned name snapshot.
type ZoneTotal struct {
	ZoneID        uuid.UUID       `json:"zone_id"`
	ZoneName      string          `json:"zone_name"`
	Category      domain.Category `json:"category"`
	Visits        int             `json:"visits"`
	Total         time.Duration   `json:"total_ns"`
	Formatted     string          `json:"total"`
	MatchedByName bool            `json:"matched_by_name,omitempty"`
	Orphaned      bool            `json:"orphaned,omitempty"`
}

// CategoryTotal is the aggregate for one category.
type CategoryTotal struct {
	Category  domain.Category `json:"category"`
	Visits    int             `json:"visits"`
	Total     time.Duration   `json:"total_ns"`
	Formatted string          `json:"total"`
}

// Summary is the full report.
type Summary struct {
	Zones      []ZoneTotal     `json:"zones"`
	Categories []CategoryTotal `json:"categories"`
	Visits     int             `json:"visits"`
	Total      time.Duration   `json:"total_ns"`
}

// Summarize joins logs to zones and totals them. Logs are joined by zone id;
// a log whose zone no longer exists falls back to an exact, case-insensitive
// name match and is flagged. Anything left is reported under its snapshot
// name as orphaned.
func Summarize(zones []*domain.Zone, logs []*domain.VisitLog) Summary {
	byID := make(map[uuid.UUID]*domain.Zone, len(zones))
	byName := make(map[string]*domain.Zone, len(zones))
	ambiguous := make(map[string]bool)
	for _, z := range zones {
		byID[z.ID] = z
		key := nameKey(z.Name)
		if _, dup := byName[key]; dup {
			ambiguous[key] = true
		}
		byName[key] = z
	}

	type groupKey struct {
		id       uuid.UUID
		name     string
		byName   bool
		orphaned bool
	}
	groups := make(map[groupKey]*ZoneTotal)
	categories := make(map[domain.Category]*CategoryTotal)

	var s Summary
	for _, log := range logs {
		var key groupKey
		var total ZoneTotal

		if z, ok := byID[log.ZoneID]; ok {
			key = groupKey{id: z.ID}
			total = ZoneTotal{ZoneID: z.ID, ZoneName: z.Name, Category: z.Category.OrDefault()}
		} else if z, ok := byName[nameKey(log.ZoneName)]; ok && !ambiguous[nameKey(log.ZoneName)] {
			key = groupKey{id: z.ID, byName: true}
			total = ZoneTotal{ZoneID: z.ID, ZoneName: z.Name, Category: z.Category.OrDefault(), MatchedByName: true}
		} else {
			key = groupKey{name: log.ZoneName, orphaned: true}
			total = ZoneTotal{ZoneID: log.ZoneID, ZoneName: log.ZoneName, Category: domain.CategoryOther, Orphaned: true}
		}

		g, ok := groups[key]
		if !ok {
			g = &total
			groups[key] = g
		}
		d := log.Duration()
		g.Visits++
		g.Total += d

		c, ok := categories[g.Category]
		if !ok {
			c = &CategoryTotal{Category: g.Category}
			categories[g.Category] = c
		}
		c.Visits++
		c.Total += d

		s.Visits++
		s.Total += d
	}

	for _, g := range groups {
		g.Formatted = domain.FormatDuration(g.Total)
		s.Zones = append(s.Zones, *g)
	}
	sort.Slice(s.Zones, func(i, j int) bool {
		if s.Zones[i].Total != s.Zones[j].Total {
			return s.Zones[i].Total > s.Zones[j].Total
		}
		return s.Zones[i].ZoneName < s.Zones[j].ZoneName
	})

	for _, cat := range domain.Categories {
		if c, ok := categories[cat]; ok {
			c.Formatted = domain.FormatDuration(c.Total)
			s.Categories = append(s.Categories, *c)
		}
	}
	return s
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
