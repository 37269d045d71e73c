package domain

import (
	"sort"
	"strings"
)

const (
	// Richness weights used to pick the survivor among duplicates
	ScoreKnownTitle    = 3
	ScoreHasImage      = 2
	ScoreHasProgress   = 1
	ScoreCustomShelved = 1
)

// RichnessScore estimates how much information a record carries.
func RichnessScore(b Bookmark) int {
	score := 0
	if b.HasKnownTitle() {
		score += ScoreKnownTitle
	}
	if strings.TrimSpace(b.ImageURL) != "" {
		score += ScoreHasImage
	}
	if b.LastProgress > 0 {
		score += ScoreHasProgress
	}
	if b.Category != "" && b.Category != DefaultCategory(b.Type) {
		score += ScoreCustomShelved
	}
	return score
}

// titleKey groups records that upstream gave different slugs.
// Records without a real title return "" and are never grouped.
func titleKey(b Bookmark) string {
	if !b.HasKnownTitle() {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(b.Title))
}

// Deduplicate collapses repeated ids (first occurrence wins) and then keeps
// the richest record per trimmed, lower-cased title. Ties keep the earliest
// record. Input order is preserved for survivors.
//
// Records titled UnknownTitle (or empty) are never grouped by title, only
// by id, so two sentinel records with different ids both survive.
func Deduplicate(records []Bookmark) (kept []Bookmark, dropped int) {
	seenIDs := make(map[string]bool, len(records))
	unique := make([]Bookmark, 0, len(records))
	for _, b := range records {
		id := NormalizeID(b.ID)
		if seenIDs[id] {
			dropped++
			continue
		}
		seenIDs[id] = true
		b.ID = id
		unique = append(unique, b)
	}

	// title key -> index into unique of the current best
	best := make(map[string]int, len(unique))
	for i, b := range unique {
		key := titleKey(b)
		if key == "" {
			continue
		}
		j, ok := best[key]
		if !ok || RichnessScore(b) > RichnessScore(unique[j]) {
			best[key] = i
		}
	}

	kept = make([]Bookmark, 0, len(unique))
	for i, b := range unique {
		key := titleKey(b)
		if key != "" && best[key] != i {
			dropped++
			continue
		}
		kept = append(kept, b)
	}
	return kept, dropped
}

// SortByUpdatedDesc orders records newest first; ties fall back to id.
func SortByUpdatedDesc(records []Bookmark) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].UpdatedAt, records[j].UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return records[i].ID < records[j].ID
	})
}
