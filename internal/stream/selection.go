package stream

import "sort"

// skipFunc excludes candidates already tried by a resolver.
type skipFunc func(i int, c Candidate) bool

// selection is the outcome of one pick over a candidate list.
type selection struct {
	index      int
	lastResort bool
}

// Select returns the index of the candidate the policy prefers, or -1 when
// nothing is playable. lastResort is set when only the unreliable host is left.
func (p *Policy) Select(candidates []Candidate) (index int, lastResort bool) {
	sel := p.selectFrom(candidates, nil, true)
	return sel.index, sel.lastResort
}

func (p *Policy) selectFrom(candidates []Candidate, skip skipFunc, allowUnreliable bool) selection {
	classes := make([]HostClass, len(candidates))
	usable := make([]bool, len(candidates))
	for i, c := range candidates {
		classes[i] = p.Classify(c)
		usable[i] = skip == nil || !skip(i, c)
	}

	// 1. primary hosts, highest quality first
	var primary []int
	for i, c := range candidates {
		if usable[i] && classes[i] == ClassPrimary {
			if _, ok := playable(c.URL); ok {
				primary = append(primary, i)
			}
		}
	}
	if len(primary) > 0 {
		byQuality(candidates, primary)
		return selection{index: primary[0]}
	}

	// 2. secondary hosts, input order
	for i, c := range candidates {
		if usable[i] && classes[i] == ClassSecondary {
			if _, ok := playable(c.URL); ok {
				return selection{index: i}
			}
		}
	}

	// 3. plain absolute URLs
	for i, c := range candidates {
		if usable[i] && classes[i] != ClassUnreliable && absoluteHTTP(c.URL) && !p.IsEmbed(c.URL) {
			return selection{index: i}
		}
	}

	// 4. embed-shaped URLs
	for i, c := range candidates {
		if usable[i] && classes[i] != ClassUnreliable && absoluteHTTP(c.URL) && p.IsEmbed(c.URL) {
			return selection{index: i}
		}
	}

	// 5. anything that normalizes
	for i, c := range candidates {
		if usable[i] && classes[i] != ClassUnreliable {
			if _, ok := playable(c.URL); ok {
				return selection{index: i}
			}
		}
	}

	if !allowUnreliable {
		return selection{index: -1}
	}

	// 6. last resort
	var unreliable []int
	for i, c := range candidates {
		if usable[i] && classes[i] == ClassUnreliable {
			if _, ok := playable(c.URL); ok {
				unreliable = append(unreliable, i)
			}
		}
	}
	if len(unreliable) > 0 {
		byQuality(candidates, unreliable)
		return selection{index: unreliable[0], lastResort: true}
	}

	return selection{index: -1}
}

func byQuality(candidates []Candidate, idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return QualityRank(candidates[idx[a]].Quality) > QualityRank(candidates[idx[b]].Quality)
	})
}
