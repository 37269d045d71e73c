package domain

import (
	"regexp"
	"strconv"
)

// Pattern ladders, tried in order. The first capture group is the number.
var (
	episodeLadder = []*regexp.Regexp{
		regexp.MustCompile(`(?i)episode\s*(\d+)`),
		regexp.MustCompile(`(?i)\beps?\.\s*(\d+)`),
		regexp.MustCompile(`(?i)\beps?\s*(\d+)`),
		regexp.MustCompile(`(\d+)`),
	}
	chapterLadder = []*regexp.Regexp{
		regexp.MustCompile(`(?i)chapter\s*(\d+)`),
		regexp.MustCompile(`(?i)\bch\.\s*(\d+)`),
		regexp.MustCompile(`(?i)\bch\s*(\d+)`),
		regexp.MustCompile(`(\d+)`),
	}
)

// ExtractEpisodeNumber pulls an episode number out of free text.
// Returns 0 when nothing matches.
func ExtractEpisodeNumber(title string) int {
	return extractNumber(title, episodeLadder)
}

// ExtractChapterNumber pulls a chapter number out of free text.
// Returns 0 when nothing matches.
func ExtractChapterNumber(title string) int {
	return extractNumber(title, chapterLadder)
}

// ExtractProgress picks the ladder matching the bookmark type.
func ExtractProgress(t Type, title string) int {
	if t == TypeKomik {
		return ExtractChapterNumber(title)
	}
	return ExtractEpisodeNumber(title)
}

func extractNumber(title string, ladder []*regexp.Regexp) int {
	for _, re := range ladder {
		m := re.FindStringSubmatch(title)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// overflow on absurd digit runs
			return 0
		}
		return n
	}
	return 0
}
