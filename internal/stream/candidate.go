package stream

import (
	"regexp"
	"strconv"
	"strings"
)

// Candidate is one mirror of an episode stream.
type Candidate struct {
	Quality string `json:"quality"`
	Host    string `json:"host"`
	URL     string `json:"url"`
}

// HostClass is the reliability bucket a candidate's host falls in.
type HostClass string

const (
	ClassPrimary    HostClass = "primary"
	ClassSecondary  HostClass = "secondary"
	ClassUnreliable HostClass = "unreliable"
	ClassOther      HostClass = "other"
)

// Mode is how the player surface loads a URL.
type Mode string

const (
	ModeNative Mode = "native" // <video> element, direct bytes
	ModeEmbed  Mode = "embed"  // iframe
)

var qualityDigits = regexp.MustCompile(`(\d{3,4})`)

// QualityRank turns a label such as "720p" into a sortable number.
// Unknown labels rank 0.
func QualityRank(label string) int {
	l := strings.ToLower(strings.TrimSpace(label))
	if m := qualityDigits.FindStringSubmatch(l); len(m) == 2 {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	switch {
	case strings.Contains(l, "4k"), strings.Contains(l, "uhd"):
		return 2160
	case strings.Contains(l, "fhd"):
		return 1080
	case strings.Contains(l, "hd"):
		return 720
	case strings.Contains(l, "sd"):
		return 480
	}
	return 0
}
