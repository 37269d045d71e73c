package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedPolicy() *Policy {
	at := time.UnixMilli(1700000000000)
	return DefaultPolicy().WithClock(func() time.Time { return at })
}

func TestQualityRank(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1080p", 1080},
		{"720P", 720},
		{"480", 480},
		{"4K", 2160},
		{"FHD", 1080},
		{"HD", 720},
		{"SD", 480},
		{"", 0},
		{"auto", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QualityRank(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		c    Candidate
		want HostClass
	}{
		{"primary by label", Candidate{Host: "FileDon", URL: "https://cdn.example.com/v.mp4"}, ClassPrimary},
		{"primary by hostname", Candidate{URL: "https://www.filedon.co/v/1"}, ClassPrimary},
		{"secondary", Candidate{Host: "Mega", URL: "https://mega.nz/file/x"}, ClassSecondary},
		{"unreliable by hostname", Candidate{Host: "mirror", URL: "https://pixeldrain.com/u/abc"}, ClassUnreliable},
		{"unreliable wins", Candidate{Host: "mega", URL: "https://pixeldrain.com/u/abc"}, ClassUnreliable},
		{"other", Candidate{Host: "blogger", URL: "https://blogger.com/video"}, ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Classify(tt.c))
		})
	}
}

func TestTransform(t *testing.T) {
	p := fixedPolicy()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"share link to api", "https://pixeldrain.com/u/abc", "https://pixeldrain.com/api/file/abc?t=1700000000000"},
		{"api link gets cache bust", "https://pixeldrain.com/api/file/abc", "https://pixeldrain.com/api/file/abc?t=1700000000000"},
		{"api link with cache bust untouched", "https://pixeldrain.com/api/file/abc?t=5", "https://pixeldrain.com/api/file/abc?t=5"},
		{"mega share to embed", "https://mega.nz/file/XYZ#key", "https://mega.nz/embed/XYZ#key"},
		{"mega embed untouched", "https://mega.nz/embed/XYZ", "https://mega.nz/embed/XYZ"},
		{"other host untouched", "https://cdn.example.com/v.mp4", "https://cdn.example.com/v.mp4"},
		{"not a url", "::nope", "::nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Transform(tt.in))
		})
	}
}

func TestMode(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, ModeNative, p.Mode(Candidate{Host: "filedon"}, "https://filedon.co/v.mp4"))
	assert.Equal(t, ModeEmbed, p.Mode(Candidate{Host: "mega"}, "https://mega.nz/embed/XYZ"))
	assert.Equal(t, ModeEmbed, p.Mode(Candidate{Host: "blogger"}, "https://blogger.com/player/1"))
	assert.Equal(t, ModeNative, p.Mode(Candidate{Host: "pixeldrain"}, "https://pixeldrain.com/embed/abc"),
		"unreliable host is never embedded")
}

func TestBust(t *testing.T) {
	p := fixedPolicy()

	assert.Equal(t, "https://a.example.com/v.mp4?retry=2&t=1700000000000", p.Bust("https://a.example.com/v.mp4", 2))
	assert.Equal(t, "https://a.example.com/v.mp4?retry=3&t=1700000000000", p.Bust("https://a.example.com/v.mp4?retry=2&t=1", 3))
	assert.Equal(t, "relative/path", p.Bust("relative/path", 1))
}

func TestSelect(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name       string
		candidates []Candidate
		want       int
		lastResort bool
	}{
		{
			name: "primary highest quality",
			candidates: []Candidate{
				{Quality: "480p", Host: "filedon", URL: "https://filedon.co/1"},
				{Quality: "1080p", Host: "mega", URL: "https://mega.nz/file/2"},
				{Quality: "1080p", Host: "filedon", URL: "https://filedon.co/3"},
			},
			want: 2,
		},
		{
			name: "secondary before others",
			candidates: []Candidate{
				{Quality: "1080p", Host: "pixeldrain", URL: "https://pixeldrain.com/u/1"},
				{Quality: "1080p", Host: "blogger", URL: "https://blogger.com/v.mp4"},
				{Quality: "360p", Host: "mega", URL: "https://mega.nz/file/2"},
			},
			want: 2,
		},
		{
			name: "plain url before embed",
			candidates: []Candidate{
				{Host: "alpha", URL: "https://alpha.example.com/embed/1"},
				{Host: "beta", URL: "https://beta.example.com/v.mp4"},
			},
			want: 1,
		},
		{
			name: "embed before protocol relative",
			candidates: []Candidate{
				{Host: "alpha", URL: "//alpha.example.com/v.mp4"},
				{Host: "beta", URL: "https://beta.example.com/e/1"},
			},
			want: 1,
		},
		{
			name: "protocol relative normalizes",
			candidates: []Candidate{
				{Host: "alpha", URL: "//alpha.example.com/v.mp4"},
				{Host: "beta", URL: "not a url"},
			},
			want: 0,
		},
		{
			name: "unreliable last resort highest quality",
			candidates: []Candidate{
				{Quality: "480p", Host: "pixeldrain", URL: "https://pixeldrain.com/u/1"},
				{Quality: "1080p", Host: "pixeldrain", URL: "https://pixeldrain.com/u/2"},
			},
			want:       1,
			lastResort: true,
		},
		{
			name:       "nothing playable",
			candidates: []Candidate{{Host: "alpha", URL: ""}},
			want:       -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, lastResort := p.Select(tt.candidates)
			assert.Equal(t, tt.want, idx)
			assert.Equal(t, tt.lastResort, lastResort)
		})
	}
}
