package stream

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	filedon1080 = Candidate{Quality: "1080p", Host: "filedon", URL: "https://filedon.co/v/1080"}
	filedon480  = Candidate{Quality: "480p", Host: "filedon", URL: "https://filedon.co/v/480"}
	megaShare   = Candidate{Quality: "720p", Host: "mega", URL: "https://mega.nz/file/abc"}
	pixelShare  = Candidate{Quality: "1080p", Host: "pixeldrain", URL: "https://pixeldrain.com/u/xyz"}
)

func newTestResolver() *Resolver {
	return NewResolver(fixedPolicy(), DefaultConfig())
}

func TestResolverInitNoCandidates(t *testing.T) {
	r := newTestResolver()

	d := r.Init(nil)
	assert.Equal(t, StateFailed, d.State)
	assert.Equal(t, FailureGeneric, d.Failure)
	assert.Equal(t, NoticeFailed, d.Notice.Kind)
	assert.Nil(t, d.Candidate)
}

func TestResolverInitPicksPrimary(t *testing.T) {
	r := newTestResolver()

	d := r.Init([]Candidate{megaShare, filedon480, filedon1080})
	require.Equal(t, StatePlaying, d.State)
	assert.Equal(t, filedon1080, *d.Candidate)
	assert.Equal(t, filedon1080.URL, d.URL)
	assert.Equal(t, ModeNative, d.Mode)
	assert.Equal(t, NoticeNone, d.Notice.Kind)
	assert.Equal(t, 1, d.Attempt)
}

func TestResolverBoundedRetriesThenFallback(t *testing.T) {
	r := newTestResolver()
	r.Init([]Candidate{filedon1080, megaShare})

	for i := 1; i <= DefaultMaxRetries; i++ {
		d := r.OnPlaybackError()
		require.Equal(t, StateRetrying, d.State, "retry %d", i)
		assert.Equal(t, filedon1080, *d.Candidate)
		assert.Equal(t, DefaultRetryDelay, d.RetryIn)
		assert.Equal(t, NoticeRetrying, d.Notice.Kind)
		assert.Contains(t, d.URL, "t=1700000000000")
		assert.True(t, strings.Contains(d.URL, "retry="), "retry url should change: %s", d.URL)
		assert.Equal(t, i+1, d.Attempt)

		d = r.RetryElapsed()
		require.Equal(t, StatePlaying, d.State)
	}

	d := r.OnPlaybackError()
	require.Equal(t, StatePlaying, d.State)
	assert.Equal(t, megaShare, *d.Candidate)
	assert.Equal(t, NoticeSwitched, d.Notice.Kind)
	assert.Contains(t, d.Notice.Message, "switched automatically")
	assert.Equal(t, "https://mega.nz/embed/abc", d.URL)
	assert.Equal(t, ModeEmbed, d.Mode)
	assert.Equal(t, 1, d.Attempt, "advancing resets retries")

	for i := 0; i < DefaultMaxRetries; i++ {
		require.Equal(t, StateRetrying, r.OnPlaybackError().State)
	}

	d = r.OnPlaybackError()
	assert.Equal(t, StateFailed, d.State)
	assert.Equal(t, FailureGeneric, d.Failure)
	assert.Equal(t, "No working source found for this episode", d.Notice.Message)

	// failed is terminal until a new init or manual pick
	assert.Equal(t, StateFailed, r.OnPlaybackError().State)
}

func TestResolverLeavesUnreliableImmediately(t *testing.T) {
	r := newTestResolver()
	r.Init([]Candidate{filedon1080, filedon480, pixelShare})

	d, err := r.SelectCandidate(pixelShare)
	require.NoError(t, err)
	assert.Equal(t, NoticeLastResort, d.Notice.Kind)
	assert.Equal(t, ModeNative, d.Mode)

	d = r.OnPlaybackError()
	require.Equal(t, StatePlaying, d.State, "no retry on the unreliable host while alternatives remain")
	assert.Equal(t, filedon480, *d.Candidate)
	assert.Equal(t, NoticeSwitched, d.Notice.Kind)

	for i := 0; i < DefaultMaxRetries; i++ {
		require.Equal(t, StateRetrying, r.OnPlaybackError().State)
	}

	d = r.OnPlaybackError()
	assert.Equal(t, StateFailed, d.State)
	assert.Equal(t, FailureUnreliableBlocked, d.Failure, "the unreliable host already failed")
}

func TestResolverUnreliableLastResort(t *testing.T) {
	r := newTestResolver()

	d := r.Init([]Candidate{pixelShare})
	require.Equal(t, StatePlaying, d.State)
	assert.Equal(t, NoticeLastResort, d.Notice.Kind)
	assert.Equal(t, "https://pixeldrain.com/api/file/xyz?t=1700000000000", d.URL)

	for i := 1; i <= DefaultLastResortMaxRetries; i++ {
		d = r.OnPlaybackError()
		require.Equal(t, StateRetrying, d.State, "retry %d", i)
		assert.Equal(t, DefaultLastResortMaxRetries+1, d.MaxAttempts)
	}

	d = r.OnPlaybackError()
	assert.Equal(t, StateFailed, d.State)
	assert.Equal(t, FailureUnreliableBlocked, d.Failure)
	assert.Contains(t, d.Notice.Message, "pixeldrain")
}

func TestResolverFallsBackToUnreliable(t *testing.T) {
	r := newTestResolver()
	r.Init([]Candidate{pixelShare, megaShare})

	for i := 0; i < DefaultMaxRetries; i++ {
		r.OnPlaybackError()
	}

	d := r.OnPlaybackError()
	require.Equal(t, StatePlaying, d.State)
	assert.Equal(t, pixelShare, *d.Candidate)
	assert.Equal(t, NoticeLastResort, d.Notice.Kind)

	for i := 0; i < DefaultLastResortMaxRetries; i++ {
		require.Equal(t, StateRetrying, r.OnPlaybackError().State)
	}
	assert.Equal(t, FailureUnreliableBlocked, r.OnPlaybackError().Failure)
}

func TestResolverRetryElapsedOnlyFromRetrying(t *testing.T) {
	r := newTestResolver()
	first := r.Init([]Candidate{filedon1080})

	d := r.RetryElapsed()
	assert.Equal(t, first, d)

	r.OnPlaybackError()
	d = r.RetryElapsed()
	assert.Equal(t, StatePlaying, d.State)
	assert.Equal(t, NoticeNone, d.Notice.Kind)
	assert.Contains(t, d.URL, "retry=1")
}

func TestResolverSelectCandidate(t *testing.T) {
	r := newTestResolver()
	r.Init([]Candidate{filedon1080})

	extra := Candidate{Quality: "720p", Host: "blogger", URL: "https://blogger.example.com/v.mp4"}
	d, err := r.SelectCandidate(extra)
	require.NoError(t, err)
	assert.Equal(t, extra, *d.Candidate)
	assert.Len(t, r.Candidates(), 2, "unknown candidate is appended")

	_, err = r.SelectCandidate(Candidate{Host: "x", URL: "javascript:alert(1)"})
	assert.ErrorIs(t, err, ErrUnplayable)
	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, extra, active)
}

func TestResolverSelectClearsFailure(t *testing.T) {
	r := newTestResolver()
	r.Init([]Candidate{filedon1080})
	for i := 0; i <= DefaultMaxRetries; i++ {
		r.OnPlaybackError()
	}
	require.Equal(t, StateFailed, r.State())

	d, err := r.SelectCandidate(filedon1080)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, d.State)
	assert.Equal(t, FailureNone, d.Failure)
	assert.Equal(t, 1, d.Attempt)
}

func TestResolverSnapshot(t *testing.T) {
	r := newTestResolver()
	r.Init([]Candidate{filedon1080, megaShare})
	for i := 0; i <= DefaultMaxRetries; i++ {
		r.OnPlaybackError()
	}

	snap := r.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, 1, snap.Active)
	assert.Equal(t, []string{"filedon", "mega"}, snap.AttemptedHosts)
	assert.Equal(t, 2, snap.AttemptedURLs)
	assert.Equal(t, 0, snap.Retries)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{RetryDelay: time.Second}.withDefaults()
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultLastResortMaxRetries, cfg.LastResortMaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}
