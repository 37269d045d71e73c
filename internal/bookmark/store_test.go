package bookmark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/tonton/internal/domain"
	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/notify"
	"github.com/MrSnakeDoc/tonton/internal/store/memory"
)

// fakeClock advances one second per call so every mutation is strictly newer.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) (*Store, *memory.Store, *notify.Recorder) {
	t.Helper()
	blob := memory.New()
	rec := &notify.Recorder{}
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(blob, logger.New("error", false), rec, Options{Now: clock.Now})
	return s, blob, rec
}

func anime(id, title string) domain.Bookmark {
	return domain.Bookmark{ID: id, Title: title, Type: domain.TypeAnime}
}

func TestListAllEmpty(t *testing.T) {
	s, _, _ := newTestStore(t)
	got := s.ListAll(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListAllCorruptDataDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"object instead of array", `{"id":"x"}`},
		{"string", `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, blob, _ := newTestStore(t)
			blob.Raw(DefaultKey, tt.raw)
			assert.Empty(t, s.ListAll(context.Background()))
		})
	}
}

func TestListAllSkipsBadEntries(t *testing.T) {
	s, blob, _ := newTestStore(t)
	blob.Raw(DefaultKey, `[{"id":" Naruto ","title":"Naruto","type":"anime"}, 42, {"title":"no id"}, {"id":"bleach","lastProgress":"seven"}]`)

	got := s.ListAll(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "naruto", got[0].ID)
}

func TestListAllStorageErrorDegradesToEmpty(t *testing.T) {
	s, blob, rec := newTestStore(t)
	blob.FailGet = errors.New("connection refused")

	assert.Empty(t, s.ListAll(context.Background()))
	assert.True(t, rec.Has(CodeStorage))
}

func TestAddInsertsNormalizedRecord(t *testing.T) {
	ctx := context.Background()
	s, blob, rec := newTestStore(t)

	got := s.Add(ctx, anime("  One-Piece ", "One Piece"))
	require.Len(t, got, 1)
	assert.Equal(t, "one-piece", got[0].ID)
	assert.Equal(t, domain.CategoryWatching, got[0].Category)
	assert.False(t, got[0].UpdatedAt.IsZero())
	assert.True(t, rec.Has(CodeAdded))

	raw, found, err := blob.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.True(t, found)
	var persisted []domain.Bookmark
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Len(t, persisted, 1)
}

func TestAddKomikDefaultsToReading(t *testing.T) {
	s, _, _ := newTestStore(t)
	got := s.Add(context.Background(), domain.Bookmark{ID: "berserk", Title: "Berserk", Type: domain.TypeKomik})
	require.Len(t, got, 1)
	assert.Equal(t, domain.CategoryReading, got[0].Category)
}

func TestAddRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Bookmark
	}{
		{"missing id", domain.Bookmark{Title: "X", Type: domain.TypeAnime}},
		{"missing title", domain.Bookmark{ID: "x", Type: domain.TypeAnime}},
		{"missing type", domain.Bookmark{ID: "x", Title: "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, _, rec := newTestStore(t)
			s.Add(ctx, anime("keep", "Keep"))

			got := s.Add(ctx, tt.in)
			require.Len(t, got, 1)
			assert.Equal(t, "keep", got[0].ID)
			assert.True(t, rec.Has(CodeInvalid))
		})
	}
}

func TestAddMergeKeepsImage(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestStore(t)

	first := anime("x", "X")
	first.ImageURL = "a.png"
	s.Add(ctx, first)

	got := s.Add(ctx, anime("X", "X"))
	require.Len(t, got, 1)
	assert.Equal(t, "a.png", got[0].ImageURL)
	assert.True(t, rec.Has(CodeMerged))
}

func TestAddMergeGuardsTitle(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	s.Add(ctx, anime("x", "Attack on Titan"))
	got := s.Add(ctx, anime("x", domain.UnknownTitle))

	require.Len(t, got, 1)
	assert.Equal(t, "Attack on Titan", got[0].Title)
}

func TestAddMergeRefreshesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	before := s.Add(ctx, anime("x", "X"))[0].UpdatedAt
	after := s.Add(ctx, anime("x", "X"))[0].UpdatedAt
	assert.True(t, after.After(before))
}

func TestAddWithCompletedProgress(t *testing.T) {
	s, _, _ := newTestStore(t)
	b := anime("x", "X")
	b.LastProgress = 120
	got := s.Add(context.Background(), b)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CategoryCompleted, got[0].Category)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestStore(t)
	s.Add(ctx, anime("x", "X"))
	s.Add(ctx, anime("y", "Y"))

	got := s.Remove(ctx, " X ")
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].ID)
	assert.False(t, s.IsBookmarked(ctx, "x"))
	_, ok := s.Get(ctx, "x")
	assert.False(t, ok)
	assert.True(t, rec.Has(CodeRemoved))
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestStore(t)
	s.Add(ctx, anime("x", "X"))

	got := s.Remove(ctx, "nope")
	assert.Len(t, got, 1)
	assert.True(t, rec.Has(CodeNotFound))
}

func TestUpdateProgress(t *testing.T) {
	tests := []struct {
		name     string
		start    domain.Bookmark
		progress int
		want     domain.Category
	}{
		{
			name:     "completion forces Selesai",
			start:    domain.Bookmark{ID: "x", Title: "X", Type: domain.TypeAnime, Category: domain.CategoryFavorite},
			progress: 100,
			want:     domain.CategoryCompleted,
		},
		{
			name:     "want anime promoted",
			start:    domain.Bookmark{ID: "x", Title: "X", Type: domain.TypeAnime, Category: domain.CategoryWantWatch},
			progress: 3,
			want:     domain.CategoryWatching,
		},
		{
			name:     "want komik promoted",
			start:    domain.Bookmark{ID: "x", Title: "X", Type: domain.TypeKomik, Category: domain.CategoryWantRead},
			progress: 3,
			want:     domain.CategoryReading,
		},
		{
			name:     "favorite kept",
			start:    domain.Bookmark{ID: "x", Title: "X", Type: domain.TypeAnime, Category: domain.CategoryFavorite},
			progress: 42,
			want:     domain.CategoryFavorite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, _, _ := newTestStore(t)
			s.Add(ctx, tt.start)

			s.UpdateProgress(ctx, "x", tt.progress)

			got, ok := s.Get(ctx, "x")
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.progress, got.LastProgress)
		})
	}
}

func TestUpdateProgressUnknownDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestStore(t)

	got := s.UpdateProgress(ctx, "ghost", 5)
	assert.Empty(t, got)
	assert.False(t, s.IsBookmarked(ctx, "ghost"))
	assert.True(t, rec.Has(CodeNotFound))
}

func TestUpdateProgressNegativeRejected(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestStore(t)
	s.Add(ctx, anime("x", "X"))

	s.UpdateProgress(ctx, "x", -2)
	got, _ := s.Get(ctx, "x")
	assert.Equal(t, 0, got.LastProgress)
	assert.True(t, rec.Has(CodeInvalid))
}

func TestCustomCompletionThreshold(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), logger.New("error", false), &notify.Recorder{}, Options{CompletionThreshold: 12})
	s.Add(ctx, anime("x", "X"))

	s.UpdateProgress(ctx, "x", 12)
	got, _ := s.Get(ctx, "x")
	assert.Equal(t, domain.CategoryCompleted, got.Category)
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestStore(t)
	s.Add(ctx, anime("x", "X"))

	s.UpdateCategory(ctx, "X", domain.CategoryFavorite)
	got, _ := s.Get(ctx, "x")
	assert.Equal(t, domain.CategoryFavorite, got.Category)
	assert.True(t, rec.Has(CodeCategory))

	s.UpdateCategory(ctx, "x", domain.Category("Dropped"))
	got, _ = s.Get(ctx, "x")
	assert.Equal(t, domain.CategoryFavorite, got.Category)

	assert.Len(t, s.UpdateCategory(ctx, "ghost", domain.CategoryCompleted), 1)
}

func TestListSortedNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	s.Add(ctx, anime("a", "A"))
	s.Add(ctx, anime("b", "B"))
	s.Add(ctx, anime("c", "C"))

	s.UpdateProgress(ctx, "a", 2)
	s.UpdateCategory(ctx, "b", domain.CategoryFavorite)

	got := s.ListAll(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].UpdatedAt.After(got[i-1].UpdatedAt))
	}
}

func TestListByTypeAndCategory(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	s.Add(ctx, anime("a", "A"))
	s.Add(ctx, domain.Bookmark{ID: "k", Title: "K", Type: domain.TypeKomik, Category: domain.CategoryFavorite})

	komik := s.ListByType(ctx, domain.TypeKomik)
	require.Len(t, komik, 1)
	assert.Equal(t, "k", komik[0].ID)

	fav := s.ListByCategory(ctx, domain.CategoryFavorite)
	require.Len(t, fav, 1)
	assert.Equal(t, "k", fav[0].ID)

	assert.Empty(t, s.ListByCategory(ctx, domain.CategoryCompleted))
}

func TestDeduplicateKeepsRichest(t *testing.T) {
	ctx := context.Background()
	s, blob, rec := newTestStore(t)

	blob.Raw(DefaultKey, `[
		{"id":"jjk","title":"Jujutsu Kaisen","type":"anime","category":"Sedang Ditonton","updatedAt":"2025-01-01T00:00:00Z"},
		{"id":"jujutsu-kaisen","title":"jujutsu kaisen","type":"anime","category":"Sedang Ditonton","imageUrl":"jjk.jpg","lastProgress":7,"updatedAt":"2025-01-02T00:00:00Z"},
		{"id":"JJK","title":"Jujutsu Kaisen","type":"anime","updatedAt":"2025-01-03T00:00:00Z"},
		{"id":"frieren","title":"Frieren","type":"anime","updatedAt":"2025-01-04T00:00:00Z"}
	]`)

	got := s.Deduplicate(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "frieren", got[0].ID)
	assert.Equal(t, "jujutsu-kaisen", got[1].ID)
	assert.Equal(t, "jjk.jpg", got[1].ImageURL)
	assert.True(t, rec.Has(CodeDeduplicated))

	// persisted
	assert.Len(t, s.ListAll(ctx), 2)
}

func TestDeduplicateNoopDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	s, blob, _ := newTestStore(t)
	blob.Raw(DefaultKey, `[{"id":"a","title":"A","type":"anime"}]`)

	assert.Len(t, s.Deduplicate(ctx), 1)
	assert.True(t, blob.LastSet().IsZero())
}

func TestPersistFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s, blob, rec := newTestStore(t)
	s.Add(ctx, anime("a", "A"))

	blob.FailSet = errors.New("disk full")
	got := s.Add(ctx, anime("b", "B"))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.True(t, rec.Has(CodeStorage))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	s.Add(ctx, anime("a", "A"))

	res := s.Import(ctx, []domain.Bookmark{
		anime("a", "A"),
		anime("b", "B"),
		{ID: "broken"},
	})

	assert.Equal(t, ImportResult{Added: 1, Unchanged: 1, Rejected: 1}, res)
	assert.Len(t, s.ListAll(ctx), 2)
}

func TestReimportKeepsViewerChanges(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	watchlist := []domain.Bookmark{
		{ID: "aot", Title: "Attack on Titan", Type: domain.TypeAnime, LastProgress: 3, Category: domain.CategoryWantWatch},
		{ID: "frieren", Title: "Frieren", Type: domain.TypeAnime},
	}
	require.Equal(t, ImportResult{Added: 2}, s.Import(ctx, watchlist))

	s.UpdateProgress(ctx, "aot", 12)
	s.UpdateCategory(ctx, "aot", domain.CategoryFavorite)
	s.UpdateProgress(ctx, "frieren", 4)
	before := s.ListAll(ctx)
	require.Equal(t, "frieren", before[0].ID)

	assert.Equal(t, ImportResult{Unchanged: 2}, s.Import(ctx, watchlist))

	after := s.ListAll(ctx)
	assert.Equal(t, before, after, "re-import must not touch or reorder known bookmarks")
	aot, ok := s.Get(ctx, "aot")
	require.True(t, ok)
	assert.Equal(t, 12, aot.LastProgress)
	assert.Equal(t, domain.CategoryFavorite, aot.Category)
}

func TestReimportFillsMissingFields(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	s.Add(ctx, anime("aot", domain.UnknownTitle))
	s.UpdateProgress(ctx, "aot", 7)
	stored, _ := s.Get(ctx, "aot")

	res := s.Import(ctx, []domain.Bookmark{{
		ID: "aot", Title: "Attack on Titan", Type: domain.TypeAnime,
		LastProgress: 1, ImageURL: "https://img.example/aot.jpg",
	}})
	assert.Equal(t, ImportResult{Merged: 1}, res)

	got, _ := s.Get(ctx, "aot")
	assert.Equal(t, "Attack on Titan", got.Title)
	assert.Equal(t, "https://img.example/aot.jpg", got.ImageURL)
	assert.Equal(t, 7, got.LastProgress)
	assert.Equal(t, stored.UpdatedAt, got.UpdatedAt)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	s.Add(ctx, anime("a", "A"))
	s.Add(ctx, domain.Bookmark{ID: "k", Title: "K", Type: domain.TypeKomik})

	st := s.Stats(ctx)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.ByType[domain.TypeKomik])
	assert.Equal(t, 1, st.ByCategory[domain.CategoryWatching])
	assert.Equal(t, 1, st.ByCategory[domain.CategoryReading])
}

func TestExtractHelpers(t *testing.T) {
	s, _, _ := newTestStore(t)
	assert.Equal(t, 12, s.ExtractEpisodeNumber("Episode 12"))
	assert.Equal(t, 5, s.ExtractEpisodeNumber("Eps. 5"))
	assert.Equal(t, 0, s.ExtractEpisodeNumber("Series Finale"))
	assert.Equal(t, 3, s.ExtractChapterNumber("Ch. 3"))
}
