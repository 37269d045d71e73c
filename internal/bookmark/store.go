// Package bookmark persists the viewer's watch and read list as one JSON
// array under a single key of a store.Blob.
//
// The Store never returns errors. Validation failures, unknown ids and
// storage trouble are logged, reported through the notifier and answered
// with the unchanged (or empty) collection.
package bookmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/domain"
	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/notify"
	"github.com/MrSnakeDoc/tonton/internal/store"
)

// DefaultKey is the storage key of the collection.
const DefaultKey = "tonton:bookmarks"

// Notice codes emitted by the store.
const (
	CodeAdded        = "bookmark.added"
	CodeMerged       = "bookmark.merged"
	CodeInvalid      = "bookmark.invalid"
	CodeRemoved      = "bookmark.removed"
	CodeNotFound     = "bookmark.not_found"
	CodeProgress     = "bookmark.progress"
	CodeCompleted    = "bookmark.completed"
	CodeCategory     = "bookmark.category"
	CodeDeduplicated = "bookmark.deduplicated"
	CodeStorage      = "bookmark.storage_error"
)

// Options tunes a Store. Zero values pick the defaults.
type Options struct {
	Key                 string
	CompletionThreshold int
	Now                 func() time.Time
}

// Store is the bookmark collection.
type Store struct {
	mu        sync.Mutex // serializes read-modify-write cycles
	blob      store.Blob
	key       string
	threshold int
	now       func() time.Time
	log       logger.Logger
	notifier  notify.Notifier
}

// New creates a Store over blob.
func New(blob store.Blob, log logger.Logger, notifier notify.Notifier, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.CompletionThreshold == 0 {
		opts.CompletionThreshold = domain.DefaultCompletionThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = notify.Fanout{Base: notify.NewLog(log)}
	}

	return &Store{
		blob:      blob,
		key:       opts.Key,
		threshold: opts.CompletionThreshold,
		now:       opts.Now,
		log:       log.With(logger.String("component", "bookmarks")),
		notifier:  notifier,
	}
}

// Key returns the storage key.
func (s *Store) Key() string { return s.key }

// Backend returns the name of the blob backend.
func (s *Store) Backend() string { return s.blob.Name() }

// CompletionThreshold returns the progress at which a bookmark completes.
func (s *Store) CompletionThreshold() int { return s.threshold }

// ─────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────

// ListAll returns every bookmark, most recently updated first.
func (s *Store) ListAll(ctx context.Context) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _ := s.load(ctx)
	return sorted(records)
}

// Get fetches one bookmark by id.
func (s *Store) Get(ctx context.Context, id string) (domain.Bookmark, bool) {
	id = domain.NormalizeID(id)
	for _, b := range s.ListAll(ctx) {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Bookmark{}, false
}

// IsBookmarked reports whether id is in the collection.
func (s *Store) IsBookmarked(ctx context.Context, id string) bool {
	_, ok := s.Get(ctx, id)
	return ok
}

// ListByType filters ListAll by type.
func (s *Store) ListByType(ctx context.Context, t domain.Type) []domain.Bookmark {
	return filter(s.ListAll(ctx), func(b domain.Bookmark) bool { return b.Type == t })
}

// ListByCategory filters ListAll by category.
func (s *Store) ListByCategory(ctx context.Context, c domain.Category) []domain.Bookmark {
	return filter(s.ListAll(ctx), func(b domain.Bookmark) bool { return b.Category == c })
}

// ExtractEpisodeNumber is domain.ExtractEpisodeNumber.
func (s *Store) ExtractEpisodeNumber(title string) int { return domain.ExtractEpisodeNumber(title) }

// ExtractChapterNumber is domain.ExtractChapterNumber.
func (s *Store) ExtractChapterNumber(title string) int { return domain.ExtractChapterNumber(title) }

// ─────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────

// Add inserts b or merges it into the existing record with the same id.
func (s *Store) Add(ctx context.Context, b domain.Bookmark) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return sorted(records)
	}

	if err := domain.Validate(b); err != nil {
		s.log.Error("rejected bookmark", logger.String("id", b.ID), logger.Error(err))
		s.notify(ctx, notify.LevelError, CodeInvalid, fmt.Sprintf("Bookmark not saved: %v", err))
		return sorted(records)
	}

	next, merged := s.upsert(records, b)
	if !s.persist(ctx, next) {
		return sorted(records)
	}

	if merged {
		s.notify(ctx, notify.LevelSuccess, CodeMerged, fmt.Sprintf("%s updated", displayTitle(b)))
	} else {
		s.notify(ctx, notify.LevelSuccess, CodeAdded, fmt.Sprintf("%s bookmarked", displayTitle(b)))
	}
	return sorted(next)
}

// Remove deletes id from the collection.
func (s *Store) Remove(ctx context.Context, id string) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return sorted(records)
	}

	id = domain.NormalizeID(id)
	next := filter(records, func(b domain.Bookmark) bool { return b.ID != id })
	if len(next) == len(records) {
		s.log.Warn("remove: bookmark not found", logger.String("id", id))
		s.notify(ctx, notify.LevelWarning, CodeNotFound, "Bookmark not found")
		return sorted(records)
	}

	if !s.persist(ctx, next) {
		return sorted(records)
	}
	s.notify(ctx, notify.LevelSuccess, CodeRemoved, "Bookmark removed")
	return sorted(next)
}

// UpdateProgress records the last episode or chapter reached. Unknown ids
// are not created.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return sorted(records)
	}

	id = domain.NormalizeID(id)
	if progress < 0 {
		s.log.Error("rejected progress", logger.String("id", id), logger.Int("progress", progress))
		s.notify(ctx, notify.LevelError, CodeInvalid, domain.ErrNegativeProgress.Error())
		return sorted(records)
	}

	i := indexOf(records, id)
	if i < 0 {
		s.log.Warn("update progress: bookmark not found", logger.String("id", id))
		s.notify(ctx, notify.LevelWarning, CodeNotFound, "Bookmark not found")
		return sorted(records)
	}

	next := clone(records)
	next[i] = domain.ApplyProgress(next[i], progress, s.threshold, s.now())
	if !s.persist(ctx, next) {
		return sorted(records)
	}

	if next[i].Category == domain.CategoryCompleted && records[i].Category != domain.CategoryCompleted {
		s.notify(ctx, notify.LevelSuccess, CodeCompleted, fmt.Sprintf("%s completed", displayTitle(next[i])))
	} else {
		s.notify(ctx, notify.LevelInfo, CodeProgress,
			fmt.Sprintf("%s: %s %d", displayTitle(next[i]), next[i].Type.Unit(), progress))
	}
	return sorted(next)
}

// UpdateCategory moves id to another shelf.
func (s *Store) UpdateCategory(ctx context.Context, id string, category domain.Category) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return sorted(records)
	}

	id = domain.NormalizeID(id)
	if !category.Valid() {
		s.log.Error("rejected category", logger.String("id", id), logger.String("category", string(category)))
		s.notify(ctx, notify.LevelError, CodeInvalid, fmt.Sprintf("%v: %q", domain.ErrInvalidCategory, category))
		return sorted(records)
	}

	i := indexOf(records, id)
	if i < 0 {
		s.log.Warn("update category: bookmark not found", logger.String("id", id))
		s.notify(ctx, notify.LevelWarning, CodeNotFound, "Bookmark not found")
		return sorted(records)
	}

	next := clone(records)
	next[i].Category = category
	next[i].UpdatedAt = s.now()
	if !s.persist(ctx, next) {
		return sorted(records)
	}

	s.notify(ctx, notify.LevelSuccess, CodeCategory, fmt.Sprintf("Moved to %s", category))
	return sorted(next)
}

// Deduplicate drops repeated ids and same-title records, keeping the
// richest one, and persists the result when anything changed.
func (s *Store) Deduplicate(ctx context.Context) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return sorted(records)
	}

	kept, dropped := domain.Deduplicate(records)
	if dropped == 0 {
		s.log.Debug("deduplicate: nothing to do", logger.Int("count", len(records)))
		return sorted(records)
	}

	if !s.persist(ctx, kept) {
		return sorted(records)
	}

	s.log.Info("deduplicated bookmarks",
		logger.Int("before", len(records)),
		logger.Int("after", len(kept)),
		logger.Int("dropped", dropped))
	s.notify(ctx, notify.LevelInfo, CodeDeduplicated, fmt.Sprintf("Removed %d duplicate bookmarks", dropped))
	return sorted(kept)
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Added     int `json:"added"`
	Merged    int `json:"merged"`
	Unchanged int `json:"unchanged"`
	Rejected  int `json:"rejected"`
}

// Import inserts records whose id is unknown. Known ids only get their
// missing fields filled, so re-importing the same file never rolls back
// progress or category the viewer changed since, nor reorders the list.
func (s *Store) Import(ctx context.Context, records []domain.Bookmark) ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res ImportResult

	current, err := s.load(ctx)
	if err != nil {
		res.Rejected = len(records)
		return res
	}

	next := clone(current)
	for _, b := range records {
		if err := domain.Validate(b); err != nil {
			s.log.Warn("import: rejected bookmark", logger.String("id", b.ID), logger.Error(err))
			res.Rejected++
			continue
		}

		if i := indexOf(next, domain.NormalizeID(b.ID)); i >= 0 {
			filled, changed := domain.FillMissing(next[i], b)
			if !changed {
				res.Unchanged++
				continue
			}
			next[i] = filled
			res.Merged++
			continue
		}

		next = append(next, domain.ApplyCompletion(domain.Prepare(b, s.now()), s.threshold))
		res.Added++
	}

	if res.Added+res.Merged == 0 {
		return res
	}
	if !s.persist(ctx, next) {
		return ImportResult{Rejected: len(records)}
	}
	return res
}

// Stats counts bookmarks per type and per category.
type Stats struct {
	Total      int                     `json:"total"`
	ByType     map[domain.Type]int     `json:"by_type"`
	ByCategory map[domain.Category]int `json:"by_category"`
}

// Stats summarizes the collection.
func (s *Store) Stats(ctx context.Context) Stats {
	all := s.ListAll(ctx)
	st := Stats{
		Total:      len(all),
		ByType:     make(map[domain.Type]int),
		ByCategory: make(map[domain.Category]int),
	}
	for _, b := range all {
		st.ByType[b.Type]++
		st.ByCategory[b.Category]++
	}
	return st
}

// ─────────────────────────────────────────────────────────────────
// Internals (callers hold s.mu)
// ─────────────────────────────────────────────────────────────────

// upsert returns a new slice with b merged or appended.
func (s *Store) upsert(records []domain.Bookmark, b domain.Bookmark) ([]domain.Bookmark, bool) {
	now := s.now()
	id := domain.NormalizeID(b.ID)
	next := clone(records)

	if i := indexOf(next, id); i >= 0 {
		next[i] = domain.ApplyCompletion(domain.Merge(next[i], b, now), s.threshold)
		return next, true
	}

	next = append(next, domain.ApplyCompletion(domain.Prepare(b, now), s.threshold))
	return next, false
}

// load reads and decodes the collection. Corrupt data degrades to an empty
// list with a nil error; only a failing backend returns an error.
func (s *Store) load(ctx context.Context) ([]domain.Bookmark, error) {
	raw, found, err := s.blob.Get(ctx, s.key)
	if err != nil {
		s.log.Error("failed to read bookmarks", logger.Error(err))
		s.notify(ctx, notify.LevelError, CodeStorage, "Bookmarks are unavailable right now")
		return nil, err
	}
	if !found || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	records, err := decode(raw)
	if err != nil {
		s.log.Error("corrupt bookmark data, starting from an empty list", logger.Error(err))
		return nil, nil
	}
	return records, nil
}

// persist serializes and writes records, reporting failure as false.
func (s *Store) persist(ctx context.Context, records []domain.Bookmark) bool {
	if records == nil {
		records = []domain.Bookmark{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		s.log.Error("failed to encode bookmarks", logger.Error(err))
		s.notify(ctx, notify.LevelError, CodeStorage, "Bookmarks could not be saved")
		return false
	}
	if err := s.blob.Set(ctx, s.key, string(data)); err != nil {
		s.log.Error("failed to save bookmarks", logger.Error(err))
		s.notify(ctx, notify.LevelError, CodeStorage, "Bookmarks could not be saved")
		return false
	}
	return true
}

func (s *Store) notify(ctx context.Context, level notify.Level, code, msg string) {
	s.notifier.Notify(ctx, notify.Notice{Level: level, Code: code, Message: msg})
}

var errNotArray = errors.New("bookmark data is not a JSON array")

// decode tolerates individual bad entries: they are skipped, the rest kept.
func decode(raw string) ([]domain.Bookmark, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotArray, err)
	}

	records := make([]domain.Bookmark, 0, len(items))
	for _, item := range items {
		var b domain.Bookmark
		if err := json.Unmarshal(item, &b); err != nil {
			continue
		}
		b.ID = domain.NormalizeID(b.ID)
		if b.ID == "" {
			continue
		}
		records = append(records, b)
	}
	return records, nil
}

func sorted(records []domain.Bookmark) []domain.Bookmark {
	out := clone(records)
	domain.SortByUpdatedDesc(out)
	return out
}

func clone(records []domain.Bookmark) []domain.Bookmark {
	out := make([]domain.Bookmark, len(records))
	copy(out, records)
	return out
}

func filter(records []domain.Bookmark, keep func(domain.Bookmark) bool) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(records))
	for _, b := range records {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// indexOf expects id and records to be normalized already.
func indexOf(records []domain.Bookmark, id string) int {
	for i, b := range records {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func displayTitle(b domain.Bookmark) string {
	if b.HasKnownTitle() {
		return strings.TrimSpace(b.Title)
	}
	return domain.NormalizeID(b.ID)
}
