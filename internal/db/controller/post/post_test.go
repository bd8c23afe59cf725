package post

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/db/testdb"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }

func newPost(slug, lang string) *models.Post {
	return &models.Post{
		Slug:     slug,
		Language: lang,
		Title:    "Title " + slug,
		Body:     "body of " + slug,
		Author:   "tester",
	}
}

func mustCreate(t *testing.T, db *gorm.DB, p *models.Post) *models.Post {
	t.Helper()
	require.NoError(t, Create(db, p, baseTime))

	return p
}

func TestApplyState(t *testing.T) {
	earlier := baseTime.Add(-time.Hour)

	tests := []struct {
		name          string
		post          models.Post
		wantState     models.PostState
		wantPublished *time.Time
	}{
		{
			name:      "draft",
			post:      models.Post{},
			wantState: models.PostStateDraft,
		},
		{
			name:      "scheduled keeps schedule",
			post:      models.Post{ScheduledAt: ptrTime(baseTime.Add(time.Hour))},
			wantState: models.PostStateScheduled,
		},
		{
			name:          "published clears schedule and stamps publishedAt",
			post:          models.Post{Published: true, ScheduledAt: ptrTime(baseTime.Add(time.Hour))},
			wantState:     models.PostStatePublished,
			wantPublished: &baseTime,
		},
		{
			name:          "published keeps existing publishedAt",
			post:          models.Post{Published: true, PublishedAt: &earlier},
			wantState:     models.PostStatePublished,
			wantPublished: &earlier,
		},
		{
			name:      "unpublished drops publishedAt",
			post:      models.Post{PublishedAt: &earlier},
			wantState: models.PostStateDraft,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.post
			ApplyState(&p, baseTime)

			assert.Equal(t, tt.wantState, p.State())

			if tt.wantPublished == nil {
				assert.Nil(t, p.PublishedAt)
			} else {
				require.NotNil(t, p.PublishedAt)
				assert.True(t, tt.wantPublished.Equal(*p.PublishedAt))
			}

			if p.Published {
				assert.Nil(t, p.ScheduledAt)
			}
		})
	}
}

func TestCreateRejectsDuplicateSlugPerLanguage(t *testing.T) {
	db := testdb.New(t)

	mustCreate(t, db, newPost("hello", "en"))
	mustCreate(t, db, newPost("hello", "de"))

	err := Create(db, newPost("hello", "en"), baseTime)
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestUpdate(t *testing.T) {
	db := testdb.New(t)

	first := mustCreate(t, db, newPost("first", "en"))
	mustCreate(t, db, newPost("second", "en"))

	first.Slug = "second"
	require.ErrorIs(t, Update(db, first, false, baseTime), ErrSlugTaken)

	first.Slug = "first-renamed"
	first.Published = true
	require.NoError(t, Update(db, first, false, baseTime))

	got, err := GetByID(db, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first-renamed", got.Slug)
	assert.True(t, got.Published)
	require.NotNil(t, got.PublishedAt)

	require.ErrorIs(t, Update(db, &models.Post{}, false, baseTime), ErrPostNotFound)
}

func TestUpdateDoesNotOverwriteSweep(t *testing.T) {
	db := testdb.New(t)

	p := newPost("due", "en")
	p.ScheduledAt = ptrTime(baseTime.Add(-time.Minute))
	mustCreate(t, db, p)

	// an editor loads the scheduled post, then the sweep publishes it
	edit, err := GetByID(db, p.ID)
	require.NoError(t, err)

	ok, err := MarkPublished(db, p.ID, baseTime)
	require.NoError(t, err)
	require.True(t, ok)

	edit.Title = "Edited"
	require.ErrorIs(t, Update(db, edit, false, baseTime.Add(time.Second)), ErrPostChanged)

	got, err := GetByID(db, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Published)
	assert.Nil(t, got.ScheduledAt)
	assert.Equal(t, "Title due", got.Title)

	due, err := FindDue(db, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestUpdateWithoutChangesSucceeds(t *testing.T) {
	db := testdb.New(t)

	p := mustCreate(t, db, newPost("same", "en"))

	same, err := GetByID(db, p.ID)
	require.NoError(t, err)
	require.NoError(t, Update(db, same, false, baseTime))
}

func TestGetBySlug(t *testing.T) {
	db := testdb.New(t)

	draft := mustCreate(t, db, newPost("draft", "en"))
	live := newPost("live", "en")
	live.Published = true
	mustCreate(t, db, live)

	_, err := GetBySlug(db, "en", "draft", true)
	require.ErrorIs(t, err, ErrPostNotFound)

	got, err := GetBySlug(db, "en", "draft", false)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	got, err = GetBySlug(db, "en", "live", true)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	_, err = GetBySlug(db, "de", "live", true)
	require.ErrorIs(t, err, ErrPostNotFound)

	_, err = GetBySlug(nil, "en", "live", true)
	require.ErrorIs(t, err, ErrDBNil)
}

func TestList(t *testing.T) {
	db := testdb.New(t)

	a := newPost("go-channels", "en")
	a.Published = true
	a.Title = "Understanding Go channels"
	a.Tags = []string{"go", "concurrency"}
	a.PublishedAt = ptrTime(baseTime.Add(-2 * time.Hour))
	mustCreate(t, db, a)

	b := newPost("rust-intro", "en")
	b.Published = true
	b.Tags = []string{"rust"}
	b.PublishedAt = ptrTime(baseTime.Add(-time.Hour))
	mustCreate(t, db, b)

	c := newPost("go-kanaele", "de")
	c.Published = true
	c.Tags = []string{"go"}
	mustCreate(t, db, c)

	d := newPost("scheduled", "en")
	d.ScheduledAt = ptrTime(baseTime.Add(time.Hour))
	d.Tags = []string{"go"}
	mustCreate(t, db, d)

	mustCreate(t, db, newPost("draft", "en"))

	tests := []struct {
		name      string
		filter    Filter
		wantSlugs []string
		wantTotal int64
		wantErr   error
	}{
		{
			name:      "public english newest first",
			filter:    Filter{PublishedOnly: true, Language: "en"},
			wantSlugs: []string{"rust-intro", "go-channels"},
			wantTotal: 2,
		},
		{
			name:      "public by tag",
			filter:    Filter{PublishedOnly: true, Tag: "go", Language: "en"},
			wantSlugs: []string{"go-channels"},
			wantTotal: 1,
		},
		{
			name:      "search is case insensitive",
			filter:    Filter{PublishedOnly: true, Query: "CHANNELS"},
			wantSlugs: []string{"go-channels"},
			wantTotal: 1,
		},
		{
			name:      "admin scheduled",
			filter:    Filter{Status: models.PostStateScheduled},
			wantSlugs: []string{"scheduled"},
			wantTotal: 1,
		},
		{
			name:      "admin drafts",
			filter:    Filter{Status: models.PostStateDraft},
			wantSlugs: []string{"draft"},
			wantTotal: 1,
		},
		{
			name:      "pagination",
			filter:    Filter{PublishedOnly: true, Language: "en", Limit: 1, Page: 2},
			wantSlugs: []string{"go-channels"},
			wantTotal: 2,
		},
		{
			name:    "unknown status",
			filter:  Filter{Status: "archived"},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := List(db, tt.filter)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, page.Total)

			slugs := make([]string, 0, len(page.Items))
			for _, p := range page.Items {
				slugs = append(slugs, p.Slug)
			}

			assert.Equal(t, tt.wantSlugs, slugs)
		})
	}
}

func TestListPagingDefaults(t *testing.T) {
	db := testdb.New(t)

	page, err := List(db, Filter{Page: -1, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxLimit, page.Limit)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestTranslations(t *testing.T) {
	db := testdb.New(t)

	group := ptrString("b7c1d0e2")

	en := newPost("hello", "en")
	en.TranslationGroup = group
	en.Published = true
	mustCreate(t, db, en)

	de := newPost("hallo", "de")
	de.TranslationGroup = group
	de.Published = true
	mustCreate(t, db, de)

	fr := newPost("bonjour", "fr")
	fr.TranslationGroup = group
	mustCreate(t, db, fr)

	siblings, err := Translations(db, *group, en.ID, true)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, "de", siblings[0].Language)

	all, err := Translations(db, *group, 0, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"de", "en", "fr"}, []string{all[0].Language, all[1].Language, all[2].Language})

	_, err = Translations(db, "", 0, false)
	require.ErrorIs(t, err, ErrGroupEmpty)
}

func TestTags(t *testing.T) {
	db := testdb.New(t)

	for i, tags := range [][]string{{"go", "web"}, {"go"}, {"rust"}} {
		p := newPost(string(rune('a'+i)), "en")
		p.Published = true
		p.Tags = tags
		mustCreate(t, db, p)
	}

	hidden := newPost("hidden", "en")
	hidden.Tags = []string{"secret"}
	mustCreate(t, db, hidden)

	tags, err := Tags(db, "en")
	require.NoError(t, err)
	assert.Equal(t, []TagCount{{Tag: "go", Count: 2}, {Tag: "rust", Count: 1}, {Tag: "web", Count: 1}}, tags)
}

func TestPublishAndUnpublish(t *testing.T) {
	db := testdb.New(t)

	p := newPost("soon", "en")
	p.ScheduledAt = ptrTime(baseTime.Add(time.Hour))
	mustCreate(t, db, p)

	published, err := Publish(db, p.ID, baseTime)
	require.NoError(t, err)
	assert.True(t, published.Published)
	assert.Nil(t, published.ScheduledAt)
	require.NotNil(t, published.PublishedAt)

	draft, err := Unpublish(db, p.ID, baseTime)
	require.NoError(t, err)
	assert.Equal(t, models.PostStateDraft, draft.State())
	assert.Nil(t, draft.PublishedAt)

	_, err = Publish(db, 999, baseTime)
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestDelete(t *testing.T) {
	db := testdb.New(t)

	p := mustCreate(t, db, newPost("gone", "en"))

	deleted, err := Delete(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "gone", deleted.Slug)

	_, err = GetByID(db, p.ID)
	require.ErrorIs(t, err, ErrPostNotFound)

	_, err = Delete(db, p.ID)
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestFindDue(t *testing.T) {
	db := testdb.New(t)

	due := newPost("due", "en")
	due.ScheduledAt = ptrTime(baseTime.Add(-time.Second))
	mustCreate(t, db, due)

	exact := newPost("exact", "en")
	exact.ScheduledAt = ptrTime(baseTime)
	mustCreate(t, db, exact)

	future := newPost("future", "en")
	future.ScheduledAt = ptrTime(baseTime.Add(time.Minute))
	mustCreate(t, db, future)

	mustCreate(t, db, newPost("draft", "en"))

	live := newPost("live", "en")
	live.Published = true
	mustCreate(t, db, live)

	posts, err := FindDue(db, baseTime)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "due", posts[0].Slug)
	assert.Equal(t, "exact", posts[1].Slug)
}

func TestMarkPublished(t *testing.T) {
	db := testdb.New(t)

	due := newPost("due", "en")
	due.ScheduledAt = ptrTime(baseTime.Add(-time.Second))
	mustCreate(t, db, due)

	future := newPost("future", "en")
	future.ScheduledAt = ptrTime(baseTime.Add(time.Minute))
	mustCreate(t, db, future)

	draft := mustCreate(t, db, newPost("draft", "en"))

	ok, err := MarkPublished(db, due.ID, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := GetByID(db, due.ID)
	require.NoError(t, err)
	assert.True(t, got.Published)
	assert.Nil(t, got.ScheduledAt)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, baseTime.Equal(*got.PublishedAt))

	ok, err = MarkPublished(db, due.ID, baseTime)
	require.NoError(t, err)
	assert.False(t, ok, "already published post must not match again")

	ok, err = MarkPublished(db, future.ID, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = MarkPublished(db, draft.ID, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkPublishedConcurrentCallers(t *testing.T) {
	db := testdb.New(t)

	p := newPost("race", "en")
	p.ScheduledAt = ptrTime(baseTime.Add(-time.Minute))
	mustCreate(t, db, p)

	const callers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ok, err := MarkPublished(db, p.ID, baseTime)
			assert.NoError(t, err)

			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestGetStats(t *testing.T) {
	db := testdb.New(t)

	mustCreate(t, db, newPost("draft", "en"))

	scheduled := newPost("later", "de")
	scheduled.ScheduledAt = ptrTime(baseTime.Add(time.Hour))
	mustCreate(t, db, scheduled)

	for _, slug := range []string{"one", "two"} {
		p := newPost(slug, "en")
		p.Published = true
		mustCreate(t, db, p)
	}

	stats, err := GetStats(db)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Draft)
	assert.Equal(t, int64(1), stats.Scheduled)
	assert.Equal(t, int64(2), stats.Published)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, []LanguageCount{{Language: "de", Count: 1}, {Language: "en", Count: 3}}, stats.ByLanguage)
}

func TestUpcoming(t *testing.T) {
	db := testdb.New(t)

	due := newPost("due", "en")
	due.ScheduledAt = ptrTime(baseTime.Add(-time.Minute))
	mustCreate(t, db, due)

	later := newPost("later", "en")
	later.ScheduledAt = ptrTime(baseTime.Add(2 * time.Hour))
	mustCreate(t, db, later)

	soon := newPost("soon", "en")
	soon.ScheduledAt = ptrTime(baseTime.Add(time.Hour))
	mustCreate(t, db, soon)

	mustCreate(t, db, newPost("draft", "en"))

	posts, err := Upcoming(db, baseTime, 5)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "soon", posts[0].Slug)
	assert.Equal(t, "later", posts[1].Slug)

	posts, err = Upcoming(db, baseTime, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
}
