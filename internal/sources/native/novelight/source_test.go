package novelight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/novelshelf/backend/internal/sources"
)

const libraryFixture = `
<!DOCTYPE html>
<html>
<body>
  <ul class="novel-list">
    <li class="novel-item">
      <a href="/novel/shadow-slave/" title="Shadow Slave">
        <img data-src="/covers/shadow-slave.webp" alt="Shadow Slave">
        <h4 class="novel-title">Shadow Slave</h4>
      </a>
    </li>
    <li class="novel-item">
      <a href="/novel/lord-of-the-mysteries">
        <img src="https://cdn.novelight.net/covers/lotm.webp" alt="LotM">
        <h4 class="novel-title">Lord of the Mysteries</h4>
      </a>
    </li>
  </ul>
</body>
</html>`

const detailFixture = `
<!DOCTYPE html>
<html>
<head>
  <script id="__NUXT_DATA__" type="application/json">[1,"state",{"title":"Shadow Slave"},{"path":"/novel/abc123","kind":"book"}]</script>
</head>
<body>
  <div class="novel-header">
    <h1 class="novel-title">Shadow Slave</h1>
    <span class="author"><a href="/author/guiltythree">Guiltythree</a></span>
    <span class="status">Ongoing</span>
  </div>
  <figure class="cover"><img data-src="/covers/shadow-slave.webp"></figure>
  <div class="categories">
    <a href="/genre/fantasy">Fantasy</a>
    <a href="/genre/action">Action</a>
  </div>
  <div class="tags">
    <a href="/tag/dungeons">Dungeons</a>
    <a href="/tag/action">Action</a>
  </div>
  <div class="summary"><div class="content">
    In the Dream Realm, nightmares are real.
  </div></div>
  <ul class="chapter-list">
    <li><a href="/novel/shadow-slave/chapter-1/">
      <span class="chapter-title">Chapter 1: Nightmare Begins</span>
      <span class="chapter-update">2 days ago</span>
    </a></li>
    <li><a href="/novel/shadow-slave/chapter-2">
      <span class="chapter-title">Chapter 2: Shadow</span>
      <span class="chapter-update">5 hours ago</span>
    </a></li>
    <li><a>
      <span class="chapter-title">Chapter broken</span>
    </a></li>
  </ul>
  <ul class="pagination">
    <li><a class="page-link" href="?page=1">1</a></li>
    <li><a class="page-link" href="?page=2">2</a></li>
    <li><a class="page-link" href="?page=12">12</a></li>
  </ul>
</body>
</html>`

func newTestSource(t *testing.T, handler http.Handler) (*Source, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithOptions(server.URL, &http.Client{Timeout: 5 * time.Second}, nil), server
}

func TestListPopularAndSearchParseSummaries(t *testing.T) {
	var libraryHits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/library", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&libraryHits, 1)
		if r.URL.Query().Get("query") == "nothing" {
			_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><ul class="novel-list"></ul></body></html>`))
			return
		}
		_, _ = w.Write([]byte(libraryFixture))
	})

	source, server := newTestSource(t, mux)

	items, err := source.ListPopular(context.Background(), 1)
	if err != nil {
		t.Fatalf("list popular failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(items))
	}
	if items[0].Path != "novel/shadow-slave" {
		t.Fatalf("expected normalized path novel/shadow-slave, got %q", items[0].Path)
	}
	if items[0].Name != "Shadow Slave" {
		t.Fatalf("unexpected name %q", items[0].Name)
	}
	if items[0].CoverURL != server.URL+"/covers/shadow-slave.webp" {
		t.Fatalf("expected absolute cover url, got %q", items[0].CoverURL)
	}
	if items[1].CoverURL != "https://cdn.novelight.net/covers/lotm.webp" {
		t.Fatalf("expected absolute cover kept as-is, got %q", items[1].CoverURL)
	}

	empty, err := source.Search(context.Background(), "nothing", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty result for well-formed page without entries, got %d", len(empty))
	}

	// Same URL twice hits the fetch memoizer, not the server.
	if _, err := source.ListPopular(context.Background(), 1); err != nil {
		t.Fatalf("second list popular failed: %v", err)
	}
	if got := atomic.LoadInt64(&libraryHits); got != 2 {
		t.Fatalf("expected 2 library fetches (browse + search), got %d", got)
	}
}

func TestNovelDetailParsesFullModel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/shadow-slave", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detailFixture))
	})

	source, server := newTestSource(t, mux)

	reference := time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return reference }

	detail, err := source.NovelDetail(context.Background(), "/novel/shadow-slave/")
	if err != nil {
		t.Fatalf("novel detail failed: %v", err)
	}

	if detail.Name != "Shadow Slave" {
		t.Fatalf("unexpected name %q", detail.Name)
	}
	if detail.Author != "Guiltythree" {
		t.Fatalf("unexpected author %q", detail.Author)
	}
	if detail.CoverURL != server.URL+"/covers/shadow-slave.webp" {
		t.Fatalf("unexpected cover %q", detail.CoverURL)
	}
	if detail.Genres != "Fantasy, Action, Dungeons, Action" {
		t.Fatalf("expected genres then tags with duplicates kept, got %q", detail.Genres)
	}
	if detail.Summary != "In the Dream Realm, nightmares are real." {
		t.Fatalf("unexpected summary %q", detail.Summary)
	}
	if detail.Status != sources.StatusOngoing {
		t.Fatalf("expected Ongoing status, got %s", detail.Status)
	}
	if detail.TotalPages != 12 {
		t.Fatalf("expected 12 total pages, got %d", detail.TotalPages)
	}

	if len(detail.Chapters) != 2 {
		t.Fatalf("expected anchors without href dropped, got %d chapters", len(detail.Chapters))
	}
	if detail.Chapters[0].Path != "novel/shadow-slave/chapter-1" {
		t.Fatalf("expected single leading/trailing slash stripped, got %q", detail.Chapters[0].Path)
	}
	if detail.Chapters[0].Name != "Chapter 1: Nightmare Begins" {
		t.Fatalf("unexpected chapter name %q", detail.Chapters[0].Name)
	}
	wantRelease := reference.AddDate(0, 0, -2)
	if detail.Chapters[0].ReleaseAt == nil || !detail.Chapters[0].ReleaseAt.Equal(wantRelease) {
		t.Fatalf("expected release %s, got %v", wantRelease, detail.Chapters[0].ReleaseAt)
	}
	wantRelease = reference.Add(-5 * time.Hour)
	if detail.Chapters[1].ReleaseAt == nil || !detail.Chapters[1].ReleaseAt.Equal(wantRelease) {
		t.Fatalf("expected release %s, got %v", wantRelease, detail.Chapters[1].ReleaseAt)
	}

	// The hydration payload identifier ends up in the cache.
	id, ok := source.cachedIdentifier("novel/shadow-slave")
	if !ok || id != "abc123" {
		t.Fatalf("expected cached identifier abc123, got %q (%v)", id, ok)
	}
}

func TestNovelDetailFailsWithoutTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/broken", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><head><script id="__NUXT_DATA__" type="application/json">[]</script></head><body><p>not a novel page</p></body></html>`))
	})

	source, _ := newTestSource(t, mux)

	_, err := source.NovelDetail(context.Background(), "novel/broken")
	if !sources.IsStructuralParse(err) {
		t.Fatalf("expected structural parse error, got %v", err)
	}
}

func TestNovelDetailFailsWithoutHydrationPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/static", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><h1 class="novel-title">Static Novel</h1></body></html>`))
	})

	source, _ := newTestSource(t, mux)

	_, err := source.NovelDetail(context.Background(), "novel/static")
	if !sources.IsStructuralParse(err) {
		t.Fatalf("expected structural parse error, got %v", err)
	}
}

func TestNovelDetailStatusDefaultsToCompleted(t *testing.T) {
	page := strings.Replace(detailFixture, `<span class="status">Ongoing</span>`, `<span class="status">Hiatus</span>`, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/shadow-slave", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	})

	source, _ := newTestSource(t, mux)

	detail, err := source.NovelDetail(context.Background(), "novel/shadow-slave")
	if err != nil {
		t.Fatalf("novel detail failed: %v", err)
	}
	if detail.Status != sources.StatusCompleted {
		t.Fatalf("expected unrecognized status to map to Completed, got %s", detail.Status)
	}
}

func TestChapterPageQueriesSecondaryAPI(t *testing.T) {
	var gotBody chapterAPIRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/shadow-slave", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detailFixture))
	})
	mux.HandleFunc("/api/__api_party/api-v1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"_data":[
			{"title":"Chapter 41","slug":"chapter-41","created_at":"2026-03-01T08:30:00Z"},
			{"title":"Chapter 42","slug":"chapter-42","created_at":"not a date"}
		]}`))
	})

	source, _ := newTestSource(t, mux)

	chapters, err := source.ChapterPage(context.Background(), "novel/shadow-slave", 3)
	if err != nil {
		t.Fatalf("chapter page failed: %v", err)
	}

	if gotBody.Path != "/chapter/all/abc123" {
		t.Fatalf("expected api path /chapter/all/abc123, got %q", gotBody.Path)
	}
	if gotBody.Query.Page != 3 {
		t.Fatalf("expected page 3 in api query, got %d", gotBody.Query.Page)
	}
	if gotBody.Method != "get" {
		t.Fatalf("expected inner method get, got %q", gotBody.Method)
	}

	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Path != "novel/shadow-slave/chapter-41" {
		t.Fatalf("unexpected chapter path %q", chapters[0].Path)
	}
	want := time.Date(2026, time.March, 1, 8, 30, 0, 0, time.UTC)
	if chapters[0].ReleaseAt == nil || !chapters[0].ReleaseAt.Equal(want) {
		t.Fatalf("expected absolute release %s, got %v", want, chapters[0].ReleaseAt)
	}
	if chapters[1].ReleaseAt != nil {
		t.Fatalf("expected unparsable created_at to yield nil release, got %v", chapters[1].ReleaseAt)
	}
}

func TestChapterPageFailsWithUpstreamStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/shadow-slave", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detailFixture))
	})
	mux.HandleFunc("/api/__api_party/api-v1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	source, _ := newTestSource(t, mux)

	_, err := source.ChapterPage(context.Background(), "novel/shadow-slave", 1)
	apiErr, ok := sources.AsUpstreamAPI(err)
	if !ok {
		t.Fatalf("expected upstream api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", apiErr.StatusCode)
	}
}

func TestChapterPageFailsWhenIdentifierUnrecoverable(t *testing.T) {
	page := strings.Replace(detailFixture,
		`[1,"state",{"title":"Shadow Slave"},{"path":"/novel/abc123","kind":"book"}]`,
		`[1,"state",{"title":"Shadow Slave"}]`, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/shadow-slave", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	})

	source, _ := newTestSource(t, mux)

	_, err := source.ChapterPage(context.Background(), "novel/shadow-slave", 1)
	if !sources.IsIdentifierResolution(err) {
		t.Fatalf("expected identifier resolution error, got %v", err)
	}
}

func TestCachedIdentifierExpiresAfterOneHour(t *testing.T) {
	source := NewWithOptions("https://novelight.net", nil, nil)

	current := time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return current }

	source.storeIdentifier("novel/shadow-slave", "abc123")

	current = current.Add(59 * time.Minute)
	if id, ok := source.cachedIdentifier("novel/shadow-slave"); !ok || id != "abc123" {
		t.Fatalf("expected identifier valid before ttl, got %q (%v)", id, ok)
	}

	current = current.Add(2 * time.Minute)
	if _, ok := source.cachedIdentifier("novel/shadow-slave"); ok {
		t.Fatalf("expected identifier absent after ttl")
	}
}

func TestChapterContentIsSanitized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/shadow-slave/chapter-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`
<!DOCTYPE html>
<html>
<body>
  <article id="chapter-article">
    <div class="chapter-content"><script>track()</script><p onclick="x()">Sunless woke up.</p><noscript>js off</noscript></div>
  </article>
</body>
</html>`))
	})
	mux.HandleFunc("/novel/shadow-slave/chapter-2", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><p>no container here</p></body></html>`))
	})

	source, _ := newTestSource(t, mux)

	content, err := source.ChapterContent(context.Background(), "novel/shadow-slave/chapter-1")
	if err != nil {
		t.Fatalf("chapter content failed: %v", err)
	}
	if content != "<p>Sunless woke up.</p>" {
		t.Fatalf("unexpected sanitized content %q", content)
	}

	empty, err := source.ChapterContent(context.Background(), "novel/shadow-slave/chapter-2")
	if err != nil {
		t.Fatalf("chapter content without container failed: %v", err)
	}
	if empty != "" {
		t.Fatalf("expected empty content for missing container, got %q", empty)
	}
}

func TestIdentifierFromHydrationShapes(t *testing.T) {
	cases := []struct {
		payload string
		want    string
	}{
		{`[{"path":"/novel/abc123"}]`, "abc123"},
		{`[1,"x",{"other":true},{"path":"/novel/deep/xyz-9"}]`, "xyz-9"},
		{`[{"path":""}]`, ""},
		{`[{"title":"no path"}]`, ""},
		{`{"path":"/novel/abc123"}`, ""},
		{`not json`, ""},
	}

	for _, tc := range cases {
		if got := identifierFromHydration(tc.payload); got != tc.want {
			t.Fatalf("payload %q: expected %q, got %q", tc.payload, tc.want, got)
		}
	}
}
