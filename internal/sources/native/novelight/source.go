// Package novelight scrapes the Novelight catalog. Novel listings and detail
// pages are server-rendered HTML; the chapter index past the first page lives
// behind a secondary JSON API that is only addressable through an internal
// identifier mined from the detail page's hydration payload.
package novelight

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/novelshelf/backend/internal/fetchcache"
	"github.com/novelshelf/backend/internal/sources"
)

const canonicalBaseURL = "https://novelight.net"

// Selector sets for the three page families. Fixtures in the tests mirror
// this markup.
const (
	listItemSelector  = "ul.novel-list li.novel-item"
	listTitleSelector = "h4.novel-title"
	listCoverSelector = "img"

	detailTitleSelector   = "h1.novel-title"
	detailAuthorSelector  = ".novel-header .author a"
	detailCoverSelector   = "figure.cover img"
	detailGenreSelector   = ".categories a"
	detailTagSelector     = ".tags a"
	detailSummarySelector = ".summary .content"
	detailStatusSelector  = ".novel-header .status"
	hydrationSelector     = `script#__NUXT_DATA__`
	chapterItemSelector   = "ul.chapter-list li a"
	chapterNameSelector   = ".chapter-title"
	chapterAgoSelector    = ".chapter-update"
	paginationSelector    = "ul.pagination li a.page-link"

	contentSelector = "#chapter-article .chapter-content"
)

const identifierTTL = time.Hour

type identifierEntry struct {
	id       string
	storedAt time.Time
}

type Source struct {
	baseURL string
	client  *http.Client
	pages   *fetchcache.Cache
	logger  *slog.Logger
	now     func() time.Time

	idMu        sync.Mutex
	identifiers map[string]identifierEntry
}

func New() *Source {
	return NewWithOptions(canonicalBaseURL, nil, nil)
}

func NewWithOptions(baseURL string, client *http.Client, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:      client,
		pages:       fetchcache.New(fetchcache.HTTPFetch(client)),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		identifiers: map[string]identifierEntry{},
	}
}

func (s *Source) Key() string {
	return "novelight"
}

func (s *Source) Name() string {
	return "Novelight"
}

func (s *Source) Kind() string {
	return sources.KindNative
}

func (s *Source) HealthCheck(ctx context.Context) error {
	_, err := s.pages.Get(ctx, s.libraryURL(1, ""))
	return err
}

func (s *Source) ListPopular(ctx context.Context, page int) ([]sources.NovelSummary, error) {
	if page <= 0 {
		page = 1
	}
	return s.listPage(ctx, s.libraryURL(page, ""))
}

func (s *Source) Search(ctx context.Context, term string, page int) ([]sources.NovelSummary, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, fmt.Errorf("search term is required")
	}
	if page <= 0 {
		page = 1
	}
	return s.listPage(ctx, s.libraryURL(page, trimmed))
}

// listPage extracts catalog summaries from a library page. Search and browse
// listings share the same markup and differ only in the URL.
func (s *Source) listPage(ctx context.Context, pageURL string) ([]sources.NovelSummary, error) {
	body, err := s.pages.Get(ctx, pageURL)
	if err != nil {
		s.logger.Error("list page fetch failed", "source", s.Key(), "url", pageURL, "error", err)
		return nil, fmt.Errorf("fetch library page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		s.logger.Error("list page parse failed", "source", s.Key(), "url", pageURL, "error", err)
		return nil, fmt.Errorf("parse library page: %w", err)
	}

	items := []sources.NovelSummary{}
	doc.Find(listItemSelector).Each(func(_ int, item *goquery.Selection) {
		anchor := item.Find("a[href]").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}

		name := cleanText(item.Find(listTitleSelector).Text())
		if name == "" {
			name = cleanText(anchor.AttrOr("title", ""))
		}
		if name == "" {
			return
		}

		cover := item.Find(listCoverSelector).First().AttrOr("data-src", "")
		if cover == "" {
			cover = item.Find(listCoverSelector).First().AttrOr("src", "")
		}

		items = append(items, sources.NovelSummary{
			Path:     trimPathSlashes(href),
			Name:     name,
			CoverURL: s.absoluteURL(cover),
		})
	})

	return items, nil
}

func (s *Source) libraryURL(page int, query string) string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	if query != "" {
		values.Set("query", query)
	} else {
		values.Set("sort", "popularity")
	}
	return s.baseURL + "/library?" + values.Encode()
}

func (s *Source) pageURL(sitePath string) string {
	return s.baseURL + "/" + trimPathSlashes(sitePath)
}

func (s *Source) absoluteURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "//") {
		return "https:" + trimmed
	}
	if strings.HasPrefix(trimmed, "/") {
		return s.baseURL + trimmed
	}
	return s.baseURL + "/" + trimmed
}

// trimPathSlashes strips a single leading and a single trailing slash.
func trimPathSlashes(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "/")
	return strings.TrimSuffix(trimmed, "/")
}

func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
