package yamlsource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/novelshelf/backend/internal/agotime"
	"github.com/novelshelf/backend/internal/fetchcache"
	"github.com/novelshelf/backend/internal/sanitize"
	"github.com/novelshelf/backend/internal/sources"
)

type Source struct {
	cfg    Config
	fetch  fetchcache.FetchFunc
	pages  *fetchcache.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewSource(cfg Config, client *http.Client) (*Source, error) {
	if err := cfg.normalizeAndValidate(); err != nil {
		return nil, fmt.Errorf("yaml source %q: %w", cfg.Key, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	fetch := fetchcache.HTTPFetch(client)
	return &Source{
		cfg:    cfg,
		fetch:  fetch,
		pages:  fetchcache.New(fetch),
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Source) Key() string {
	return s.cfg.Key
}

func (s *Source) Name() string {
	return s.cfg.Name
}

func (s *Source) Kind() string {
	return sources.KindYAML
}

func (s *Source) HealthCheck(ctx context.Context) error {
	_, err := s.pages.Get(ctx, s.cfg.BaseURL+s.cfg.HealthPath)
	return err
}

func (s *Source) ListPopular(ctx context.Context, page int) ([]sources.NovelSummary, error) {
	return s.listPage(ctx, s.listingURL(page, ""))
}

func (s *Source) Search(ctx context.Context, term string, page int) ([]sources.NovelSummary, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, fmt.Errorf("search term is required")
	}
	return s.listPage(ctx, s.listingURL(page, trimmed))
}

func (s *Source) listPage(ctx context.Context, pageURL string) ([]sources.NovelSummary, error) {
	doc, err := s.document(ctx, pageURL)
	if err != nil {
		s.logger.Error("list page failed", "source", s.Key(), "url", pageURL, "error", err)
		return nil, err
	}

	items := []sources.NovelSummary{}
	doc.Find(s.cfg.Selectors.ListItem).Each(func(_ int, item *goquery.Selection) {
		anchor := item.Find("a[href]").First()
		href, ok := anchor.Attr("href")
		if !ok {
			if a, found := item.Attr("href"); found {
				href, ok = a, true
			}
		}
		if !ok {
			return
		}

		name := cleanText(item.Find(s.cfg.Selectors.ListName).Text())
		if name == "" {
			name = cleanText(anchor.AttrOr("title", ""))
		}
		if name == "" {
			return
		}

		summary := sources.NovelSummary{
			Path: trimPathSlashes(href),
			Name: name,
		}
		if s.cfg.Selectors.ListCover != "" {
			cover := item.Find(s.cfg.Selectors.ListCover).First()
			summary.CoverURL = s.absoluteURL(cover.AttrOr("data-src", cover.AttrOr("src", "")))
		}

		items = append(items, summary)
	})

	return items, nil
}

func (s *Source) NovelDetail(ctx context.Context, novelPath string) (*sources.NovelDetail, error) {
	novelPath = trimPathSlashes(novelPath)
	doc, err := s.document(ctx, s.cfg.BaseURL+"/"+novelPath)
	if err != nil {
		s.logger.Error("detail page failed", "source", s.Key(), "path", novelPath, "error", err)
		return nil, err
	}

	name := cleanText(doc.Find(s.cfg.Selectors.DetailTitle).First().Text())
	if name == "" {
		err := &sources.StructuralParseError{SourceKey: s.Key(), Field: "title"}
		s.logger.Error("detail extraction failed", "source", s.Key(), "path", novelPath, "error", err)
		return nil, err
	}

	detail := &sources.NovelDetail{
		Path:       novelPath,
		Name:       name,
		TotalPages: 1,
	}

	if s.cfg.Selectors.DetailAuthor != "" {
		detail.Author = cleanText(doc.Find(s.cfg.Selectors.DetailAuthor).First().Text())
	}
	if s.cfg.Selectors.DetailCover != "" {
		cover := doc.Find(s.cfg.Selectors.DetailCover).First()
		detail.CoverURL = s.absoluteURL(cover.AttrOr("data-src", cover.AttrOr("src", "")))
	}
	if s.cfg.Selectors.DetailGenres != "" {
		labels := []string{}
		doc.Find(s.cfg.Selectors.DetailGenres).Each(func(_ int, sel *goquery.Selection) {
			if label := cleanText(sel.Text()); label != "" {
				labels = append(labels, label)
			}
		})
		detail.Genres = strings.Join(labels, ", ")
	}
	if s.cfg.Selectors.DetailSummary != "" {
		detail.Summary = strings.TrimSpace(doc.Find(s.cfg.Selectors.DetailSummary).First().Text())
	}

	detail.Status = sources.StatusCompleted
	if s.cfg.Selectors.DetailStatus != "" &&
		cleanText(doc.Find(s.cfg.Selectors.DetailStatus).First().Text()) == s.cfg.OngoingLabel {
		detail.Status = sources.StatusOngoing
	}

	detail.Chapters = s.parseChapterAnchors(doc)
	return detail, nil
}

// ChapterPage serves only the chapters visible on the detail page; YAML
// sources have no secondary chapter API to page through. The page is fetched
// outside the memoizer so repeated polls observe chapters published after
// the first read.
func (s *Source) ChapterPage(ctx context.Context, novelPath string, page int) ([]sources.Chapter, error) {
	if page > 1 {
		return nil, fmt.Errorf("%s: chapter pagination is not supported by yaml sources", s.Key())
	}
	novelPath = trimPathSlashes(novelPath)

	body, err := s.fetch(ctx, s.cfg.BaseURL+"/"+novelPath)
	if err != nil {
		s.logger.Error("chapter page failed", "source", s.Key(), "path", novelPath, "error", err)
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	if cleanText(doc.Find(s.cfg.Selectors.DetailTitle).First().Text()) == "" {
		err := &sources.StructuralParseError{SourceKey: s.Key(), Field: "title"}
		s.logger.Error("chapter extraction failed", "source", s.Key(), "path", novelPath, "error", err)
		return nil, err
	}

	return s.parseChapterAnchors(doc), nil
}

func (s *Source) ChapterContent(ctx context.Context, chapterPath string) (string, error) {
	chapterPath = trimPathSlashes(chapterPath)
	doc, err := s.document(ctx, s.cfg.BaseURL+"/"+chapterPath)
	if err != nil {
		s.logger.Error("chapter page failed", "source", s.Key(), "path", chapterPath, "error", err)
		return "", err
	}

	if s.cfg.Selectors.Content == "" {
		return "", nil
	}
	container := doc.Find(s.cfg.Selectors.Content).First()
	if container.Length() == 0 {
		return "", nil
	}

	inner, err := container.Html()
	if err != nil {
		return "", fmt.Errorf("render chapter content: %w", err)
	}
	return sanitize.Clean(inner), nil
}

func (s *Source) parseChapterAnchors(doc *goquery.Document) []sources.Chapter {
	chapters := []sources.Chapter{}
	if s.cfg.Selectors.ChapterItem == "" {
		return chapters
	}

	now := s.now()
	doc.Find(s.cfg.Selectors.ChapterItem).Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}

		name := cleanText(anchor.Text())
		if s.cfg.Selectors.ChapterName != "" {
			if n := cleanText(anchor.Find(s.cfg.Selectors.ChapterName).Text()); n != "" {
				name = n
			}
		}

		chapter := sources.Chapter{Name: name, Path: trimPathSlashes(href)}
		if s.cfg.Selectors.ChapterAgo != "" {
			chapter.ReleaseAt = agotime.Parse(anchor.Find(s.cfg.Selectors.ChapterAgo).Text(), now)
		}
		chapters = append(chapters, chapter)
	})

	return chapters
}

func (s *Source) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.pages.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func (s *Source) listingURL(page int, query string) string {
	if page <= 0 {
		page = 1
	}
	values := url.Values{}
	values.Set(s.cfg.Listing.PageParam, strconv.Itoa(page))
	if query != "" {
		values.Set(s.cfg.Listing.QueryParam, query)
	} else if s.cfg.Listing.SortParam != "" {
		values.Set(s.cfg.Listing.SortParam, s.cfg.Listing.SortValue)
	}
	return s.cfg.BaseURL + s.cfg.Listing.Path + "?" + values.Encode()
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
		return s.cfg.BaseURL + trimmed
	}
	return s.cfg.BaseURL + "/" + trimmed
}

func trimPathSlashes(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "/")
	return strings.TrimSuffix(trimmed, "/")
}

func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
