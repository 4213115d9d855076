package novelight

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/novelshelf/backend/internal/agotime"
	"github.com/novelshelf/backend/internal/sources"
)

// NovelDetail fetches and parses a novel's detail page. As a side effect it
// stores the internal identifier recovered from the page's hydration payload
// so ChapterPage can query the chapter API without another page fetch.
func (s *Source) NovelDetail(ctx context.Context, novelPath string) (*sources.NovelDetail, error) {
	novelPath = trimPathSlashes(novelPath)
	if novelPath == "" {
		return nil, fmt.Errorf("novel path is required")
	}

	body, err := s.pages.Get(ctx, s.pageURL(novelPath))
	if err != nil {
		s.logger.Error("detail page fetch failed", "source", s.Key(), "path", novelPath, "error", err)
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		s.logger.Error("detail page parse failed", "source", s.Key(), "path", novelPath, "error", err)
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	detail, identifier, err := s.parseNovelDocument(doc, novelPath)
	if err != nil {
		s.logger.Error("detail extraction failed", "source", s.Key(), "path", novelPath, "error", err)
		return nil, err
	}

	if identifier != "" {
		s.storeIdentifier(novelPath, identifier)
	}

	return detail, nil
}

// parseNovelDocument extracts the full detail model plus the internal
// identifier. Only the title and the presence of the hydration payload are
// structurally required; every other field degrades to its zero value.
func (s *Source) parseNovelDocument(doc *goquery.Document, novelPath string) (*sources.NovelDetail, string, error) {
	name := cleanText(doc.Find(detailTitleSelector).First().Text())
	if name == "" {
		return nil, "", &sources.StructuralParseError{SourceKey: s.Key(), Field: "title"}
	}

	hydration := doc.Find(hydrationSelector).First()
	if hydration.Length() == 0 {
		return nil, "", &sources.StructuralParseError{SourceKey: s.Key(), Field: "hydration payload"}
	}
	identifier := identifierFromHydration(hydration.Text())

	cover := doc.Find(detailCoverSelector).First().AttrOr("data-src", "")
	if cover == "" {
		cover = doc.Find(detailCoverSelector).First().AttrOr("src", "")
	}

	labels := []string{}
	doc.Find(detailGenreSelector).Each(func(_ int, sel *goquery.Selection) {
		if label := cleanText(sel.Text()); label != "" {
			labels = append(labels, label)
		}
	})
	doc.Find(detailTagSelector).Each(func(_ int, sel *goquery.Selection) {
		if label := cleanText(sel.Text()); label != "" {
			labels = append(labels, label)
		}
	})

	detail := &sources.NovelDetail{
		Path:       novelPath,
		Name:       name,
		Author:     cleanText(doc.Find(detailAuthorSelector).First().Text()),
		CoverURL:   s.absoluteURL(cover),
		Genres:     strings.Join(labels, ", "),
		Summary:    strings.TrimSpace(doc.Find(detailSummarySelector).First().Text()),
		Status:     classifyStatus(cleanText(doc.Find(detailStatusSelector).First().Text())),
		Chapters:   s.parseChapterAnchors(doc),
		TotalPages: parseTotalPages(doc),
	}

	return detail, identifier, nil
}

// classifyStatus maps status text onto the two-state enum. Only the exact
// ongoing label counts; every other value, recognized or not, falls back to
// completed.
func classifyStatus(raw string) sources.Status {
	if raw == string(sources.StatusOngoing) {
		return sources.StatusOngoing
	}
	return sources.StatusCompleted
}

// identifierFromHydration scans the top-level array of the hydration payload
// for the first object carrying a path field and returns its final path
// segment. Any shape mismatch resolves to absent rather than an error.
func identifierFromHydration(payload string) string {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &elements); err != nil {
		return ""
	}

	for _, raw := range elements {
		var probe struct {
			Path *string `json:"path"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		if probe.Path == nil {
			continue
		}

		identifier := path.Base(strings.TrimSpace(*probe.Path))
		if identifier == "." || identifier == "/" {
			return ""
		}
		return identifier
	}

	return ""
}

func (s *Source) parseChapterAnchors(doc *goquery.Document) []sources.Chapter {
	now := s.now()
	chapters := []sources.Chapter{}

	doc.Find(chapterItemSelector).Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}

		name := cleanText(anchor.Find(chapterNameSelector).Text())
		if name == "" {
			name = cleanText(anchor.Text())
		}

		chapters = append(chapters, sources.Chapter{
			Name:      name,
			ReleaseAt: agotime.Parse(anchor.Find(chapterAgoSelector).Text(), now),
			Path:      trimPathSlashes(href),
		})
	})

	return chapters
}

func parseTotalPages(doc *goquery.Document) int {
	last := cleanText(doc.Find(paginationSelector).Last().Text())
	total, err := strconv.Atoi(last)
	if err != nil || total < 1 {
		return 1
	}
	return total
}

func (s *Source) cachedIdentifier(novelPath string) (string, bool) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	entry, ok := s.identifiers[novelPath]
	if !ok {
		return "", false
	}
	// Read-through expiry: stale entries stay in the map but count as absent.
	if s.now().Sub(entry.storedAt) >= identifierTTL {
		return "", false
	}
	return entry.id, true
}

func (s *Source) storeIdentifier(novelPath string, id string) {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.identifiers[novelPath] = identifierEntry{id: id, storedAt: s.now()}
}
