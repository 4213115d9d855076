package novelight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/novelshelf/backend/internal/sanitize"
	"github.com/novelshelf/backend/internal/sources"
)

const chapterAPIPath = "/api/__api_party/api-v1"

type chapterAPIRequest struct {
	Path    string            `json:"path"`
	Query   chapterAPIQuery   `json:"query"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

type chapterAPIQuery struct {
	Page int `json:"page"`
}

type chapterAPIResponse struct {
	Data []struct {
		Title     string `json:"title"`
		Slug      string `json:"slug"`
		CreatedAt string `json:"created_at"`
	} `json:"_data"`
}

// ChapterPage returns one page of a novel's chapter index from the secondary
// JSON API. A missing identifier triggers a single detail-page extraction as
// recovery; a second miss is terminal.
func (s *Source) ChapterPage(ctx context.Context, novelPath string, page int) ([]sources.Chapter, error) {
	novelPath = trimPathSlashes(novelPath)
	if page <= 0 {
		page = 1
	}

	identifier, ok := s.cachedIdentifier(novelPath)
	if !ok {
		if _, err := s.NovelDetail(ctx, novelPath); err != nil {
			return nil, err
		}
		identifier, ok = s.cachedIdentifier(novelPath)
		if !ok {
			err := &sources.IdentifierResolutionError{SourceKey: s.Key(), NovelPath: novelPath}
			s.logger.Error("identifier resolution failed", "source", s.Key(), "path", novelPath, "error", err)
			return nil, err
		}
	}

	response, err := s.queryChapterAPI(ctx, identifier, page)
	if err != nil {
		s.logger.Error("chapter api query failed", "source", s.Key(), "path", novelPath, "page", page, "error", err)
		return nil, err
	}

	chapters := make([]sources.Chapter, 0, len(response.Data))
	for _, record := range response.Data {
		var releaseAt *time.Time
		if parsed, parseErr := time.Parse(time.RFC3339, record.CreatedAt); parseErr == nil {
			utc := parsed.UTC()
			releaseAt = &utc
		}
		chapters = append(chapters, sources.Chapter{
			Name:      record.Title,
			ReleaseAt: releaseAt,
			Path:      novelPath + "/" + record.Slug,
		})
	}

	return chapters, nil
}

func (s *Source) queryChapterAPI(ctx context.Context, identifier string, page int) (*chapterAPIResponse, error) {
	payload, err := json.Marshal(chapterAPIRequest{
		Path:    "/chapter/all/" + identifier,
		Query:   chapterAPIQuery{Page: page},
		Method:  "get",
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chapter api request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+chapterAPIPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create chapter api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chapter api request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &sources.UpstreamAPIError{SourceKey: s.Key(), StatusCode: res.StatusCode}
	}

	var response chapterAPIResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode chapter api response: %w", err)
	}

	return &response, nil
}

// ChapterContent fetches a chapter page and returns the sanitized inner
// markup of its content container. A missing container yields empty content,
// not an error.
func (s *Source) ChapterContent(ctx context.Context, chapterPath string) (string, error) {
	chapterPath = trimPathSlashes(chapterPath)
	if chapterPath == "" {
		return "", fmt.Errorf("chapter path is required")
	}

	body, err := s.pages.Get(ctx, s.pageURL(chapterPath))
	if err != nil {
		s.logger.Error("chapter page fetch failed", "source", s.Key(), "path", chapterPath, "error", err)
		return "", fmt.Errorf("fetch chapter page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		s.logger.Error("chapter page parse failed", "source", s.Key(), "path", chapterPath, "error", err)
		return "", fmt.Errorf("parse chapter page: %w", err)
	}

	container := doc.Find(contentSelector).First()
	if container.Length() == 0 {
		return "", nil
	}

	inner, err := container.Html()
	if err != nil {
		return "", fmt.Errorf("render chapter content: %w", err)
	}

	return sanitize.Clean(inner), nil
}
