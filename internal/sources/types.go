package sources

import (
	"context"
	"time"
)

const (
	KindNative = "native"
	KindYAML   = "yaml"
)

type Status string

const (
	StatusOngoing   Status = "Ongoing"
	StatusCompleted Status = "Completed"
)

type NovelSummary struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	CoverURL string `json:"coverUrl,omitempty"`
}

type Chapter struct {
	Name      string     `json:"name"`
	ReleaseAt *time.Time `json:"releaseAt,omitempty"`
	Path      string     `json:"path"`
}

type NovelDetail struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Author     string    `json:"author,omitempty"`
	CoverURL   string    `json:"coverUrl,omitempty"`
	Genres     string    `json:"genres,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Status     Status    `json:"status"`
	Chapters   []Chapter `json:"chapters"`
	TotalPages int       `json:"totalPages"`
}

// Source extracts catalog data from one upstream novel site.
type Source interface {
	Key() string
	Name() string
	Kind() string
	HealthCheck(ctx context.Context) error
	ListPopular(ctx context.Context, page int) ([]NovelSummary, error)
	Search(ctx context.Context, term string, page int) ([]NovelSummary, error)
	NovelDetail(ctx context.Context, novelPath string) (*NovelDetail, error)
	ChapterPage(ctx context.Context, novelPath string, page int) ([]Chapter, error)
	ChapterContent(ctx context.Context, chapterPath string) (string, error)
}
