package models

import "time"

// ShelfItem is a novel a user follows, with the last chapter state observed
// by the poller.
type ShelfItem struct {
	ID               int64      `json:"id"`
	SourceKey        string     `json:"sourceKey"`
	NovelPath        string     `json:"novelPath"`
	Title            string     `json:"title"`
	Status           string     `json:"status,omitempty"`
	CoverURL         string     `json:"coverUrl,omitempty"`
	LastReadChapter  *string    `json:"lastReadChapter,omitempty"`
	KnownChapters    int        `json:"knownChapters"`
	LatestChapter    *string    `json:"latestChapter,omitempty"`
	LatestReleaseAt  *time.Time `json:"latestReleaseAt,omitempty"`
	LastCheckedAt    *time.Time `json:"lastCheckedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
