// Package yamlsource builds novel sources from declarative YAML files.
// A config names a site's listing endpoint and the selector sets to extract
// summaries, detail fields and chapter content, covering simple
// server-rendered sites without writing a native source.
package yamlsource

import (
	"fmt"
	"strings"
)

type Config struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`

	HealthPath string `yaml:"health_path"`

	Listing struct {
		Path       string `yaml:"path"`
		PageParam  string `yaml:"page_param"`
		QueryParam string `yaml:"query_param"`
		SortParam  string `yaml:"sort_param"`
		SortValue  string `yaml:"sort_value"`
	} `yaml:"listing"`

	Selectors struct {
		ListItem  string `yaml:"list_item"`
		ListName  string `yaml:"list_name"`
		ListCover string `yaml:"list_cover"`

		DetailTitle   string `yaml:"detail_title"`
		DetailAuthor  string `yaml:"detail_author"`
		DetailCover   string `yaml:"detail_cover"`
		DetailGenres  string `yaml:"detail_genres"`
		DetailSummary string `yaml:"detail_summary"`
		DetailStatus  string `yaml:"detail_status"`

		ChapterItem string `yaml:"chapter_item"`
		ChapterName string `yaml:"chapter_name"`
		ChapterAgo  string `yaml:"chapter_ago"`

		Content string `yaml:"content"`
	} `yaml:"selectors"`

	OngoingLabel string `yaml:"ongoing_label"`
}

func (c *Config) isEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *Config) normalizeAndValidate() error {
	c.Key = strings.TrimSpace(c.Key)
	c.Name = strings.TrimSpace(c.Name)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.Key == "" {
		return fmt.Errorf("key is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	if strings.TrimSpace(c.Listing.Path) == "" {
		return fmt.Errorf("listing.path is required")
	}
	if strings.TrimSpace(c.Selectors.ListItem) == "" {
		return fmt.Errorf("selectors.list_item is required")
	}
	if strings.TrimSpace(c.Selectors.DetailTitle) == "" {
		return fmt.Errorf("selectors.detail_title is required")
	}

	if strings.TrimSpace(c.Listing.PageParam) == "" {
		c.Listing.PageParam = "page"
	}
	if strings.TrimSpace(c.Listing.QueryParam) == "" {
		c.Listing.QueryParam = "q"
	}
	if strings.TrimSpace(c.HealthPath) == "" {
		c.HealthPath = "/"
	}
	if strings.TrimSpace(c.OngoingLabel) == "" {
		c.OngoingLabel = "Ongoing"
	}

	return nil
}
