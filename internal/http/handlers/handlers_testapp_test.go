package handlers_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/novelshelf/backend/internal/config"
	"github.com/novelshelf/backend/internal/database"
	apihttp "github.com/novelshelf/backend/internal/http"
	"github.com/novelshelf/backend/internal/sources"
)

// stubSource returns canned payloads so handler tests never touch the network.
type stubSource struct {
	key        string
	novels     []sources.NovelSummary
	detail     *sources.NovelDetail
	chapters   []sources.Chapter
	content    string
	listErr    error
	detailErr  error
	chapterErr error
	contentErr error
}

func (s stubSource) Key() string                       { return s.key }
func (s stubSource) Name() string                      { return "Stub Source" }
func (s stubSource) Kind() string                      { return sources.KindNative }
func (s stubSource) HealthCheck(context.Context) error { return nil }

func (s stubSource) ListPopular(context.Context, int) ([]sources.NovelSummary, error) {
	return s.novels, s.listErr
}

func (s stubSource) Search(context.Context, string, int) ([]sources.NovelSummary, error) {
	return s.novels, s.listErr
}

func (s stubSource) NovelDetail(context.Context, string) (*sources.NovelDetail, error) {
	return s.detail, s.detailErr
}

func (s stubSource) ChapterPage(context.Context, string, int) ([]sources.Chapter, error) {
	return s.chapters, s.chapterErr
}

func (s stubSource) ChapterContent(context.Context, string) (string, error) {
	return s.content, s.contentErr
}

func setupTestApp(t *testing.T, stubs ...sources.Source) (*sql.DB, *fiber.App) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.ApplyMigrations(db); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	registry := sources.NewRegistry()
	for _, stub := range stubs {
		if err := registry.Register(stub); err != nil {
			_ = db.Close()
			t.Fatalf("register stub source: %v", err)
		}
	}

	cfg := config.Config{AppName: "test-app"}
	app := apihttp.NewServerWithRegistry(cfg, db, registry)

	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = db.Close()
	})

	return db, app
}

func ptrTime(value time.Time) *time.Time {
	return &value
}

func toString(value int64) string {
	return strconv.FormatInt(value, 10)
}
