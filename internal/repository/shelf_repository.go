package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/novelshelf/backend/internal/models"
)

type ShelfRepository struct {
	db *sql.DB
}

// PollingItem is the slice of a shelf item the poller needs.
type PollingItem struct {
	ID            int64
	SourceKey     string
	NovelPath     string
	Title         string
	KnownChapters int
}

func NewShelfRepository(db *sql.DB) *ShelfRepository {
	return &ShelfRepository{db: db}
}

func (r *ShelfRepository) Create(item *models.ShelfItem) (*models.ShelfItem, error) {
	result, err := r.db.Exec(`
		INSERT INTO shelf_items (
			source_key, novel_path, title, status, cover_url, last_read_chapter,
			known_chapters, latest_chapter, latest_release_at, last_checked_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.SourceKey, item.NovelPath, item.Title, item.Status, item.CoverURL, item.LastReadChapter,
		item.KnownChapters, item.LatestChapter, item.LatestReleaseAt, item.LastCheckedAt)
	if err != nil {
		return nil, fmt.Errorf("insert shelf item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get shelf item last insert id: %w", err)
	}

	return r.GetByID(id)
}

func (r *ShelfRepository) GetByID(id int64) (*models.ShelfItem, error) {
	row := r.db.QueryRow(`
		SELECT
			id, source_key, novel_path, title, status, cover_url, last_read_chapter,
			known_chapters, latest_chapter, latest_release_at, last_checked_at,
			created_at, updated_at
		FROM shelf_items
		WHERE id = ?
	`, id)

	item, err := scanShelfItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get shelf item by id: %w", err)
	}
	return item, nil
}

func (r *ShelfRepository) List() ([]models.ShelfItem, error) {
	rows, err := r.db.Query(`
		SELECT
			id, source_key, novel_path, title, status, cover_url, last_read_chapter,
			known_chapters, latest_chapter, latest_release_at, last_checked_at,
			created_at, updated_at
		FROM shelf_items
		ORDER BY COALESCE(latest_release_at, updated_at) DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list shelf items: %w", err)
	}
	defer rows.Close()

	items := []models.ShelfItem{}
	for rows.Next() {
		item, err := scanShelfItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shelf item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shelf items: %w", err)
	}

	return items, nil
}

func (r *ShelfRepository) Update(item *models.ShelfItem) (*models.ShelfItem, error) {
	result, err := r.db.Exec(`
		UPDATE shelf_items
		SET title = ?, status = ?, cover_url = ?, last_read_chapter = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, item.Title, item.Status, item.CoverURL, item.LastReadChapter, item.ID)
	if err != nil {
		return nil, fmt.Errorf("update shelf item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check shelf item update: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetByID(item.ID)
}

func (r *ShelfRepository) Delete(id int64) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM shelf_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete shelf item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check shelf item delete: %w", err)
	}
	return affected > 0, nil
}

func (r *ShelfRepository) ListForPolling() ([]PollingItem, error) {
	rows, err := r.db.Query(`
		SELECT id, source_key, novel_path, title, known_chapters
		FROM shelf_items
		ORDER BY COALESCE(last_checked_at, created_at) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list shelf items for polling: %w", err)
	}
	defer rows.Close()

	items := []PollingItem{}
	for rows.Next() {
		var item PollingItem
		if err := rows.Scan(&item.ID, &item.SourceKey, &item.NovelPath, &item.Title, &item.KnownChapters); err != nil {
			return nil, fmt.Errorf("scan polling item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polling items: %w", err)
	}

	return items, nil
}

func (r *ShelfRepository) UpdatePollingState(id int64, knownChapters int, latestChapter *string, latestReleaseAt *time.Time, checkedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE shelf_items
		SET known_chapters = ?, latest_chapter = ?, latest_release_at = ?, last_checked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, knownChapters, latestChapter, latestReleaseAt, checkedAt, id)
	if err != nil {
		return fmt.Errorf("update shelf polling state: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShelfItem(row rowScanner) (*models.ShelfItem, error) {
	var item models.ShelfItem
	err := row.Scan(
		&item.ID, &item.SourceKey, &item.NovelPath, &item.Title, &item.Status, &item.CoverURL,
		&item.LastReadChapter, &item.KnownChapters, &item.LatestChapter, &item.LatestReleaseAt,
		&item.LastCheckedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
