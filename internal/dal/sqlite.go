package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// SQLiteDAL implements DraftDAL using SQLite
type SQLiteDAL struct {
	db *sql.DB
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		name TEXT PRIMARY KEY,
		tier INTEGER NOT NULL,
		is_mega INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS picks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		draft_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		pick_index INTEGER NOT NULL,
		participant_id TEXT NOT NULL,
		participant_name TEXT NOT NULL,
		item TEXT NOT NULL,
		tier INTEGER NOT NULL,
		pick_trigger TEXT NOT NULL,
		rerolls_used INTEGER NOT NULL DEFAULT 0,
		picked_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_picks_draft ON picks(draft_id);
	CREATE INDEX IF NOT EXISTS idx_items_tier ON items(tier);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Seed default data if empty
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		if err := s.seedData(); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteDAL) seedData() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, it := range getDefaultItems() {
		_, err := tx.Exec(`INSERT INTO items (name, tier, is_mega) VALUES (?, ?, ?)`, it.Name, it.Tier, boolToInt(it.IsMega))
		if err != nil {
			return fmt.Errorf("seed %s: %w", it.Name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDAL) LoadCatalog() ([]models.Item, error) {
	rows, err := s.db.Query(`SELECT name, tier, is_mega FROM items ORDER BY tier DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		var mega int
		if err := rows.Scan(&it.Name, &it.Tier, &mega); err != nil {
			return nil, err
		}
		it.IsMega = mega == 1
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteDAL) AddItem(item models.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO items (name, tier, is_mega) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET tier = excluded.tier, is_mega = excluded.is_mega
	`, item.Name, item.Tier, boolToInt(item.IsMega))
	return err
}

func (s *SQLiteDAL) RecordPick(ctx context.Context, rec models.PickRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO picks (draft_id, round, pick_index, participant_id, participant_name, item, tier, pick_trigger, rerolls_used, picked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.DraftID, rec.Round, rec.PickIndex, rec.ParticipantID, rec.ParticipantName,
		rec.Item, rec.Tier, rec.Trigger, rec.RerollsUsed, rec.PickedAt.UnixMilli())
	return err
}

func (s *SQLiteDAL) ListPicks(ctx context.Context, draftID string) ([]models.PickRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT draft_id, round, pick_index, participant_id, participant_name, item, tier, pick_trigger, rerolls_used, picked_at
		FROM picks
		WHERE ? = '' OR draft_id = ?
		ORDER BY id
	`, draftID, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	picks := []models.PickRecord{}
	for rows.Next() {
		var p models.PickRecord
		var ts int64
		err := rows.Scan(&p.DraftID, &p.Round, &p.PickIndex, &p.ParticipantID, &p.ParticipantName,
			&p.Item, &p.Tier, &p.Trigger, &p.RerollsUsed, &ts)
		if err != nil {
			return nil, err
		}
		p.PickedAt = time.UnixMilli(ts).UTC()
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

func (s *SQLiteDAL) Reset() error {
	if _, err := s.db.Exec(`DELETE FROM picks; DELETE FROM items;`); err != nil {
		return err
	}
	return s.seedData()
}

func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
