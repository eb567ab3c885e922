package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// PostgresDAL implements DraftDAL using PostgreSQL
type PostgresDAL struct {
	db *sql.DB
}

// NewPostgresDAL creates a new PostgreSQL data access layer tuned for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute) // survive failovers
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Kubernetes DNS can take a while to resolve the cluster service
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		name TEXT PRIMARY KEY,
		tier INTEGER NOT NULL CHECK (tier > 0),
		is_mega BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS picks (
		id BIGSERIAL PRIMARY KEY,
		draft_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		pick_index INTEGER NOT NULL,
		participant_id TEXT NOT NULL,
		participant_name TEXT NOT NULL,
		item TEXT NOT NULL,
		tier INTEGER NOT NULL,
		pick_trigger TEXT NOT NULL,
		rerolls_used INTEGER NOT NULL DEFAULT 0,
		picked_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_tier ON items(tier DESC);
	CREATE INDEX IF NOT EXISTS idx_picks_draft_id ON picks(draft_id);
	CREATE INDEX IF NOT EXISTS idx_picks_picked_at ON picks(picked_at);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return err
	}

	var count int
	if err := p.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return p.seedData()
	}
	return nil
}

func (p *PostgresDAL) seedData() error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO items (name, tier, is_mega) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range getDefaultItems() {
		if _, err := stmt.Exec(it.Name, it.Tier, it.IsMega); err != nil {
			return fmt.Errorf("seed %s: %w", it.Name, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresDAL) LoadCatalog() ([]models.Item, error) {
	rows, err := p.db.Query(`SELECT name, tier, is_mega FROM items ORDER BY tier DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.Name, &it.Tier, &it.IsMega); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (p *PostgresDAL) AddItem(item models.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	_, err := p.db.Exec(`
		INSERT INTO items (name, tier, is_mega) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET tier = EXCLUDED.tier, is_mega = EXCLUDED.is_mega
	`, item.Name, item.Tier, item.IsMega)
	return err
}

func (p *PostgresDAL) RecordPick(ctx context.Context, rec models.PickRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO picks (draft_id, round, pick_index, participant_id, participant_name, item, tier, pick_trigger, rerolls_used, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.DraftID, rec.Round, rec.PickIndex, rec.ParticipantID, rec.ParticipantName,
		rec.Item, rec.Tier, rec.Trigger, rec.RerollsUsed, rec.PickedAt)
	return err
}

func (p *PostgresDAL) ListPicks(ctx context.Context, draftID string) ([]models.PickRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT draft_id, round, pick_index, participant_id, participant_name, item, tier, pick_trigger, rerolls_used, picked_at
		FROM picks
		WHERE $1 = '' OR draft_id = $1
		ORDER BY id
	`, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	picks := []models.PickRecord{}
	for rows.Next() {
		var rec models.PickRecord
		err := rows.Scan(&rec.DraftID, &rec.Round, &rec.PickIndex, &rec.ParticipantID, &rec.ParticipantName,
			&rec.Item, &rec.Tier, &rec.Trigger, &rec.RerollsUsed, &rec.PickedAt)
		if err != nil {
			return nil, err
		}
		picks = append(picks, rec)
	}
	return picks, rows.Err()
}

func (p *PostgresDAL) Reset() error {
	if _, err := p.db.Exec(`TRUNCATE picks, items`); err != nil {
		return err
	}
	return p.seedData()
}

func (p *PostgresDAL) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
