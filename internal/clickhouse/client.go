package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// TierRate is how often a tier was pulled over a window
type TierRate struct {
	Tier  int     `json:"tier"`
	Picks uint64  `json:"picks"`
	Share float64 `json:"share"` // percent of all picks in the window
}

// Client writes the pick history to ClickHouse for analytics
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Client{conn: conn}, nil
}

// EnsureSchema creates the pick table if it does not exist
func (c *Client) EnsureSchema(ctx context.Context) error {
	return c.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS draft_picks (
			draft_id String,
			round UInt16,
			pick_index UInt16,
			participant_id String,
			participant_name String,
			item String,
			tier Int32,
			pick_trigger LowCardinality(String),
			rerolls_used UInt16,
			picked_at DateTime64(3)
		) ENGINE = MergeTree
		ORDER BY (draft_id, picked_at)
	`)
}

// RecordPick appends one pick
func (c *Client) RecordPick(ctx context.Context, rec models.PickRecord) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO draft_picks")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	err = batch.Append(
		rec.DraftID,
		uint16(rec.Round),
		uint16(rec.PickIndex),
		rec.ParticipantID,
		rec.ParticipantName,
		rec.Item,
		int32(rec.Tier),
		rec.Trigger,
		uint16(rec.RerollsUsed),
		rec.PickedAt,
	)
	if err != nil {
		batch.Abort()
		return fmt.Errorf("append pick: %w", err)
	}
	return batch.Send()
}

// TierPullRates reports how often each tier was drafted in the window
func (c *Client) TierPullRates(ctx context.Context, window time.Duration) ([]TierRate, error) {
	query := `
		SELECT
			tier,
			count() AS picks,
			100 * count() / sum(count()) OVER () AS share
		FROM draft_picks
		WHERE picked_at >= now() - toIntervalSecond(?)
		GROUP BY tier
		ORDER BY tier DESC
	`

	rows, err := c.conn.Query(ctx, query, int64(window.Seconds()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := []TierRate{}
	for rows.Next() {
		var tier int32
		var picks uint64
		var share float64
		if err := rows.Scan(&tier, &picks, &share); err != nil {
			return nil, err
		}
		rates = append(rates, TierRate{Tier: int(tier), Picks: picks, Share: share})
	}
	return rates, rows.Err()
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
