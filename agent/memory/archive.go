package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

type ArchiveConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

// turnRow is the persisted shape of a conversation turn.
type turnRow struct {
	bun.BaseModel `bun:"table:conversation_turns"`

	ID         int64     `bun:"id,pk,autoincrement"`
	QueryID    string    `bun:"query_id,notnull"`
	UserID     string    `bun:"user_id,notnull"`
	RawText    string    `bun:"raw_text,notnull"`
	Intent     string    `bun:"intent,notnull"`
	Confidence float64   `bun:"confidence,notnull"`
	Entities   []byte    `bun:"entities,type:jsonb"`
	Tools      []byte    `bun:"tools,type:jsonb"`
	Summary    string    `bun:"summary"`
	AskedAt    time.Time `bun:"asked_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresTurnArchive writes resolved turns to Postgres for offline analysis.
// It implements contract.TurnArchive.
type PostgresTurnArchive struct {
	db *bun.DB
}

var _ contractx.TurnArchive = (*PostgresTurnArchive)(nil)

func NewPostgresTurnArchive(cfg ArchiveConfig) (*PostgresTurnArchive, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	return &PostgresTurnArchive{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (a *PostgresTurnArchive) Archive(ctx context.Context, turn contractx.ConversationTurn) error {
	row, err := rowFromTurn(turn)
	if err != nil {
		return err
	}
	if _, err := a.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (a *PostgresTurnArchive) Close() error {
	return a.db.Close()
}

func rowFromTurn(turn contractx.ConversationTurn) (*turnRow, error) {
	entities, err := json.Marshal(turn.Intent.Entities)
	if err != nil {
		return nil, fmt.Errorf("marshal entities: %w", err)
	}
	tools, err := json.Marshal(turn.SelectedTools)
	if err != nil {
		return nil, fmt.Errorf("marshal tools: %w", err)
	}
	return &turnRow{
		QueryID:    turn.Query.ID,
		UserID:     turn.Query.UserID,
		RawText:    turn.Query.RawText,
		Intent:     string(turn.Intent.Category),
		Confidence: turn.Intent.Confidence,
		Entities:   entities,
		Tools:      tools,
		Summary:    turn.ResponseSummary,
		AskedAt:    turn.Query.Timestamp,
	}, nil
}
