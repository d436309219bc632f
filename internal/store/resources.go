package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
)

// playerID is the id of the single implicit player's resource row.
const playerID = 1

func (s *Store) ensurePlayer(ctx context.Context) error {
	return ensurePlayerRow(ctx, s.db, s.now())
}

func ensurePlayerRow(ctx context.Context, db sqlx.ExecerContext, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO player_resources (id, capital, venture_level, updated_at) VALUES (?, 0, 1, ?)`,
		playerID, now)
	if err != nil {
		return fmt.Errorf("ensure player: %w", err)
	}
	return nil
}

func (s *Store) Resources(ctx context.Context) (*PlayerResources, error) {
	if err := s.ensurePlayer(ctx); err != nil {
		return nil, err
	}
	var r PlayerResources
	if err := s.db.GetContext(ctx, &r,
		`SELECT id, capital, venture_level, updated_at FROM player_resources WHERE id = ?`, playerID); err != nil {
		return nil, fmt.Errorf("get resources: %w", err)
	}
	return &r, nil
}

// credit adds amount (>= 0) to capital and returns the new balance.
func credit(ctx context.Context, db sqlx.ExtContext, amount int64, now time.Time) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	if err := ensurePlayerRow(ctx, db, now); err != nil {
		return 0, err
	}
	var balance int64
	err := db.QueryRowxContext(ctx,
		`UPDATE player_resources SET capital = capital + ?, updated_at = ? WHERE id = ? RETURNING capital`,
		amount, now, playerID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("credit capital: %w", err)
	}
	return balance, nil
}

func (s *Store) Debit(ctx context.Context, cost int64, fromLevel, toLevel int) (bool, error) {
	if err := s.ensurePlayer(ctx); err != nil {
		return false, err
	}
	q, args := builder().Update("player_resources").
		Add("capital", -cost).
		Set("venture_level", toLevel).
		Set("updated_at", s.now()).
		Where(entsql.And(
			entsql.EQ("id", playerID),
			entsql.GTE("capital", cost),
			entsql.EQ("venture_level", fromLevel),
		)).
		Query()
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("debit capital: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
