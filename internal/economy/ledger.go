package economy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/store"
)

// ErrMaxLevel is returned when no venture exists past the current one.
var ErrMaxLevel = errors.New("max venture level reached")

// InsufficientFundsError reports an upgrade the player cannot afford.
type InsufficientFundsError struct {
	Needed int64
	Have   int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient capital: need %d, have %d", e.Needed, e.Have)
}

const upgradeAttempts = 3

// Store is the persistence the ledger needs.
type Store interface {
	Resources(ctx context.Context) (*store.PlayerResources, error)
	Debit(ctx context.Context, cost int64, fromLevel, toLevel int) (bool, error)
}

// Ledger reports capital and gates venture upgrades. Rewards are credited
// by the review transaction.
type Ledger struct {
	store Store
	log   *zap.Logger
}

// NewLedger creates a Ledger.
func NewLedger(s Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: s, log: log}
}

// Balance returns the current resources.
func (l *Ledger) Balance(ctx context.Context) (*store.PlayerResources, error) {
	return l.store.Resources(ctx)
}

// UpgradeResult is a successful upgrade.
type UpgradeResult struct {
	NewLevel         int    `json:"newLevel"`
	Name             string `json:"name"`
	CapitalRemaining int64  `json:"capitalRemaining"`
}

// AttemptUpgrade buys the next venture level. The debit is conditional on
// both capital and level being unchanged, so a concurrent spend or upgrade
// forces a re-check instead of overdrawing.
func (l *Ledger) AttemptUpgrade(ctx context.Context) (*UpgradeResult, error) {
	for range upgradeAttempts {
		res, err := l.store.Resources(ctx)
		if err != nil {
			return nil, err
		}

		next, ok := NextVenture(res.VentureLevel)
		if !ok {
			return nil, ErrMaxLevel
		}
		if res.Capital < next.Cost {
			return nil, &InsufficientFundsError{Needed: next.Cost, Have: res.Capital}
		}

		ok, err = l.store.Debit(ctx, next.Cost, res.VentureLevel, next.Level)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		after, err := l.store.Resources(ctx)
		if err != nil {
			return nil, err
		}
		l.log.Info("venture upgraded",
			zap.Int("level", next.Level), zap.String("name", next.Name), zap.Int64("cost", next.Cost))
		return &UpgradeResult{
			NewLevel:         next.Level,
			Name:             next.Name,
			CapitalRemaining: after.Capital,
		}, nil
	}
	return nil, fmt.Errorf("upgrade venture: %w", store.ErrConflict)
}
