package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/veltor/bankledger/internal/domain"
)

// SnapshotUseCase creates per-account balance snapshots at a cutoff
// instant. Each account is snapshotted in its own store transaction so one
// failure does not abort the batch.
type SnapshotUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	snapshotRepo SnapshotRepository
	balances     *BalanceUseCase
	idGen        IDGenerator
	clock        Clock
	logger       zerolog.Logger
}

// NewSnapshotUseCase creates a new SnapshotUseCase.
func NewSnapshotUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	snapshotRepo SnapshotRepository,
	balances *BalanceUseCase,
	idGen IDGenerator,
	clock Clock,
	logger zerolog.Logger,
) *SnapshotUseCase {
	return &SnapshotUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		snapshotRepo: snapshotRepo,
		balances:     balances,
		idGen:        idGen,
		clock:        clock,
		logger:       logger.With().Str("component", "snapshot_maker").Logger(),
	}
}

// SnapshotResult summarizes one batch run.
type SnapshotResult struct {
	Created int
	Skipped int
	Failed  int
}

// CreateSnapshots snapshots every ACTIVE account at the cutoff. Future
// cutoffs are rejected.
func (uc *SnapshotUseCase) CreateSnapshots(ctx context.Context, cutoff time.Time) (SnapshotResult, error) {
	var result SnapshotResult

	if cutoff.After(uc.clock.Now()) {
		return result, fmt.Errorf("%w: %s", domain.ErrFutureSnapshotCutoff, cutoff)
	}

	accounts, err := uc.accountRepo.ListActive(ctx)
	if err != nil {
		return result, err
	}

	for _, account := range accounts {
		created, err := uc.snapshotAccount(ctx, account, cutoff)
		switch {
		case err != nil:
			result.Failed++

			uc.logger.Error().
				Err(err).
				Str("account_id", account.ID).
				Time("cutoff", cutoff).
				Msg("snapshot failed")
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}

	uc.logger.Info().
		Time("cutoff", cutoff).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("snapshot batch finished")

	return result, nil
}

func (uc *SnapshotUseCase) snapshotAccount(ctx context.Context, account *domain.Account, cutoff time.Time) (bool, error) {
	exists, err := uc.snapshotRepo.ExistsAt(ctx, account.ID, cutoff)
	if err != nil {
		return false, err
	}

	if exists {
		return false, nil
	}

	balance, err := uc.balances.GetBalanceAsOf(ctx, account.ID, cutoff)
	if err != nil {
		return false, err
	}

	snapshot, err := domain.NewBalanceSnapshot(uc.idGen.Generate(), account.ID, balance, cutoff, uc.clock.Now())
	if err != nil {
		return false, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if err := uc.snapshotRepo.Create(ctx, tx, snapshot); err != nil {
		// Lost a race with another snapshot run; the unique constraint on
		// (account id, cutoff) makes the skip safe.
		if errors.Is(err, domain.ErrDuplicateSnapshot) {
			return false, nil
		}

		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// PreviousDayCutoff returns the end of the previous day in the given zone:
// one nanosecond before today's midnight.
func PreviousDayCutoff(now time.Time, zone *time.Location) time.Time {
	local := now.In(zone)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)

	return midnight.Add(-time.Nanosecond)
}
