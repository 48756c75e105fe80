package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gopayouts/internal/domain"
	"github.com/iho/gopayouts/internal/workerpool"
)

// PayoutConfig tunes a payout run.
type PayoutConfig struct {
	// TaskTimeout bounds each reconciliation. Zero disables the bound.
	TaskTimeout time.Duration
	// BatchTimeout bounds the wait for all reconciliations. Zero waits indefinitely.
	BatchTimeout time.Duration
	Logger       zerolog.Logger
	Observer     BatchObserver
}

// PayoutUseCase runs payout batches: it fans reconciliation out over the
// worker pool and collects the settlements into one ordered batch.
type PayoutUseCase struct {
	directory  AccountDirectory
	source     VendorSource
	reconciler *SettlementReconciler
	aggregator *SettlementAggregator
	pool       *workerpool.Pool
	idGen      IDGenerator
	cfg        PayoutConfig
}

// NewPayoutUseCase creates a new PayoutUseCase.
func NewPayoutUseCase(
	directory AccountDirectory,
	source VendorSource,
	reconciler *SettlementReconciler,
	aggregator *SettlementAggregator,
	pool *workerpool.Pool,
	idGen IDGenerator,
	cfg PayoutConfig,
) *PayoutUseCase {
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}

	return &PayoutUseCase{
		directory:  directory,
		source:     source,
		reconciler: reconciler,
		aggregator: aggregator,
		pool:       pool,
		idGen:      idGen,
		cfg:        cfg,
	}
}

// pendingSettlement remembers what a submitted task is reconciling so a
// failed or unfinished task can still be reported.
type pendingSettlement struct {
	account *domain.Account
	payout  *domain.VendorPayout
}

// GetPayouts reconciles every payout received by active accounts inside window.
// Only a failure to list accounts fails the call; account and payout level
// failures are reported on the returned batch.
func (uc *PayoutUseCase) GetPayouts(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	batch := &domain.PayoutBatch{
		ID:        uc.idGen.Generate(),
		Window:    window,
		StartedAt: time.Now().UTC(),
	}
	log := uc.cfg.Logger.With().
		Str("batch_id", batch.ID).
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Logger()

	uc.transition(&log, batch, domain.BatchStateEnumerating)
	accounts, err := uc.directory.GetActiveAccounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active accounts")
		return nil, fmt.Errorf("%w: %w", domain.ErrDirectory, err)
	}

	uc.transition(&log, batch, domain.BatchStateSubmitting)
	group, pending, rejected := uc.submit(ctx, &log, batch, accounts)

	uc.transition(&log, batch, domain.BatchStateAwaiting)
	settlements := uc.await(ctx, &log, group, pending)
	settlements = append(settlements, rejected...)

	uc.transition(&log, batch, domain.BatchStateAggregating)
	sorted, err := uc.aggregator.Aggregate(ctx, window.Key(), settlements)
	if err != nil {
		log.Error().Err(err).Msg("aggregation failed, returning settlements unsorted")
		uc.cfg.Observer.AggregationFailed()
		batch.Settlements = settlements
	} else {
		batch.Settlements = sorted
		batch.Sorted = true
	}

	batch.CompletedAt = time.Now().UTC()
	uc.transition(&log, batch, domain.BatchStateDone)
	uc.cfg.Observer.BatchCompleted(batch, batch.CompletedAt.Sub(batch.StartedAt))

	log.Info().
		Int("accounts", len(accounts)).
		Int("failed_accounts", len(batch.FailedAccounts)).
		Int("settlements", len(batch.Settlements)).
		Int("errored", batch.ErroredCount()).
		Bool("sorted", batch.Sorted).
		Msg("payout batch completed")

	return batch, nil
}

// submit fetches each account's payouts and submits one reconciliation per
// payout. Settlements that could not be submitted are returned as rejected.
func (uc *PayoutUseCase) submit(
	ctx context.Context,
	log *zerolog.Logger,
	batch *domain.PayoutBatch,
	accounts []*domain.Account,
) (*workerpool.Group[*domain.Settlement], []pendingSettlement, []*domain.Settlement) {
	group := &workerpool.Group[*domain.Settlement]{}
	var (
		pending  []pendingSettlement
		rejected []*domain.Settlement
	)

	for _, account := range accounts {
		if account == nil {
			log.Warn().Msg("account directory returned a nil account, skipping")
			uc.cfg.Observer.AccountFetchFailed()
			batch.FailedAccounts = append(batch.FailedAccounts, domain.AccountFailure{
				Message: domain.ErrNilRecord.Error(),
			})
			continue
		}

		payouts, err := uc.source.GetPayouts(ctx, account, batch.Window)
		if err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrFetch, err)
			log.Warn().Err(err).Str("account_id", account.ID).Msg("skipping account")
			uc.cfg.Observer.AccountFetchFailed()
			batch.FailedAccounts = append(batch.FailedAccounts, domain.AccountFailure{
				AccountID: account.ID,
				ClientID:  account.ClientID,
				Message:   err.Error(),
			})
			continue
		}

		for _, payout := range payouts {
			if payout == nil {
				log.Warn().Str("account_id", account.ID).Msg("vendor returned a nil payout, skipping")
				continue
			}

			h, err := workerpool.Submit(ctx, uc.pool, uc.task(account, payout))
			if err != nil {
				s := domain.NewSettlement(account, payout)
				s.AddError(payout.ID, err.Error())
				rejected = append(rejected, s)
				continue
			}
			group.Add(h)
			pending = append(pending, pendingSettlement{account: account, payout: payout})
		}
	}

	log.Debug().Int("submitted", group.Len()).Int("rejected", len(rejected)).Msg("reconciliations submitted")

	return group, pending, rejected
}

func (uc *PayoutUseCase) task(account *domain.Account, payout *domain.VendorPayout) func(context.Context) *domain.Settlement {
	return func(ctx context.Context) *domain.Settlement {
		if uc.cfg.TaskTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, uc.cfg.TaskTimeout)
			defer cancel()
		}
		return uc.reconciler.Reconcile(ctx, account, payout)
	}
}

// await is the barrier: it returns once every submitted reconciliation has
// resolved or the batch deadline has passed. Tasks that panicked or did not
// finish are reported as settlements carrying one error entry.
func (uc *PayoutUseCase) await(
	ctx context.Context,
	log *zerolog.Logger,
	group *workerpool.Group[*domain.Settlement],
	pending []pendingSettlement,
) []*domain.Settlement {
	if uc.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.BatchTimeout)
		defer cancel()
	}

	outcomes := group.Wait(ctx)
	settlements := make([]*domain.Settlement, 0, len(outcomes))

	for i, o := range outcomes {
		if o.Err == nil && o.Value != nil {
			settlements = append(settlements, o.Value)
			continue
		}

		p := pending[i]
		err := o.Err
		if err == nil {
			err = errors.New("reconciliation returned no settlement")
		}
		if errors.Is(err, workerpool.ErrBarrierTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrTaskTimeout, err)
		}

		log.Warn().Err(err).Str("settlement_id", p.payout.ID).Msg("reconciliation did not complete")

		s := domain.NewSettlement(p.account, p.payout)
		s.AddError(p.payout.ID, err.Error())
		settlements = append(settlements, s)
	}

	return settlements
}

func (uc *PayoutUseCase) transition(log *zerolog.Logger, batch *domain.PayoutBatch, state domain.BatchState) {
	batch.State = state
	log.Debug().Str("state", string(state)).Msg("batch state changed")
}

type noopObserver struct{}

func (noopObserver) BatchCompleted(*domain.PayoutBatch, time.Duration) {}
func (noopObserver) AccountFetchFailed()                               {}
func (noopObserver) AggregationFailed()                                {}
