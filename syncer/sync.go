package syncer

import (
	"context"

	"github.com/MariusVanDerWijden/altair-lc/api"
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/db/kv"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/pkg/errors"
	eth2types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// onSlot runs the per-slot schedule: timeouts for every slot since the last
// call, the optimistic update every slot, the finality update every epoch and
// committee updates every epoch.
func (s *Service) onSlot(ctx context.Context, slot eth2types.Slot) error {
	cfg := s.cfg.ChainConfig
	epochStart := false
	s.lock.Lock()
	for ; s.nextSlot <= slot; s.nextSlot++ {
		if uint64(s.nextSlot)%cfg.SlotsPerEpoch == 0 {
			epochStart = true
		}
		if err := s.lc.ProcessSlot(s.store, s.nextSlot); err != nil {
			log.WithError(err).WithField("slot", s.nextSlot).Warn("Could not apply timed out update")
		}
	}
	s.lock.Unlock()

	finality, optimistic, err := s.fetchLatest(ctx, epochStart)
	if err != nil {
		return err
	}
	if finality != nil {
		s.process(ctx, types.FromFinalityUpdate(finality), "finality")
	}
	if optimistic != nil {
		s.process(ctx, types.FromOptimisticUpdate(optimistic), "optimistic")
	}
	if !epochStart {
		return nil
	}
	return s.syncPeriods(ctx)
}

// fetchLatest requests the latest optimistic and, optionally, finality update
// concurrently. Updates the node does not have yet are nil.
func (s *Service) fetchLatest(ctx context.Context, withFinality bool) (*types.LightClientFinalityUpdate, *types.LightClientOptimisticUpdate, error) {
	var (
		finality   *types.LightClientFinalityUpdate
		optimistic *types.LightClientOptimisticUpdate
	)
	g, ctx := errgroup.WithContext(ctx)
	if withFinality {
		g.Go(func() error {
			update, err := s.cfg.Client.FinalityUpdate(ctx)
			if err != nil && !errors.Is(err, api.ErrNotFound) {
				return errors.Wrap(err, "could not fetch finality update")
			}
			finality = update
			return nil
		})
	}
	g.Go(func() error {
		update, err := s.cfg.Client.OptimisticUpdate(ctx)
		if err != nil && !errors.Is(err, api.ErrNotFound) {
			return errors.Wrap(err, "could not fetch optimistic update")
		}
		optimistic = update
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return finality, optimistic, nil
}

// syncPeriods fetches committee updates from the store period up to the
// current period until the store stops advancing.
func (s *Service) syncPeriods(ctx context.Context) error {
	cfg := s.cfg.ChainConfig
	for {
		currentPeriod := s.clock.CurrentPeriod()
		s.lock.RLock()
		storePeriod := cfg.SyncPeriodAtSlot(s.store.FinalizedHeader.Slot)
		known := s.store.IsNextSyncCommitteeKnown()
		s.lock.RUnlock()
		if storePeriod > currentPeriod || (storePeriod == currentPeriod && known) {
			return nil
		}
		count := currentPeriod - storePeriod + 1
		if count > config.MAX_REQUEST_LIGHT_CLIENT_UPDATES {
			count = config.MAX_REQUEST_LIGHT_CLIENT_UPDATES
		}
		updates, err := s.cfg.Client.Updates(ctx, storePeriod, count)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				return nil
			}
			return errors.Wrapf(err, "could not fetch updates from period %d", storePeriod)
		}
		for _, update := range updates {
			s.process(ctx, update, "committee")
		}

		s.lock.RLock()
		advanced := cfg.SyncPeriodAtSlot(s.store.FinalizedHeader.Slot) > storePeriod ||
			(!known && s.store.IsNextSyncCommitteeKnown())
		s.lock.RUnlock()
		if !advanced {
			log.WithFields(logrus.Fields{
				"storePeriod":   storePeriod,
				"currentPeriod": currentPeriod,
			}).Debug("Committee updates did not advance the store")
			return nil
		}
	}
}

// process applies a single update to the store and persists finality
// progress. Rejected updates are logged and dropped.
func (s *Service) process(ctx context.Context, update *types.LightClientUpdate, kind string) {
	s.lock.Lock()
	err := s.lc.ProcessUpdate(s.store, update, s.clock.CurrentSlot(), s.genesisValidatorsRoot)
	store := s.store.Copy()
	s.lock.Unlock()

	updatesProcessed.WithLabelValues(processResult(err)).Inc()
	reportStore(s.cfg.ChainConfig, store)
	fields := logrus.Fields{
		"kind":          kind,
		"attestedSlot":  update.AttestedHeader.Slot,
		"signatureSlot": update.SignatureSlot,
	}
	if err != nil {
		if processResult(err) == resultIgnored {
			log.WithFields(fields).WithError(err).Debug("Ignored light client update")
		} else {
			log.WithFields(fields).WithError(err).Warn("Rejected light client update")
		}
		return
	}
	log.WithFields(fields).WithField("optimisticSlot", store.OptimisticHeader.Slot).Debug("Processed light client update")
	s.saveFinality(ctx, store)
}

// saveFinality stores the finalized header if it advanced since the last save.
func (s *Service) saveFinality(ctx context.Context, store *types.LightClientStore) {
	s.lock.Lock()
	advanced := store.FinalizedHeader.Slot > s.savedFinality
	if advanced {
		s.savedFinality = store.FinalizedHeader.Slot
	}
	s.lock.Unlock()
	if !advanced {
		return
	}
	log.WithFields(logrus.Fields{
		"slot":   store.FinalizedHeader.Slot,
		"period": s.cfg.ChainConfig.SyncPeriodAtSlot(store.FinalizedHeader.Slot),
	}).Info("New finalized header")
	if s.cfg.DB == nil {
		return
	}
	root, err := store.FinalizedHeader.HashTreeRoot()
	if err != nil {
		log.WithError(err).Error("Could not hash finalized header")
		return
	}
	if err := s.cfg.DB.SaveFinalizedCheckpoint(ctx, &kv.Checkpoint{
		GenesisValidatorsRoot: s.genesisValidatorsRoot,
		BlockRoot:             root,
		Header:                store.FinalizedHeader,
	}); err != nil {
		log.WithError(err).Error("Could not save finalized checkpoint")
	}
}
