package core

import (
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	eth2types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
)

// ApplyUpdate implements apply_light_client_update. The update must have been
// validated against the store. The store is left untouched on error.
func (lc *LightClient) ApplyUpdate(store *types.LightClientStore, update *types.LightClientUpdate) error {
	storePeriod := lc.cfg.SyncPeriodAtSlot(store.FinalizedHeader.Slot)
	finalizedPeriod := lc.cfg.SyncPeriodAtSlot(update.FinalizedSlot())
	if !store.IsNextSyncCommitteeKnown() {
		if finalizedPeriod != storePeriod {
			return errors.Wrapf(ErrPeriodSkip, "finalized period %d, store period %d without next sync committee", finalizedPeriod, storePeriod)
		}
		store.NextSyncCommittee = update.NextSyncCommittee
	} else if finalizedPeriod == storePeriod+1 {
		store.CurrentSyncCommittee = store.NextSyncCommittee
		store.NextSyncCommittee = update.NextSyncCommittee
		log.WithField("period", finalizedPeriod).Debug("Rotated sync committee")
	}
	if update.FinalizedHeader != nil && update.FinalizedHeader.Slot > store.FinalizedHeader.Slot {
		store.FinalizedHeader = *update.FinalizedHeader
		if store.FinalizedHeader.Slot > store.OptimisticHeader.Slot {
			store.OptimisticHeader = store.FinalizedHeader
		}
		log.WithFields(logrus.Fields{
			"slot":   store.FinalizedHeader.Slot,
			"period": lc.cfg.SyncPeriodAtSlot(store.FinalizedHeader.Slot),
		}).Debug("Advanced finalized header")
	}
	return nil
}

// ProcessSlot implements process_slot_for_light_client_store. Once no
// finalizing update arrived for UpdateTimeout slots the best valid update is
// applied, using its attested header as finalized if it never proved finality.
func (lc *LightClient) ProcessSlot(store *types.LightClientStore, currentSlot eth2types.Slot) error {
	if uint64(currentSlot)%lc.cfg.UpdateTimeout == 0 {
		store.PreviousMaxActiveParticipants = store.CurrentMaxActiveParticipants
		store.CurrentMaxActiveParticipants = 0
	}
	if store.BestValidUpdate == nil || uint64(currentSlot) <= uint64(store.FinalizedHeader.Slot)+lc.cfg.UpdateTimeout {
		return nil
	}
	update := store.BestValidUpdate.Copy()
	store.BestValidUpdate = nil
	if update.FinalizedSlot() <= store.FinalizedHeader.Slot {
		attested := update.AttestedHeader
		update.FinalizedHeader = &attested
	}
	if err := lc.ApplyUpdate(store, update); err != nil {
		return errors.Wrap(err, "could not apply timed out update")
	}
	log.WithFields(logrus.Fields{
		"slot":         currentSlot,
		"finalized":    store.FinalizedHeader.Slot,
		"participants": update.SyncAggregate.Participants(lc.cfg.SyncCommitteeSize),
	}).Debug("Forced best valid update after timeout")
	return nil
}

// ProcessUpdate implements process_light_client_update. Either every effect of
// the update is committed to the store or, on error, none.
func (lc *LightClient) ProcessUpdate(
	store *types.LightClientStore,
	update *types.LightClientUpdate,
	currentSlot eth2types.Slot,
	genesisValidatorsRoot common.Hash,
) error {
	if err := lc.ValidateUpdate(store, update, currentSlot, genesisValidatorsRoot); err != nil {
		return err
	}
	next := store.Copy()
	participants := update.SyncAggregate.Participants(lc.cfg.SyncCommitteeSize)

	// Update the best update in case we have to force-update to it if the timeout elapses.
	if next.BestValidUpdate == nil || lc.IsBetterUpdate(update, next.BestValidUpdate) {
		next.BestValidUpdate = update.Copy()
	}

	// Track the maximum number of active participants in the committee signatures.
	if participants > next.CurrentMaxActiveParticipants {
		next.CurrentMaxActiveParticipants = participants
	}

	// Update the optimistic header.
	if participants > lc.SafetyThreshold(next) && update.AttestedHeader.Slot > next.OptimisticHeader.Slot {
		next.OptimisticHeader = update.AttestedHeader
		log.WithField("slot", next.OptimisticHeader.Slot).Debug("Advanced optimistic header")
	}

	// Update finalized header.
	hasFinalizedNextSyncCommittee := !next.IsNextSyncCommitteeKnown() &&
		update.IsSyncCommitteeUpdate() && update.IsFinalityUpdate() &&
		lc.cfg.SyncPeriodAtSlot(update.FinalizedSlot()) == lc.cfg.SyncPeriodAtSlot(update.AttestedHeader.Slot)
	if lc.hasSupermajority(participants) &&
		(update.FinalizedSlot() > next.FinalizedHeader.Slot || hasFinalizedNextSyncCommittee) {
		// Normal update through 2/3 threshold.
		if err := lc.ApplyUpdate(next, update); err != nil {
			return err
		}
		next.BestValidUpdate = nil
	}
	*store = *next
	return nil
}

// ProcessFinalityUpdate implements process_light_client_finality_update.
func (lc *LightClient) ProcessFinalityUpdate(
	store *types.LightClientStore,
	update *types.LightClientFinalityUpdate,
	currentSlot eth2types.Slot,
	genesisValidatorsRoot common.Hash,
) error {
	return lc.ProcessUpdate(store, types.FromFinalityUpdate(update), currentSlot, genesisValidatorsRoot)
}

// ProcessOptimisticUpdate implements process_light_client_optimistic_update.
func (lc *LightClient) ProcessOptimisticUpdate(
	store *types.LightClientStore,
	update *types.LightClientOptimisticUpdate,
	currentSlot eth2types.Slot,
	genesisValidatorsRoot common.Hash,
) error {
	return lc.ProcessUpdate(store, types.FromOptimisticUpdate(update), currentSlot, genesisValidatorsRoot)
}
