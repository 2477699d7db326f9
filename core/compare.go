package core

import "github.com/MariusVanDerWijden/altair-lc/types"

// hasRelevantSyncCommittee implements has_relevant_sync_committee.
func (lc *LightClient) hasRelevantSyncCommittee(update *types.LightClientUpdate) bool {
	return update.IsSyncCommitteeUpdate() &&
		lc.cfg.SyncPeriodAtSlot(update.AttestedHeader.Slot) == lc.cfg.SyncPeriodAtSlot(update.SignatureSlot)
}

// hasSyncCommitteeFinality implements has_sync_committee_finality.
func (lc *LightClient) hasSyncCommitteeFinality(update *types.LightClientUpdate) bool {
	return lc.cfg.SyncPeriodAtSlot(update.FinalizedSlot()) == lc.cfg.SyncPeriodAtSlot(update.AttestedHeader.Slot)
}

// IsBetterUpdate implements is_better_update. It reports whether newUpdate
// should replace oldUpdate as the best valid update.
func (lc *LightClient) IsBetterUpdate(newUpdate, oldUpdate *types.LightClientUpdate) bool {
	// Compare supermajority (> 2/3) sync committee participation
	newNumActiveParticipants := newUpdate.SyncAggregate.Participants(lc.cfg.SyncCommitteeSize)
	oldNumActiveParticipants := oldUpdate.SyncAggregate.Participants(lc.cfg.SyncCommitteeSize)
	newHasSupermajority := lc.hasSupermajority(newNumActiveParticipants)
	oldHasSupermajority := lc.hasSupermajority(oldNumActiveParticipants)
	if newHasSupermajority != oldHasSupermajority {
		return newHasSupermajority
	}
	if !newHasSupermajority && newNumActiveParticipants != oldNumActiveParticipants {
		return newNumActiveParticipants > oldNumActiveParticipants
	}

	// Compare presence of relevant sync committee
	newHasRelevantSyncCommittee := lc.hasRelevantSyncCommittee(newUpdate)
	oldHasRelevantSyncCommittee := lc.hasRelevantSyncCommittee(oldUpdate)
	if newHasRelevantSyncCommittee != oldHasRelevantSyncCommittee {
		return newHasRelevantSyncCommittee
	}

	// Compare indication of any finality
	newHasFinality := newUpdate.IsFinalityUpdate()
	oldHasFinality := oldUpdate.IsFinalityUpdate()
	if newHasFinality != oldHasFinality {
		return newHasFinality
	}

	// Compare sync committee finality
	if newHasFinality {
		newHasSyncCommitteeFinality := lc.hasSyncCommitteeFinality(newUpdate)
		oldHasSyncCommitteeFinality := lc.hasSyncCommitteeFinality(oldUpdate)
		if newHasSyncCommitteeFinality != oldHasSyncCommitteeFinality {
			return newHasSyncCommitteeFinality
		}
	}

	// Tiebreaker 1: Sync committee participation beyond supermajority
	if newNumActiveParticipants != oldNumActiveParticipants {
		return newNumActiveParticipants > oldNumActiveParticipants
	}

	// Tiebreaker 2: Prefer older data (fewer changes to best)
	if newUpdate.AttestedHeader.Slot != oldUpdate.AttestedHeader.Slot {
		return newUpdate.AttestedHeader.Slot < oldUpdate.AttestedHeader.Slot
	}
	return newUpdate.SignatureSlot < oldUpdate.SignatureSlot
}
