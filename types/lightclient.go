package types

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/merkle"
	"github.com/ethereum/go-ethereum/common"
	eth2types "github.com/prysmaticlabs/eth2-types"
)

// LightClientBootstrap is the trust-establishment payload for a single block root.
type LightClientBootstrap struct {
	Header                     BeaconBlockHeader
	CurrentSyncCommittee       *SyncCommittee
	CurrentSyncCommitteeBranch [config.CURRENT_SYNC_COMMITTEE_BRANCH_LENGTH]common.Hash
}

// LightClientUpdate carries a signed attested header together with optional
// proofs of the next sync committee and of finality. A nil NextSyncCommittee
// or FinalizedHeader means the corresponding branch is absent (all-zero).
type LightClientUpdate struct {
	// Header attested to by the sync committee
	AttestedHeader BeaconBlockHeader
	// Next sync committee in the state of the attested header
	NextSyncCommittee       *SyncCommittee
	NextSyncCommitteeBranch [config.NEXT_SYNC_COMMITTEE_BRANCH_LENGTH]common.Hash
	// Finalized header proven against the state of the attested header
	FinalizedHeader *BeaconBlockHeader
	FinalityBranch  [config.FINALITY_BRANCH_LENGTH]common.Hash
	// Sync committee aggregate signature
	SyncAggregate SyncAggregate
	// Slot at which the aggregate signature was created (untrusted)
	SignatureSlot eth2types.Slot
}

// IsSyncCommitteeUpdate implements is_sync_committee_update.
func (u *LightClientUpdate) IsSyncCommitteeUpdate() bool {
	return !merkle.IsZeroBranch(u.NextSyncCommitteeBranch[:])
}

// IsFinalityUpdate implements is_finality_update.
func (u *LightClientUpdate) IsFinalityUpdate() bool {
	return !merkle.IsZeroBranch(u.FinalityBranch[:])
}

// FinalizedSlot returns the slot of the finalized header, GENESIS_SLOT when absent.
func (u *LightClientUpdate) FinalizedSlot() eth2types.Slot {
	if u.FinalizedHeader == nil {
		return config.GENESIS_SLOT
	}
	return u.FinalizedHeader.Slot
}

// ActiveHeader is the header the update tries to convince the store of: the
// finalized header for finality updates, the attested header otherwise.
func (u *LightClientUpdate) ActiveHeader() BeaconBlockHeader {
	if u.IsFinalityUpdate() && u.FinalizedHeader != nil {
		return *u.FinalizedHeader
	}
	return u.AttestedHeader
}

// Copy returns a copy of the update that can be modified without affecting u.
// Sync committees are shared as they are never mutated.
func (u *LightClientUpdate) Copy() *LightClientUpdate {
	cp := *u
	if u.FinalizedHeader != nil {
		header := *u.FinalizedHeader
		cp.FinalizedHeader = &header
	}
	if u.SyncAggregate.SyncCommitteeBits != nil {
		cp.SyncAggregate.SyncCommitteeBits = append(cp.SyncAggregate.SyncCommitteeBits[:0:0], u.SyncAggregate.SyncCommitteeBits...)
	}
	return &cp
}

// LightClientFinalityUpdate is a LightClientUpdate without the next sync committee.
type LightClientFinalityUpdate struct {
	AttestedHeader  BeaconBlockHeader
	FinalizedHeader *BeaconBlockHeader
	FinalityBranch  [config.FINALITY_BRANCH_LENGTH]common.Hash
	SyncAggregate   SyncAggregate
	SignatureSlot   eth2types.Slot
}

// LightClientOptimisticUpdate only carries a signed attested header.
type LightClientOptimisticUpdate struct {
	AttestedHeader BeaconBlockHeader
	SyncAggregate  SyncAggregate
	SignatureSlot  eth2types.Slot
}

// FromFinalityUpdate lifts a finality update into a full update with an empty
// next sync committee proof.
func FromFinalityUpdate(update *LightClientFinalityUpdate) *LightClientUpdate {
	return &LightClientUpdate{
		AttestedHeader:  update.AttestedHeader,
		FinalizedHeader: update.FinalizedHeader,
		FinalityBranch:  update.FinalityBranch,
		SyncAggregate:   update.SyncAggregate,
		SignatureSlot:   update.SignatureSlot,
	}
}

// FromOptimisticUpdate lifts an optimistic update into a full update without
// any proofs.
func FromOptimisticUpdate(update *LightClientOptimisticUpdate) *LightClientUpdate {
	return &LightClientUpdate{
		AttestedHeader: update.AttestedHeader,
		SyncAggregate:  update.SyncAggregate,
		SignatureSlot:  update.SignatureSlot,
	}
}

// LightClientStore is the mutable light client state.
type LightClientStore struct {
	// Header that is finalized (not expected to revert)
	FinalizedHeader BeaconBlockHeader
	// Sync committees corresponding to the finalized header
	CurrentSyncCommittee *SyncCommittee
	NextSyncCommittee    *SyncCommittee
	// Best available update to switch the finalized head to if nothing else arrives
	BestValidUpdate *LightClientUpdate
	// Most recent available reasonably-safe header
	OptimisticHeader BeaconBlockHeader
	// Max number of active participants in a sync committee (used to calculate safety threshold)
	PreviousMaxActiveParticipants uint64
	CurrentMaxActiveParticipants  uint64
}

// IsNextSyncCommitteeKnown implements is_next_sync_committee_known.
func (s *LightClientStore) IsNextSyncCommitteeKnown() bool {
	return s.NextSyncCommittee != nil
}

// Copy returns a shallow copy. Headers are copied by value, committees and the
// best update are shared.
func (s *LightClientStore) Copy() *LightClientStore {
	cp := *s
	return &cp
}
