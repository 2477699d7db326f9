package core

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/merkle"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	eth2types "github.com/prysmaticlabs/eth2-types"
)

// ValidateUpdate implements validate_light_client_update. It does not modify
// the store or the update.
func (lc *LightClient) ValidateUpdate(
	store *types.LightClientStore,
	update *types.LightClientUpdate,
	currentSlot eth2types.Slot,
	genesisValidatorsRoot common.Hash,
) error {
	cfg := lc.cfg

	participants := update.SyncAggregate.Participants(cfg.SyncCommitteeSize)
	if participants < cfg.MinSyncCommitteeParticipants {
		return errors.Wrapf(ErrInsufficientParticipants, "%d participants, need %d", participants, cfg.MinSyncCommitteeParticipants)
	}

	// Verify the update does not skip a sync committee period.
	finalizedSlot := update.FinalizedSlot()
	if !(currentSlot >= update.SignatureSlot &&
		update.SignatureSlot > update.AttestedHeader.Slot &&
		update.AttestedHeader.Slot >= finalizedSlot) {
		return errors.Wrapf(ErrPeriodSkip, "slots out of order: current %d, signature %d, attested %d, finalized %d",
			currentSlot, update.SignatureSlot, update.AttestedHeader.Slot, finalizedSlot)
	}
	storePeriod := cfg.SyncPeriodAtSlot(store.FinalizedHeader.Slot)
	signaturePeriod := cfg.SyncPeriodAtSlot(update.SignatureSlot)
	if store.IsNextSyncCommitteeKnown() {
		if signaturePeriod != storePeriod && signaturePeriod != storePeriod+1 {
			return errors.Wrapf(ErrPeriodSkip, "signature period %d, store period %d", signaturePeriod, storePeriod)
		}
	} else if signaturePeriod != storePeriod {
		return errors.Wrapf(ErrPeriodSkip, "signature period %d, store period %d without next sync committee", signaturePeriod, storePeriod)
	}

	// Verify the update is relevant.
	attestedPeriod := cfg.SyncPeriodAtSlot(update.AttestedHeader.Slot)
	hasNextSyncCommittee := !store.IsNextSyncCommitteeKnown() &&
		update.IsSyncCommitteeUpdate() && attestedPeriod == storePeriod
	if !(update.AttestedHeader.Slot > store.FinalizedHeader.Slot || hasNextSyncCommittee) {
		return errors.Wrapf(ErrIrrelevantUpdate, "attested slot %d, finalized slot %d", update.AttestedHeader.Slot, store.FinalizedHeader.Slot)
	}

	if err := lc.verifyFinality(update); err != nil {
		return err
	}
	if err := lc.verifyNextSyncCommittee(store, update, storePeriod, attestedPeriod); err != nil {
		return err
	}

	committee := store.CurrentSyncCommittee
	if signaturePeriod != storePeriod {
		committee = store.NextSyncCommittee
	}
	return lc.verifySyncAggregate(committee, update, genesisValidatorsRoot)
}

// verifyFinality checks that the finalized header, if any, is proven against
// the attested state. The finalized checkpoint of the genesis epoch is the
// zero root, which only the zero header may claim.
func (lc *LightClient) verifyFinality(update *types.LightClientUpdate) error {
	finalized := update.FinalizedHeader
	if !update.IsFinalityUpdate() {
		if finalized != nil {
			return errors.Wrap(ErrInvalidMerkleProof, "finalized header without finality branch")
		}
		return nil
	}
	var finalizedRoot common.Hash
	if finalized != nil && finalized.Slot != config.GENESIS_SLOT {
		root, err := finalized.HashTreeRoot()
		if err != nil {
			return errors.Wrap(err, "could not hash finalized header")
		}
		finalizedRoot = root
	} else if finalized != nil && !finalized.IsZero() {
		return errors.Wrap(ErrInvalidMerkleProof, "genesis finalized header must be empty")
	}
	if !merkle.IsValidBranch(
		finalizedRoot,
		update.FinalityBranch[:],
		config.FINALIZED_ROOT_INDEX,
		update.AttestedHeader.StateRoot,
	) {
		return errors.Wrap(ErrInvalidMerkleProof, "finality branch")
	}
	return nil
}

// verifyNextSyncCommittee checks that the next sync committee, if any, is
// proven against the attested state and agrees with a known one.
func (lc *LightClient) verifyNextSyncCommittee(store *types.LightClientStore, update *types.LightClientUpdate, storePeriod, attestedPeriod uint64) error {
	committee := update.NextSyncCommittee
	if !update.IsSyncCommitteeUpdate() {
		if committee != nil {
			return errors.Wrap(ErrInvalidMerkleProof, "next sync committee without branch")
		}
		return nil
	}
	if committee == nil {
		return errors.Wrap(ErrInvalidMerkleProof, "next sync committee branch without committee")
	}
	if uint64(len(committee.PubKeys)) != lc.cfg.SyncCommitteeSize {
		return errors.Wrapf(ErrCommitteeMismatch, "next sync committee has %d members, expected %d", len(committee.PubKeys), lc.cfg.SyncCommitteeSize)
	}
	if attestedPeriod == storePeriod && store.IsNextSyncCommitteeKnown() && !committee.Equal(store.NextSyncCommittee) {
		return errors.Wrapf(ErrCommitteeMismatch, "next sync committee of period %d differs from known one", storePeriod+1)
	}
	committeeRoot, err := committee.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "could not hash next sync committee")
	}
	if !merkle.IsValidBranch(
		committeeRoot,
		update.NextSyncCommitteeBranch[:],
		config.NEXT_SYNC_COMMITTEE_INDEX,
		update.AttestedHeader.StateRoot,
	) {
		return errors.Wrap(ErrInvalidMerkleProof, "next sync committee branch")
	}
	return nil
}

// verifySyncAggregate checks the aggregate signature of the participating
// committee members over the attested header.
func (lc *LightClient) verifySyncAggregate(committee *types.SyncCommittee, update *types.LightClientUpdate, genesisValidatorsRoot common.Hash) error {
	if committee == nil || uint64(len(committee.PubKeys)) != lc.cfg.SyncCommitteeSize {
		return errors.Wrap(ErrCommitteeMismatch, "no signing sync committee")
	}
	bits := update.SyncAggregate.SyncCommitteeBits
	pubkeys := make([]types.BLSPubkey, 0, update.SyncAggregate.Participants(lc.cfg.SyncCommitteeSize))
	for i, pubkey := range committee.PubKeys {
		if bits != nil && uint64(i) < bits.Len() && bits.BitAt(uint64(i)) {
			pubkeys = append(pubkeys, pubkey)
		}
	}
	signingRoot, err := types.SyncCommitteeSigningRoot(lc.cfg, &update.AttestedHeader, genesisValidatorsRoot)
	if err != nil {
		return err
	}
	if !lc.verifier.VerifyAggregate(pubkeys, signingRoot, update.SyncAggregate.SyncCommitteeSignature) {
		return errors.Wrapf(ErrSignatureVerificationFailure, "attested slot %d, %d signers", update.AttestedHeader.Slot, len(pubkeys))
	}
	return nil
}
