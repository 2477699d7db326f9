package core

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/merkle"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// InitializeStore implements initialize_light_client_store. The bootstrap is
// only trusted if its header hashes to trustedBlockRoot and the current sync
// committee is proven against the header's state root.
func (lc *LightClient) InitializeStore(trustedBlockRoot common.Hash, bootstrap *types.LightClientBootstrap) (*types.LightClientStore, error) {
	if bootstrap == nil {
		return nil, errors.Wrap(ErrTrustAnchorMismatch, "no bootstrap")
	}
	headerRoot, err := bootstrap.Header.HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "could not hash bootstrap header")
	}
	if common.Hash(headerRoot) != trustedBlockRoot {
		return nil, errors.Wrapf(ErrTrustAnchorMismatch, "header root %#x, trusted root %#x", headerRoot, trustedBlockRoot)
	}
	committee := bootstrap.CurrentSyncCommittee
	if committee == nil {
		return nil, errors.Wrap(ErrInvalidMerkleProof, "bootstrap has no current sync committee")
	}
	if uint64(len(committee.PubKeys)) != lc.cfg.SyncCommitteeSize {
		return nil, errors.Wrapf(ErrCommitteeMismatch, "committee has %d members, expected %d", len(committee.PubKeys), lc.cfg.SyncCommitteeSize)
	}
	committeeRoot, err := committee.HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "could not hash current sync committee")
	}
	if !merkle.IsValidBranch(
		committeeRoot,
		bootstrap.CurrentSyncCommitteeBranch[:],
		config.CURRENT_SYNC_COMMITTEE_INDEX,
		bootstrap.Header.StateRoot,
	) {
		return nil, errors.Wrap(ErrInvalidMerkleProof, "current sync committee branch")
	}
	log.WithFields(logrus.Fields{
		"slot":   bootstrap.Header.Slot,
		"period": lc.cfg.SyncPeriodAtSlot(bootstrap.Header.Slot),
	}).Debug("Initialized light client store")
	return &types.LightClientStore{
		FinalizedHeader:      bootstrap.Header,
		CurrentSyncCommittee: committee,
		OptimisticHeader:     bootstrap.Header,
	}, nil
}
