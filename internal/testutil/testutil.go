// Package testutil builds synthetic sync committees, beacon states and signed
// light client updates for tests.
package testutil

import (
	"encoding/binary"

	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/merkle"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	eth2types "github.com/prysmaticlabs/eth2-types"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/require"
)

// GenesisValidatorsRoot is used by all synthetic chains.
var GenesisValidatorsRoot = common.HexToHash("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95")

// Config returns a chain with a 4 member committee and 16 slot periods.
func Config() *config.Config {
	cfg := config.MinimalConfig()
	cfg.ConfigName = "testing"
	cfg.SlotsPerEpoch = 8
	cfg.EpochsPerSyncCommitteePeriod = 2
	cfg.SyncCommitteeSize = 4
	cfg.MinSyncCommitteeParticipants = 1
	cfg.UpdateTimeout = 16
	cfg.GenesisValidatorsRoot = config.Root(GenesisValidatorsRoot)
	return cfg
}

// FakeCommittee returns a committee of distinct keys that are not valid BLS
// points. It only serves tests running with a fake verifier.
func FakeCommittee(size uint64, seed byte) *types.SyncCommittee {
	committee := &types.SyncCommittee{PubKeys: make([]types.BLSPubkey, size)}
	for i := range committee.PubKeys {
		committee.PubKeys[i][0] = seed
		binary.BigEndian.PutUint64(committee.PubKeys[i][1:], uint64(i))
	}
	committee.AggregatePubKey[0] = seed
	committee.AggregatePubKey[47] = 0xff
	return committee
}

// Bits sets the first n of size participation bits.
func Bits(n, size uint64) bitfield.Bitvector512 {
	bits := bitfield.NewBitvector512()
	for i := uint64(0); i < n && i < size; i++ {
		bits.SetBitAt(i, true)
	}
	return bits
}

// State holds the fields of a beacon state that light client proofs cover.
// Everything else in the state is zero.
type State struct {
	Slot                 eth2types.Slot
	CurrentSyncCommittee *types.SyncCommittee
	NextSyncCommittee    *types.SyncCommittee
	// FinalizedRoot is the block root of the finalized checkpoint.
	FinalizedRoot common.Hash
}

// stateTreeDepth fits the finalized checkpoint root at gindex 105.
const stateTreeDepth = 6

// genesisTimeIndex is the generalized index of the first state field.
const genesisTimeIndex = 32

func (s *State) tree(t require.TestingT) *merkle.SparseTree {
	tree := merkle.NewSparseTree(stateTreeDepth)
	var slot common.Hash
	binary.LittleEndian.PutUint64(slot[:], uint64(s.Slot)+1)
	tree.Set(genesisTimeIndex, slot)
	if s.CurrentSyncCommittee != nil {
		root, err := s.CurrentSyncCommittee.HashTreeRoot()
		require.NoError(t, err)
		tree.Set(config.CURRENT_SYNC_COMMITTEE_INDEX, root)
	}
	if s.NextSyncCommittee != nil {
		root, err := s.NextSyncCommittee.HashTreeRoot()
		require.NoError(t, err)
		tree.Set(config.NEXT_SYNC_COMMITTEE_INDEX, root)
	}
	tree.Set(config.FINALIZED_ROOT_INDEX, s.FinalizedRoot)
	return tree
}

// Root returns the state root.
func (s *State) Root(t require.TestingT) common.Hash {
	return s.tree(t).Root()
}

// CurrentSyncCommitteeBranch proves the current sync committee.
func (s *State) CurrentSyncCommitteeBranch(t require.TestingT) (branch [config.CURRENT_SYNC_COMMITTEE_BRANCH_LENGTH]common.Hash) {
	copy(branch[:], s.tree(t).Branch(config.CURRENT_SYNC_COMMITTEE_INDEX))
	return branch
}

// NextSyncCommitteeBranch proves the next sync committee.
func (s *State) NextSyncCommitteeBranch(t require.TestingT) (branch [config.NEXT_SYNC_COMMITTEE_BRANCH_LENGTH]common.Hash) {
	copy(branch[:], s.tree(t).Branch(config.NEXT_SYNC_COMMITTEE_INDEX))
	return branch
}

// FinalityBranch proves the finalized checkpoint root.
func (s *State) FinalityBranch(t require.TestingT) (branch [config.FINALITY_BRANCH_LENGTH]common.Hash) {
	copy(branch[:], s.tree(t).Branch(config.FINALIZED_ROOT_INDEX))
	return branch
}

// Header returns a header at slot committing to the given state root.
func Header(slot eth2types.Slot, stateRoot common.Hash) types.BeaconBlockHeader {
	var parent, body common.Hash
	binary.BigEndian.PutUint64(parent[24:], uint64(slot))
	binary.BigEndian.PutUint64(body[:8], uint64(slot))
	body[31] = 0xb0
	return types.BeaconBlockHeader{
		Slot:          slot,
		ProposerIndex: eth2types.ValidatorIndex(uint64(slot) % 7),
		ParentRoot:    parent,
		StateRoot:     stateRoot,
		BodyRoot:      body,
	}
}

// BlockRoot returns the root of header.
func BlockRoot(t require.TestingT, header *types.BeaconBlockHeader) common.Hash {
	root, err := header.HashTreeRoot()
	require.NoError(t, err)
	return root
}

// Bootstrap returns a bootstrap for a block at slot along with its block root.
func Bootstrap(t require.TestingT, slot eth2types.Slot, current, next *types.SyncCommittee) (*types.LightClientBootstrap, common.Hash) {
	state := &State{Slot: slot, CurrentSyncCommittee: current, NextSyncCommittee: next}
	bootstrap := &types.LightClientBootstrap{
		Header:                     Header(slot, state.Root(t)),
		CurrentSyncCommittee:       current,
		CurrentSyncCommitteeBranch: state.CurrentSyncCommitteeBranch(t),
	}
	return bootstrap, BlockRoot(t, &bootstrap.Header)
}

// UpdateParams describes an unsigned update.
type UpdateParams struct {
	AttestedSlot  eth2types.Slot
	SignatureSlot eth2types.Slot
	// Finalized is proven against the attested state when set. The zero header
	// proves the genesis checkpoint.
	Finalized *types.BeaconBlockHeader
	// NextSyncCommittee is proven against the attested state when set.
	NextSyncCommittee    *types.SyncCommittee
	CurrentSyncCommittee *types.SyncCommittee
}

// Update builds an update whose proofs verify against the attested state. The
// sync aggregate is left empty.
func Update(t require.TestingT, p UpdateParams) *types.LightClientUpdate {
	state := &State{
		Slot:                 p.AttestedSlot,
		CurrentSyncCommittee: p.CurrentSyncCommittee,
		NextSyncCommittee:    p.NextSyncCommittee,
	}
	if p.Finalized != nil && !p.Finalized.IsZero() {
		state.FinalizedRoot = BlockRoot(t, p.Finalized)
	}
	update := &types.LightClientUpdate{
		AttestedHeader: Header(p.AttestedSlot, state.Root(t)),
		SignatureSlot:  p.SignatureSlot,
		SyncAggregate:  types.SyncAggregate{SyncCommitteeBits: bitfield.NewBitvector512()},
	}
	if p.Finalized != nil {
		finalized := *p.Finalized
		update.FinalizedHeader = &finalized
		update.FinalityBranch = state.FinalityBranch(t)
	}
	if p.NextSyncCommittee != nil {
		update.NextSyncCommittee = p.NextSyncCommittee
		update.NextSyncCommitteeBranch = state.NextSyncCommitteeBranch(t)
	}
	return update
}
