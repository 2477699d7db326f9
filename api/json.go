package api

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	eth2types "github.com/prysmaticlabs/eth2-types"
	"github.com/prysmaticlabs/go-bitfield"
)

// decimal is a uint64 encoded as a decimal string, as the beacon API does for
// all integers. Bare JSON numbers are accepted as well.
type decimal uint64

func (d *decimal) UnmarshalJSON(input []byte) error {
	input = bytes.Trim(input, `"`)
	v, err := strconv.ParseUint(string(input), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid decimal %q", input)
	}
	*d = decimal(v)
	return nil
}

func (d decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(d), 10) + `"`), nil
}

// jsonHeader is a BeaconBlockHeader in the beacon API format.
type jsonHeader struct {
	Slot          decimal     `json:"slot"`
	ProposerIndex decimal     `json:"proposer_index"`
	ParentRoot    common.Hash `json:"parent_root"`
	StateRoot     common.Hash `json:"state_root"`
	BodyRoot      common.Hash `json:"body_root"`
}

func (h *jsonHeader) header() types.BeaconBlockHeader {
	return types.BeaconBlockHeader{
		Slot:          eth2types.Slot(h.Slot),
		ProposerIndex: eth2types.ValidatorIndex(h.ProposerIndex),
		ParentRoot:    h.ParentRoot,
		StateRoot:     h.StateRoot,
		BodyRoot:      h.BodyRoot,
	}
}

// jsonLightClientHeader accepts both the bare header and the
// {"beacon": header} wrapping that servers use since Capella.
type jsonLightClientHeader jsonHeader

func (h *jsonLightClientHeader) UnmarshalJSON(input []byte) error {
	var wrapped struct {
		Beacon *jsonHeader `json:"beacon"`
	}
	if err := json.Unmarshal(input, &wrapped); err != nil {
		return err
	}
	if wrapped.Beacon != nil {
		*h = jsonLightClientHeader(*wrapped.Beacon)
		return nil
	}
	return json.Unmarshal(input, (*jsonHeader)(h))
}

func (h *jsonLightClientHeader) header() types.BeaconBlockHeader {
	return (*jsonHeader)(h).header()
}

type jsonSyncCommittee struct {
	Pubkeys         []hexutil.Bytes `json:"pubkeys"`
	AggregatePubkey hexutil.Bytes   `json:"aggregate_pubkey"`
}

func (c *jsonSyncCommittee) committee() (*types.SyncCommittee, error) {
	if len(c.Pubkeys) == 0 || len(c.Pubkeys) > config.MAX_SYNC_COMMITTEE_SIZE {
		return nil, errors.Errorf("invalid number of sync committee pubkeys %d", len(c.Pubkeys))
	}
	committee := &types.SyncCommittee{PubKeys: make([]types.BLSPubkey, len(c.Pubkeys))}
	for i, key := range c.Pubkeys {
		if len(key) != config.BLS_PUBKEY_LENGTH {
			return nil, errors.Errorf("invalid length %d of pubkey %d", len(key), i)
		}
		copy(committee.PubKeys[i][:], key)
	}
	if len(c.AggregatePubkey) != config.BLS_PUBKEY_LENGTH {
		return nil, errors.Errorf("invalid aggregate pubkey length %d", len(c.AggregatePubkey))
	}
	copy(committee.AggregatePubKey[:], c.AggregatePubkey)
	return committee, nil
}

// isZero reports whether c is the all-zero placeholder of an absent committee.
func (c *jsonSyncCommittee) isZero() bool {
	for _, key := range c.Pubkeys {
		if !isZeroBytes(key) {
			return false
		}
	}
	return isZeroBytes(c.AggregatePubkey)
}

func isZeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

type jsonSyncAggregate struct {
	Bits      hexutil.Bytes `json:"sync_committee_bits"`
	Signature hexutil.Bytes `json:"sync_committee_signature"`
}

func (a *jsonSyncAggregate) aggregate() (types.SyncAggregate, error) {
	if len(a.Bits) != config.MAX_SYNC_COMMITTEE_SIZE/8 {
		return types.SyncAggregate{}, errors.Errorf("invalid sync_committee_bits length %d", len(a.Bits))
	}
	if len(a.Signature) != config.BLS_SIGNATURE_LENGTH {
		return types.SyncAggregate{}, errors.Errorf("invalid sync_committee_signature length %d", len(a.Signature))
	}
	aggregate := types.SyncAggregate{SyncCommitteeBits: bitfield.Bitvector512(append([]byte{}, a.Bits...))}
	copy(aggregate.SyncCommitteeSignature[:], a.Signature)
	return aggregate, nil
}

// branch copies a JSON branch into dst, which must have the same length.
func branch(name string, src []common.Hash, dst []common.Hash) error {
	if len(src) != len(dst) {
		return errors.Errorf("invalid %s length %d, expected %d", name, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

type jsonBootstrap struct {
	Header                     jsonLightClientHeader `json:"header"`
	CurrentSyncCommittee       jsonSyncCommittee     `json:"current_sync_committee"`
	CurrentSyncCommitteeBranch []common.Hash         `json:"current_sync_committee_branch"`
}

func (b *jsonBootstrap) bootstrap() (*types.LightClientBootstrap, error) {
	committee, err := b.CurrentSyncCommittee.committee()
	if err != nil {
		return nil, errors.Wrap(err, "current_sync_committee")
	}
	bootstrap := &types.LightClientBootstrap{
		Header:               b.Header.header(),
		CurrentSyncCommittee: committee,
	}
	if err := branch("current_sync_committee_branch", b.CurrentSyncCommitteeBranch, bootstrap.CurrentSyncCommitteeBranch[:]); err != nil {
		return nil, err
	}
	return bootstrap, nil
}

// jsonUpdate covers full, finality and optimistic updates. The fields a
// reduced update lacks stay empty.
type jsonUpdate struct {
	AttestedHeader          jsonLightClientHeader  `json:"attested_header"`
	NextSyncCommittee       *jsonSyncCommittee     `json:"next_sync_committee"`
	NextSyncCommitteeBranch []common.Hash          `json:"next_sync_committee_branch"`
	FinalizedHeader         *jsonLightClientHeader `json:"finalized_header"`
	FinalityBranch          []common.Hash          `json:"finality_branch"`
	SyncAggregate           jsonSyncAggregate      `json:"sync_aggregate"`
	SignatureSlot           decimal                `json:"signature_slot"`
}

// update converts the JSON update. The zero placeholders servers send along
// with an all-zero branch become absent values, anything else without a
// branch is rejected.
func (u *jsonUpdate) update() (*types.LightClientUpdate, error) {
	aggregate, err := u.SyncAggregate.aggregate()
	if err != nil {
		return nil, err
	}
	update := &types.LightClientUpdate{
		AttestedHeader: u.AttestedHeader.header(),
		SyncAggregate:  aggregate,
		SignatureSlot:  eth2types.Slot(u.SignatureSlot),
	}
	if u.NextSyncCommitteeBranch != nil {
		if err := branch("next_sync_committee_branch", u.NextSyncCommitteeBranch, update.NextSyncCommitteeBranch[:]); err != nil {
			return nil, err
		}
	}
	if update.IsSyncCommitteeUpdate() {
		if u.NextSyncCommittee == nil {
			return nil, errors.New("next_sync_committee_branch without next_sync_committee")
		}
		if update.NextSyncCommittee, err = u.NextSyncCommittee.committee(); err != nil {
			return nil, errors.Wrap(err, "next_sync_committee")
		}
	} else if u.NextSyncCommittee != nil && !u.NextSyncCommittee.isZero() {
		return nil, errors.New("next_sync_committee without next_sync_committee_branch")
	}
	if u.FinalityBranch != nil {
		if err := branch("finality_branch", u.FinalityBranch, update.FinalityBranch[:]); err != nil {
			return nil, err
		}
	}
	if update.IsFinalityUpdate() {
		if u.FinalizedHeader == nil {
			return nil, errors.New("finality_branch without finalized_header")
		}
		finalized := u.FinalizedHeader.header()
		update.FinalizedHeader = &finalized
	} else if u.FinalizedHeader != nil {
		if finalized := u.FinalizedHeader.header(); !finalized.IsZero() {
			return nil, errors.New("finalized_header without finality_branch")
		}
	}
	return update, nil
}

func (u *jsonUpdate) finalityUpdate() (*types.LightClientFinalityUpdate, error) {
	update, err := u.update()
	if err != nil {
		return nil, err
	}
	return &types.LightClientFinalityUpdate{
		AttestedHeader:  update.AttestedHeader,
		FinalizedHeader: update.FinalizedHeader,
		FinalityBranch:  update.FinalityBranch,
		SyncAggregate:   update.SyncAggregate,
		SignatureSlot:   update.SignatureSlot,
	}, nil
}

func (u *jsonUpdate) optimisticUpdate() (*types.LightClientOptimisticUpdate, error) {
	aggregate, err := u.SyncAggregate.aggregate()
	if err != nil {
		return nil, err
	}
	return &types.LightClientOptimisticUpdate{
		AttestedHeader: u.AttestedHeader.header(),
		SyncAggregate:  aggregate,
		SignatureSlot:  eth2types.Slot(u.SignatureSlot),
	}, nil
}

// Genesis describes the chain the beacon node follows.
type Genesis struct {
	GenesisTime           uint64
	GenesisValidatorsRoot common.Hash
	GenesisForkVersion    config.Version
}

type jsonGenesis struct {
	GenesisTime           decimal       `json:"genesis_time"`
	GenesisValidatorsRoot common.Hash   `json:"genesis_validators_root"`
	GenesisForkVersion    hexutil.Bytes `json:"genesis_fork_version"`
}

func (g *jsonGenesis) genesis() (*Genesis, error) {
	genesis := &Genesis{
		GenesisTime:           uint64(g.GenesisTime),
		GenesisValidatorsRoot: g.GenesisValidatorsRoot,
	}
	if len(g.GenesisForkVersion) != len(genesis.GenesisForkVersion) {
		return nil, errors.Errorf("invalid genesis_fork_version length %d", len(g.GenesisForkVersion))
	}
	copy(genesis.GenesisForkVersion[:], g.GenesisForkVersion)
	return genesis, nil
}
