package testutil

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/prysm/shared/bls"
	"github.com/stretchr/testify/require"
)

// Committee is a sync committee together with the secret keys of its members.
type Committee struct {
	*types.SyncCommittee
	Keys []bls.SecretKey
}

// NewCommittee generates size fresh BLS keys.
func NewCommittee(t require.TestingT, size uint64) *Committee {
	c := &Committee{
		SyncCommittee: &types.SyncCommittee{PubKeys: make([]types.BLSPubkey, size)},
		Keys:          make([]bls.SecretKey, size),
	}
	var aggregate bls.PublicKey
	for i := range c.Keys {
		key, err := bls.RandKey()
		require.NoError(t, err)
		c.Keys[i] = key
		copy(c.PubKeys[i][:], key.PublicKey().Marshal())
		if aggregate == nil {
			aggregate = key.PublicKey().Copy()
		} else {
			aggregate = aggregate.Aggregate(key.PublicKey())
		}
	}
	if aggregate != nil {
		copy(c.AggregatePubKey[:], aggregate.Marshal())
	}
	return c
}

// Sign sets the sync aggregate of update to the signature of the first
// signers committee members over the attested header.
func (c *Committee) Sign(t require.TestingT, cfg *config.Config, update *types.LightClientUpdate, signers uint64, genesisValidatorsRoot common.Hash) {
	signingRoot, err := types.SyncCommitteeSigningRoot(cfg, &update.AttestedHeader, genesisValidatorsRoot)
	require.NoError(t, err)
	sigs := make([]bls.Signature, 0, signers)
	for _, key := range c.Keys[:signers] {
		sigs = append(sigs, key.Sign(signingRoot[:]))
	}
	update.SyncAggregate = types.SyncAggregate{SyncCommitteeBits: Bits(signers, uint64(len(c.Keys)))}
	if len(sigs) > 0 {
		copy(update.SyncAggregate.SyncCommitteeSignature[:], bls.AggregateSignatures(sigs).Marshal())
	}
}

// Verifier is a fake signature verifier returning a fixed verdict. It
// records the arguments of the last call.
type Verifier struct {
	Valid   bool
	Calls   int
	Pubkeys []types.BLSPubkey
	Message common.Hash
}

// VerifyAggregate implements core.Verifier.
func (v *Verifier) VerifyAggregate(pubkeys []types.BLSPubkey, message common.Hash, _ types.BLSSignature) bool {
	v.Calls++
	v.Pubkeys = pubkeys
	v.Message = message
	return v.Valid
}
