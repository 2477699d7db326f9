package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/prysmaticlabs/go-bitfield"
)

// SyncCommittee is the validator subset signing headers during one period.
type SyncCommittee struct {
	PubKeys         []BLSPubkey
	AggregatePubKey BLSPubkey
}

// Equal reports whether both committees hold the same keys.
func (c *SyncCommittee) Equal(other *SyncCommittee) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.PubKeys) != len(other.PubKeys) || c.AggregatePubKey != other.AggregatePubKey {
		return false
	}
	for i := range c.PubKeys {
		if c.PubKeys[i] != other.PubKeys[i] {
			return false
		}
	}
	return true
}

// HashTreeRoot returns the SSZ root of the committee.
func (c *SyncCommittee) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(c)
}

func (c *SyncCommittee) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	{
		subIndx := hh.Index()
		for _, pubkey := range c.PubKeys {
			hh.PutBytes(pubkey[:])
		}
		hh.Merkleize(subIndx)
	}
	hh.PutBytes(c.AggregatePubKey[:])
	hh.Merkleize(indx)
	return nil
}

// SyncAggregate records which committee members signed and their aggregate signature.
type SyncAggregate struct {
	SyncCommitteeBits      bitfield.Bitvector512
	SyncCommitteeSignature BLSSignature
}

// Participants counts the set bits among the first committeeSize positions.
func (a *SyncAggregate) Participants(committeeSize uint64) uint64 {
	var count uint64
	if a.SyncCommitteeBits == nil {
		return 0
	}
	for i := uint64(0); i < committeeSize && i < a.SyncCommitteeBits.Len(); i++ {
		if a.SyncCommitteeBits.BitAt(i) {
			count++
		}
	}
	return count
}
