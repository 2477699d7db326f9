package types

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashPair(a, b []byte) [32]byte {
	return sha256.Sum256(append(append([]byte{}, a...), b...))
}

func chunk(b []byte) []byte {
	var c [32]byte
	copy(c[:], b)
	return c[:]
}

func TestHeaderHashTreeRoot(t *testing.T) {
	header := &BeaconBlockHeader{
		Slot:          3434,
		ProposerIndex: 77,
		ParentRoot:    common.HexToHash("0x01"),
		StateRoot:     common.HexToHash("0x02"),
		BodyRoot:      common.HexToHash("0x03"),
	}
	// Five fields padded to eight leaves.
	var leaves [8][32]byte
	binary.LittleEndian.PutUint64(leaves[0][:], 3434)
	binary.LittleEndian.PutUint64(leaves[1][:], 77)
	leaves[2], leaves[3], leaves[4] = header.ParentRoot, header.StateRoot, header.BodyRoot
	l1 := [4][32]byte{}
	for i := range l1 {
		l1[i] = hashPair(leaves[2*i][:], leaves[2*i+1][:])
	}
	a, b := hashPair(l1[0][:], l1[1][:]), hashPair(l1[2][:], l1[3][:])
	want := hashPair(a[:], b[:])

	root, err := header.HashTreeRoot()
	require.NoError(t, err)
	assert.Equal(t, want, root)

	other := *header
	other.Slot++
	otherRoot, err := other.HashTreeRoot()
	require.NoError(t, err)
	assert.NotEqual(t, root, otherRoot)
}

func TestHeaderIsZero(t *testing.T) {
	assert.True(t, (&BeaconBlockHeader{}).IsZero())
	assert.False(t, (&BeaconBlockHeader{BodyRoot: common.Hash{1}}).IsZero())
}

func testCommittee(n int, seed byte) *SyncCommittee {
	c := &SyncCommittee{PubKeys: make([]BLSPubkey, n)}
	for i := range c.PubKeys {
		c.PubKeys[i][0] = seed
		c.PubKeys[i][47] = byte(i)
	}
	c.AggregatePubKey[1] = seed
	return c
}

func TestSyncCommitteeHashTreeRoot(t *testing.T) {
	c := testCommittee(4, 9)
	var keyRoots [4][32]byte
	for i, pk := range c.PubKeys {
		keyRoots[i] = hashPair(pk[:32], chunk(pk[32:]))
	}
	a, b := hashPair(keyRoots[0][:], keyRoots[1][:]), hashPair(keyRoots[2][:], keyRoots[3][:])
	vector := hashPair(a[:], b[:])
	agg := hashPair(c.AggregatePubKey[:32], chunk(c.AggregatePubKey[32:]))
	want := hashPair(vector[:], agg[:])

	root, err := c.HashTreeRoot()
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestSyncCommitteeEqual(t *testing.T) {
	assert.True(t, testCommittee(4, 1).Equal(testCommittee(4, 1)))
	assert.False(t, testCommittee(4, 1).Equal(testCommittee(4, 2)))
	assert.False(t, testCommittee(4, 1).Equal(testCommittee(3, 1)))
	assert.False(t, testCommittee(4, 1).Equal(nil))
	var nilCommittee *SyncCommittee
	assert.True(t, nilCommittee.Equal(nil))
}

func TestForkDataHashTreeRoot(t *testing.T) {
	gvr := common.HexToHash("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95")
	fd := &ForkData{CurrentVersion: config.Version{1, 0, 0, 0}, GenesisValidatorsRoot: gvr}
	root, err := fd.HashTreeRoot()
	require.NoError(t, err)
	assert.Equal(t, hashPair(chunk([]byte{1, 0, 0, 0}), gvr[:]), root)

	sd := &SigningData{ObjectRoot: common.Hash{1}, Domain: Domain{2}}
	sdRoot, err := sd.HashTreeRoot()
	require.NoError(t, err)
	assert.Equal(t, hashPair(sd.ObjectRoot[:], sd.Domain[:]), sdRoot)
}

func TestComputeDomain(t *testing.T) {
	gvr := common.HexToHash("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95")
	domainType := config.DomainType{7, 0, 0, 0}
	version := config.Version{1, 0, 0, 0}
	forkDataRoot := hashPair(chunk(version[:]), gvr[:])

	domain, err := ComputeDomain(domainType, version, gvr)
	require.NoError(t, err)
	assert.Equal(t, domainType[:], domain[:4])
	assert.Equal(t, forkDataRoot[:28], domain[4:])

	other, err := ComputeDomain(domainType, config.Version{2, 0, 0, 0}, gvr)
	require.NoError(t, err)
	assert.NotEqual(t, domain, other)

	header := &BeaconBlockHeader{Slot: 1}
	headerRoot, err := header.HashTreeRoot()
	require.NoError(t, err)
	signingRoot, err := ComputeSigningRoot(header, domain)
	require.NoError(t, err)
	assert.Equal(t, common.Hash(hashPair(headerRoot[:], domain[:])), signingRoot)

	cfg := config.MainnetConfig()
	altair, err := SyncCommitteeSigningRoot(cfg, &BeaconBlockHeader{Slot: 74240 * 32}, gvr)
	require.NoError(t, err)
	altairDomain, err := ComputeDomain(cfg.DomainSyncCommittee, cfg.AltairForkVersion, gvr)
	require.NoError(t, err)
	want, err := ComputeSigningRoot(&BeaconBlockHeader{Slot: 74240 * 32}, altairDomain)
	require.NoError(t, err)
	assert.Equal(t, want, altair)
}

func TestParticipants(t *testing.T) {
	agg := SyncAggregate{SyncCommitteeBits: bitfield.NewBitvector512()}
	assert.Equal(t, uint64(0), agg.Participants(512))
	agg.SyncCommitteeBits.SetBitAt(0, true)
	agg.SyncCommitteeBits.SetBitAt(3, true)
	agg.SyncCommitteeBits.SetBitAt(100, true)
	assert.Equal(t, uint64(3), agg.Participants(512))
	assert.Equal(t, uint64(2), agg.Participants(4))
	assert.Equal(t, uint64(0), (&SyncAggregate{}).Participants(512))
}

func TestUpdateReductions(t *testing.T) {
	finalized := &BeaconBlockHeader{Slot: 10}
	finality := &LightClientFinalityUpdate{
		AttestedHeader:  BeaconBlockHeader{Slot: 20},
		FinalizedHeader: finalized,
		SyncAggregate:   SyncAggregate{SyncCommitteeBits: bitfield.NewBitvector512()},
		SignatureSlot:   21,
	}
	finality.FinalityBranch[2] = common.Hash{7}
	update := FromFinalityUpdate(finality)
	assert.True(t, update.IsFinalityUpdate())
	assert.False(t, update.IsSyncCommitteeUpdate())
	assert.Nil(t, update.NextSyncCommittee)
	assert.Equal(t, finality.FinalityBranch, update.FinalityBranch)
	assert.Equal(t, *finalized, update.ActiveHeader())

	optimistic := FromOptimisticUpdate(&LightClientOptimisticUpdate{
		AttestedHeader: BeaconBlockHeader{Slot: 20},
		SignatureSlot:  21,
	})
	assert.False(t, optimistic.IsFinalityUpdate())
	assert.False(t, optimistic.IsSyncCommitteeUpdate())
	assert.Nil(t, optimistic.FinalizedHeader)
	assert.Equal(t, config.GENESIS_SLOT, int(optimistic.FinalizedSlot()))
	assert.Equal(t, optimistic.AttestedHeader, optimistic.ActiveHeader())
}

func TestUpdateCopy(t *testing.T) {
	update := &LightClientUpdate{
		FinalizedHeader: &BeaconBlockHeader{Slot: 5},
		SyncAggregate:   SyncAggregate{SyncCommitteeBits: bitfield.NewBitvector512()},
	}
	cp := update.Copy()
	cp.FinalizedHeader.Slot = 6
	cp.SyncAggregate.SyncCommitteeBits.SetBitAt(1, true)
	assert.Equal(t, 5, int(update.FinalizedHeader.Slot))
	assert.False(t, update.SyncAggregate.SyncCommitteeBits.BitAt(1))
}

func TestStoreCopy(t *testing.T) {
	store := &LightClientStore{FinalizedHeader: BeaconBlockHeader{Slot: 1}}
	assert.False(t, store.IsNextSyncCommitteeKnown())
	cp := store.Copy()
	cp.FinalizedHeader.Slot = 2
	cp.NextSyncCommittee = testCommittee(1, 1)
	assert.Equal(t, 1, int(store.FinalizedHeader.Slot))
	assert.False(t, store.IsNextSyncCommitteeKnown())
	assert.True(t, cp.IsNextSyncCommitteeKnown())
}

func TestHeaderSSZ(t *testing.T) {
	header := &BeaconBlockHeader{
		Slot:          1 << 40,
		ProposerIndex: 12,
		ParentRoot:    common.Hash{1},
		StateRoot:     common.Hash{2},
		BodyRoot:      common.Hash{3},
	}
	enc, err := header.MarshalSSZ()
	require.NoError(t, err)
	require.Len(t, enc, header.SizeSSZ())
	assert.Equal(t, byte(12), enc[8])

	var decoded BeaconBlockHeader
	require.NoError(t, decoded.UnmarshalSSZ(enc))
	assert.Equal(t, *header, decoded)
	assert.Error(t, decoded.UnmarshalSSZ(enc[:100]))
}
