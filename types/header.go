package types

import (
	"github.com/ethereum/go-ethereum/common"
	ssz "github.com/ferranbt/fastssz"
	eth2types "github.com/prysmaticlabs/eth2-types"
)

// BeaconBlockHeader commits to a block and the post-state it produced.
type BeaconBlockHeader struct {
	Slot          eth2types.Slot
	ProposerIndex eth2types.ValidatorIndex
	ParentRoot    common.Hash
	StateRoot     common.Hash
	BodyRoot      common.Hash
}

// IsZero reports whether h is the all-zero header.
func (h *BeaconBlockHeader) IsZero() bool {
	return *h == BeaconBlockHeader{}
}

// HashTreeRoot returns the block root.
func (h *BeaconBlockHeader) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(h)
}

func (h *BeaconBlockHeader) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutUint64(uint64(h.Slot))
	hh.PutUint64(uint64(h.ProposerIndex))
	hh.PutBytes(h.ParentRoot[:])
	hh.PutBytes(h.StateRoot[:])
	hh.PutBytes(h.BodyRoot[:])
	hh.Merkleize(indx)
	return nil
}

// beaconBlockHeaderSize is the SSZ size of a header.
const beaconBlockHeaderSize = 112

// SizeSSZ returns the SSZ encoded size of the header.
func (h *BeaconBlockHeader) SizeSSZ() int {
	return beaconBlockHeaderSize
}

// MarshalSSZ SSZ encodes the header.
func (h *BeaconBlockHeader) MarshalSSZ() ([]byte, error) {
	return h.MarshalSSZTo(make([]byte, 0, beaconBlockHeaderSize))
}

// MarshalSSZTo appends the SSZ encoding of the header to dst.
func (h *BeaconBlockHeader) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, uint64(h.Slot))
	dst = ssz.MarshalUint64(dst, uint64(h.ProposerIndex))
	dst = append(dst, h.ParentRoot[:]...)
	dst = append(dst, h.StateRoot[:]...)
	dst = append(dst, h.BodyRoot[:]...)
	return dst, nil
}

// UnmarshalSSZ decodes an SSZ encoded header.
func (h *BeaconBlockHeader) UnmarshalSSZ(buf []byte) error {
	if len(buf) != beaconBlockHeaderSize {
		return ssz.ErrSize
	}
	h.Slot = eth2types.Slot(ssz.UnmarshallUint64(buf[0:8]))
	h.ProposerIndex = eth2types.ValidatorIndex(ssz.UnmarshallUint64(buf[8:16]))
	copy(h.ParentRoot[:], buf[16:48])
	copy(h.StateRoot[:], buf[48:80])
	copy(h.BodyRoot[:], buf[80:112])
	return nil
}
