package core

import (
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prysmaticlabs/prysm/shared/bls"
)

// Verifier checks BLS fast aggregate signatures.
type Verifier interface {
	VerifyAggregate(pubkeys []types.BLSPubkey, message common.Hash, signature types.BLSSignature) bool
}

// pubkeyCacheSize holds two mainnet committees.
const pubkeyCacheSize = 1024

// BLSVerifier verifies aggregates with the prysm BLS backend. Decompressed
// public keys are cached since the same committee signs for a whole period.
type BLSVerifier struct {
	pubkeys *lru.Cache
}

// NewBLSVerifier creates a verifier with an empty key cache.
func NewBLSVerifier() *BLSVerifier {
	cache, err := lru.New(pubkeyCacheSize)
	if err != nil {
		panic(err) // only fails for non-positive sizes
	}
	return &BLSVerifier{pubkeys: cache}
}

func (v *BLSVerifier) publicKey(pubkey types.BLSPubkey) (bls.PublicKey, error) {
	if key, ok := v.pubkeys.Get(pubkey); ok {
		return key.(bls.PublicKey), nil
	}
	key, err := bls.PublicKeyFromBytes(pubkey[:])
	if err != nil {
		return nil, err
	}
	v.pubkeys.Add(pubkey, key)
	return key, nil
}

// VerifyAggregate implements FastAggregateVerify. Malformed keys or
// signatures and empty key sets never verify.
func (v *BLSVerifier) VerifyAggregate(pubkeys []types.BLSPubkey, message common.Hash, signature types.BLSSignature) bool {
	if len(pubkeys) == 0 {
		return false
	}
	sig, err := bls.SignatureFromBytes(signature[:])
	if err != nil {
		log.WithError(err).Debug("Could not decode sync committee signature")
		return false
	}
	keys := make([]bls.PublicKey, 0, len(pubkeys))
	for _, pubkey := range pubkeys {
		key, err := v.publicKey(pubkey)
		if err != nil {
			log.WithError(err).WithField("pubkey", pubkey).Debug("Could not decode sync committee member")
			return false
		}
		keys = append(keys, key)
	}
	return sig.FastAggregateVerify(keys, message)
}
