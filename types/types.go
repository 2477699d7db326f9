// Package types defines the light client containers and the store.
package types

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type BLSPubkey [config.BLS_PUBKEY_LENGTH]byte

func (p BLSPubkey) String() string { return hexutil.Encode(p[:]) }

type BLSSignature [config.BLS_SIGNATURE_LENGTH]byte

func (s BLSSignature) String() string { return hexutil.Encode(s[:]) }

type Domain [32]byte
