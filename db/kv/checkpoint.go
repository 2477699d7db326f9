package kv

import (
	"context"

	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Checkpoint is a finalized header the light client may restart from.
type Checkpoint struct {
	GenesisValidatorsRoot common.Hash
	BlockRoot             common.Hash
	Header                types.BeaconBlockHeader
}

func (c *Checkpoint) marshal() ([]byte, error) {
	enc := make([]byte, 0, 2*common.HashLength+c.Header.SizeSSZ())
	enc = append(enc, c.GenesisValidatorsRoot[:]...)
	enc = append(enc, c.BlockRoot[:]...)
	return c.Header.MarshalSSZTo(enc)
}

func (c *Checkpoint) unmarshal(enc []byte) error {
	if len(enc) < 2*common.HashLength {
		return errors.Errorf("checkpoint too short: %d bytes", len(enc))
	}
	copy(c.GenesisValidatorsRoot[:], enc[:common.HashLength])
	copy(c.BlockRoot[:], enc[common.HashLength:2*common.HashLength])
	return c.Header.UnmarshalSSZ(enc[2*common.HashLength:])
}

// SaveFinalizedCheckpoint overwrites the stored finalized checkpoint.
func (s *Store) SaveFinalizedCheckpoint(ctx context.Context, checkpoint *Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc, err := checkpoint.marshal()
	if err != nil {
		return errors.Wrap(err, "could not encode checkpoint")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(checkpointBucket).Put(finalizedCheckpointKey, enc); err != nil {
			return errors.Wrap(err, "could not save checkpoint")
		}
		return nil
	})
}

// FinalizedCheckpoint returns the stored finalized checkpoint or nil if none
// was saved yet.
func (s *Store) FinalizedCheckpoint(ctx context.Context) (*Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var checkpoint *Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(checkpointBucket).Get(finalizedCheckpointKey)
		if enc == nil {
			return nil
		}
		checkpoint = &Checkpoint{}
		return checkpoint.unmarshal(enc)
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not read checkpoint")
	}
	return checkpoint, nil
}
