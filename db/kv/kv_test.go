package kv

import (
	"context"
	"testing"

	"github.com/MariusVanDerWijden/altair-lc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func setupDB(t testing.TB) *Store {
	db, err := NewKVStore(t.TempDir())
	require.NoError(t, err, "Failed to instantiate DB")
	t.Cleanup(func() {
		require.NoError(t, db.Close(), "Failed to close database")
	})
	return db
}

func TestStore_FinalizedCheckpoint(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	checkpoint, err := db.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, checkpoint)

	header := testutil.Header(4097, [32]byte{0x11})
	want := &Checkpoint{
		GenesisValidatorsRoot: testutil.GenesisValidatorsRoot,
		BlockRoot:             testutil.BlockRoot(t, &header),
		Header:                header,
	}
	require.NoError(t, db.SaveFinalizedCheckpoint(ctx, want))
	checkpoint, err = db.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, checkpoint)

	newer := *want
	newer.Header.Slot = 5000
	require.NoError(t, db.SaveFinalizedCheckpoint(ctx, &newer))
	checkpoint, err = db.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, &newer, checkpoint)
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := NewKVStore(dir)
	require.NoError(t, err)
	want := &Checkpoint{BlockRoot: [32]byte{1}, Header: testutil.Header(3, [32]byte{2})}
	require.NoError(t, db.SaveFinalizedCheckpoint(ctx, want))
	require.NoError(t, db.Close())

	db, err = NewKVStore(dir)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	checkpoint, err := db.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, checkpoint)
	assert.Equal(t, dir+"/"+databaseFileName, db.DatabasePath())
}

func TestStore_CorruptCheckpoint(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(checkpointBucket).Put(finalizedCheckpointKey, []byte{1, 2, 3})
	}))
	_, err := db.FinalizedCheckpoint(context.Background())
	assert.Error(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	db := setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, db.SaveFinalizedCheckpoint(ctx, &Checkpoint{}))
	_, err := db.FinalizedCheckpoint(ctx)
	assert.Error(t, err)
}

func TestNewKVStore_ReleasesLockOnBucketFailure(t *testing.T) {
	dir := t.TempDir()
	_, err := openKVStore(dir, []byte{})
	require.Error(t, err)

	db, err := NewKVStore(dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
