package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MariusVanDerWijden/altair-lc/api"
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/core"
	"github.com/MariusVanDerWijden/altair-lc/db/kv"
	"github.com/MariusVanDerWijden/altair-lc/internal/testutil"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	eth2types "github.com/prysmaticlabs/eth2-types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesisTime = 1000

type fakeClient struct {
	mu sync.Mutex

	genesis       api.Genesis
	finalizedRoot common.Hash
	bootstrap     *types.LightClientBootstrap
	updates       map[uint64][]*types.LightClientUpdate
	finality      *types.LightClientFinalityUpdate
	optimistic    *types.LightClientOptimisticUpdate
	optimisticErr error

	bootstrapRoots  []common.Hash
	updateRequests  [][2]uint64
	finalityCalls   int
	optimisticCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		genesis: api.Genesis{
			GenesisTime:           genesisTime,
			GenesisValidatorsRoot: testutil.GenesisValidatorsRoot,
		},
		updates: make(map[uint64][]*types.LightClientUpdate),
	}
}

func (c *fakeClient) Genesis(context.Context) (*api.Genesis, error) {
	genesis := c.genesis
	return &genesis, nil
}

func (c *fakeClient) FinalizedCheckpointRoot(context.Context) (common.Hash, error) {
	if c.finalizedRoot == (common.Hash{}) {
		return common.Hash{}, api.ErrNotFound
	}
	return c.finalizedRoot, nil
}

func (c *fakeClient) Bootstrap(_ context.Context, root common.Hash) (*types.LightClientBootstrap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bootstrapRoots = append(c.bootstrapRoots, root)
	if c.bootstrap == nil {
		return nil, api.ErrNotFound
	}
	return c.bootstrap, nil
}

func (c *fakeClient) Updates(_ context.Context, startPeriod, count uint64) ([]*types.LightClientUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateRequests = append(c.updateRequests, [2]uint64{startPeriod, count})
	updates, ok := c.updates[startPeriod]
	if !ok {
		return nil, api.ErrNotFound
	}
	return updates, nil
}

func (c *fakeClient) FinalityUpdate(context.Context) (*types.LightClientFinalityUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalityCalls++
	if c.finality == nil {
		return nil, api.ErrNotFound
	}
	return c.finality, nil
}

func (c *fakeClient) OptimisticUpdate(context.Context) (*types.LightClientOptimisticUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.optimisticCalls++
	if c.optimisticErr != nil {
		return nil, c.optimisticErr
	}
	if c.optimistic == nil {
		return nil, api.ErrNotFound
	}
	return c.optimistic, nil
}

type fakeTime struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// setSlot moves the time one second into slot.
func (f *fakeTime) setSlot(slot eth2types.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = time.Unix(genesisTime+int64(slot)*6+1, 0)
}

// chain is a synthetic chain with a fake committee per period.
type chain struct {
	cfg       *config.Config
	current   *types.SyncCommittee
	next      *types.SyncCommittee
	bootstrap *types.LightClientBootstrap
	root      common.Hash
}

func newChain(t *testing.T) *chain {
	cfg := testutil.Config()
	c := &chain{
		cfg:     cfg,
		current: testutil.FakeCommittee(cfg.SyncCommitteeSize, 1),
		next:    testutil.FakeCommittee(cfg.SyncCommitteeSize, 2),
	}
	c.bootstrap, c.root = testutil.Bootstrap(t, 0, c.current, c.next)
	return c
}

// committeeUpdate finalizes slot 3 and proves the next sync committee.
func (c *chain) committeeUpdate(t *testing.T) *types.LightClientUpdate {
	finalized := testutil.Header(3, common.Hash{0x03})
	update := testutil.Update(t, testutil.UpdateParams{
		AttestedSlot:         5,
		SignatureSlot:        6,
		Finalized:            &finalized,
		NextSyncCommittee:    c.next,
		CurrentSyncCommittee: c.current,
	})
	update.SyncAggregate.SyncCommitteeBits = testutil.Bits(4, 4)
	return update
}

func newTestService(t *testing.T, c *chain, client api.Client, db CheckpointDB, root common.Hash) (*Service, *fakeTime) {
	clock := &fakeTime{}
	clock.setSlot(6)
	s, err := NewService(context.Background(), &Config{
		ChainConfig:    c.cfg,
		Client:         client,
		Verifier:       &testutil.Verifier{Valid: true},
		DB:             db,
		CheckpointRoot: root,
	})
	require.NoError(t, err)
	s.timeNow = clock.Now
	t.Cleanup(func() { require.NoError(t, s.Stop()) })
	return s, clock
}

func setupDB(t *testing.T) *kv.Store {
	db, err := kv.NewKVStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := NewService(context.Background(), &Config{ChainConfig: testutil.Config()})
	require.Error(t, err)

	cfg := testutil.Config()
	cfg.SlotsPerEpoch = 0
	_, err = NewService(context.Background(), &Config{
		ChainConfig: cfg,
		Client:      newFakeClient(),
		Verifier:    &testutil.Verifier{},
	})
	require.Error(t, err)
}

func TestService_Start(t *testing.T) {
	c := newChain(t)
	client := newFakeClient()
	client.bootstrap = c.bootstrap
	client.updates[0] = []*types.LightClientUpdate{c.committeeUpdate(t)}
	db := setupDB(t)
	s, _ := newTestService(t, c, client, db, c.root)

	require.NoError(t, s.Start())
	assert.NoError(t, s.Status())
	assert.Equal(t, []common.Hash{c.root}, client.bootstrapRoots)
	assert.Equal(t, [][2]uint64{{0, 1}}, client.updateRequests)

	store := s.Store()
	require.NotNil(t, store)
	assert.Equal(t, eth2types.Slot(3), s.FinalizedHeader().Slot)
	assert.Equal(t, eth2types.Slot(5), s.OptimisticHeader().Slot)
	assert.True(t, c.next.Equal(store.NextSyncCommittee))

	checkpoint, err := db.FinalizedCheckpoint(context.Background())
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	finalized := s.FinalizedHeader()
	assert.Equal(t, testutil.BlockRoot(t, &finalized), checkpoint.BlockRoot)
	assert.Equal(t, testutil.GenesisValidatorsRoot, checkpoint.GenesisValidatorsRoot)
	assert.Equal(t, eth2types.Slot(3), checkpoint.Header.Slot)
	assert.Equal(t, float64(3), promtestutil.ToFloat64(finalizedSlotGauge))
}

func TestService_StartErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *chain, client *fakeClient) common.Hash
		wantErr error
	}{
		{
			name: "trust anchor mismatch",
			modify: func(c *chain, client *fakeClient) common.Hash {
				client.bootstrap = c.bootstrap
				return common.Hash{0x01}
			},
			wantErr: core.ErrTrustAnchorMismatch,
		},
		{
			name: "bootstrap unavailable",
			modify: func(c *chain, _ *fakeClient) common.Hash {
				return c.root
			},
			wantErr: api.ErrNotFound,
		},
		{
			name: "no checkpoint root",
			modify: func(c *chain, client *fakeClient) common.Hash {
				client.bootstrap = c.bootstrap
				return common.Hash{}
			},
			wantErr: api.ErrNotFound,
		},
		{
			name: "other chain",
			modify: func(c *chain, client *fakeClient) common.Hash {
				client.bootstrap = c.bootstrap
				client.genesis.GenesisValidatorsRoot = common.Hash{0xaa}
				return c.root
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChain(t)
			client := newFakeClient()
			root := tt.modify(c, client)
			s, _ := newTestService(t, c, client, nil, root)

			err := s.Start()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), err)
			}
			assert.Nil(t, s.Store())
		})
	}
}

func TestService_CheckpointSource(t *testing.T) {
	tests := []struct {
		name       string
		storedGVR  *common.Hash
		nodeRoot   bool
		configured bool
	}{
		{name: "configured", configured: true},
		{name: "stored checkpoint", storedGVR: &testutil.GenesisValidatorsRoot},
		{name: "stored checkpoint of other chain", storedGVR: &common.Hash{0x01}, nodeRoot: true},
		{name: "beacon node", nodeRoot: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChain(t)
			client := newFakeClient()
			client.bootstrap = c.bootstrap
			if tt.nodeRoot {
				client.finalizedRoot = c.root
			}
			db := setupDB(t)
			if tt.storedGVR != nil {
				require.NoError(t, db.SaveFinalizedCheckpoint(context.Background(), &kv.Checkpoint{
					GenesisValidatorsRoot: *tt.storedGVR,
					BlockRoot:             c.root,
					Header:                c.bootstrap.Header,
				}))
			}
			var root common.Hash
			if tt.configured {
				root = c.root
			}
			s, _ := newTestService(t, c, client, db, root)

			require.NoError(t, s.Start())
			assert.Equal(t, []common.Hash{c.root}, client.bootstrapRoots)
			assert.Equal(t, c.bootstrap.Header, s.FinalizedHeader())
		})
	}
}

func TestService_OnSlot(t *testing.T) {
	c := newChain(t)
	client := newFakeClient()
	client.bootstrap = c.bootstrap
	client.updates[0] = []*types.LightClientUpdate{c.committeeUpdate(t)}
	db := setupDB(t)
	s, clock := newTestService(t, c, client, db, c.root)
	ctx := context.Background()
	require.NoError(t, s.initialize(ctx))
	require.NoError(t, s.syncPeriods(ctx))

	finalized := testutil.Header(6, common.Hash{0x06})
	finality := testutil.Update(t, testutil.UpdateParams{AttestedSlot: 7, SignatureSlot: 8, Finalized: &finalized})
	finality.SyncAggregate.SyncCommitteeBits = testutil.Bits(4, 4)
	client.finality = &types.LightClientFinalityUpdate{
		AttestedHeader:  finality.AttestedHeader,
		FinalizedHeader: finality.FinalizedHeader,
		FinalityBranch:  finality.FinalityBranch,
		SyncAggregate:   finality.SyncAggregate,
		SignatureSlot:   finality.SignatureSlot,
	}
	accepted := promtestutil.ToFloat64(updatesProcessed.WithLabelValues(resultAccepted))

	clock.setSlot(8)
	require.NoError(t, s.onSlot(ctx, 8))
	assert.Equal(t, 1, client.finalityCalls)
	assert.Equal(t, 1, client.optimisticCalls)
	assert.Equal(t, eth2types.Slot(6), s.FinalizedHeader().Slot)
	assert.Equal(t, eth2types.Slot(7), s.OptimisticHeader().Slot)
	assert.Equal(t, accepted+1, promtestutil.ToFloat64(updatesProcessed.WithLabelValues(resultAccepted)))
	assert.Equal(t, float64(6), promtestutil.ToFloat64(finalizedSlotGauge))
	assert.Equal(t, float64(7), promtestutil.ToFloat64(optimisticSlotGauge))

	checkpoint, err := db.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, eth2types.Slot(6), checkpoint.Header.Slot)

	// Finality is only polled at epoch boundaries.
	optimistic := testutil.Update(t, testutil.UpdateParams{AttestedSlot: 8, SignatureSlot: 9})
	optimistic.SyncAggregate.SyncCommitteeBits = testutil.Bits(3, 4)
	client.optimistic = &types.LightClientOptimisticUpdate{
		AttestedHeader: optimistic.AttestedHeader,
		SyncAggregate:  optimistic.SyncAggregate,
		SignatureSlot:  optimistic.SignatureSlot,
	}
	clock.setSlot(9)
	require.NoError(t, s.onSlot(ctx, 9))
	assert.Equal(t, 1, client.finalityCalls)
	assert.Equal(t, 2, client.optimisticCalls)
	assert.Equal(t, eth2types.Slot(6), s.FinalizedHeader().Slot)
	assert.Equal(t, eth2types.Slot(8), s.OptimisticHeader().Slot)
	assert.Equal(t, float64(8), promtestutil.ToFloat64(optimisticSlotGauge))

	// A stale finality update at the next epoch is ignored.
	ignored := promtestutil.ToFloat64(updatesProcessed.WithLabelValues(resultIgnored))
	staleFinalized := testutil.Header(3, common.Hash{0x03})
	stale := testutil.Update(t, testutil.UpdateParams{AttestedSlot: 6, SignatureSlot: 7, Finalized: &staleFinalized})
	stale.SyncAggregate.SyncCommitteeBits = testutil.Bits(4, 4)
	client.finality = &types.LightClientFinalityUpdate{
		AttestedHeader:  stale.AttestedHeader,
		FinalizedHeader: stale.FinalizedHeader,
		FinalityBranch:  stale.FinalityBranch,
		SyncAggregate:   stale.SyncAggregate,
		SignatureSlot:   stale.SignatureSlot,
	}
	client.optimistic = nil
	delete(client.updates, 0)
	clock.setSlot(16)
	require.NoError(t, s.onSlot(ctx, 16))
	assert.Equal(t, 2, client.finalityCalls)
	assert.Equal(t, ignored+1, promtestutil.ToFloat64(updatesProcessed.WithLabelValues(resultIgnored)))
	assert.Equal(t, eth2types.Slot(6), s.FinalizedHeader().Slot)
	assert.Equal(t, [2]uint64{0, 2}, client.updateRequests[len(client.updateRequests)-1])
}

func TestService_OnSlotCatchesUpSkippedSlots(t *testing.T) {
	c := newChain(t)
	client := newFakeClient()
	client.bootstrap = c.bootstrap
	s, clock := newTestService(t, c, client, nil, c.root)
	ctx := context.Background()
	require.NoError(t, s.initialize(ctx))
	s.store.CurrentMaxActiveParticipants = 4

	clock.setSlot(15)
	require.NoError(t, s.onSlot(ctx, 15))
	assert.Equal(t, uint64(4), s.Store().CurrentMaxActiveParticipants)

	// Slot 16 rotates the participation counters even though the loop only
	// woke up at slot 17.
	clock.setSlot(17)
	require.NoError(t, s.onSlot(ctx, 17))
	store := s.Store()
	assert.Equal(t, uint64(4), store.PreviousMaxActiveParticipants)
	assert.Equal(t, uint64(0), store.CurrentMaxActiveParticipants)
	assert.Equal(t, 2, client.finalityCalls, "the epoch starts at slots 8 and 16 poll finality")
}

func TestService_CommitteeUpdatesOncePerEpoch(t *testing.T) {
	c := newChain(t)
	client := newFakeClient()
	client.bootstrap = c.bootstrap
	s, clock := newTestService(t, c, client, nil, c.root)
	ctx := context.Background()
	require.NoError(t, s.initialize(ctx))
	require.NoError(t, s.syncPeriods(ctx))
	require.Len(t, client.updateRequests, 1)

	for slot := eth2types.Slot(7); slot < 16; slot++ {
		clock.setSlot(slot)
		require.NoError(t, s.onSlot(ctx, slot))
	}
	// Only the epoch start at slot 8 asks again for the unknown committee.
	assert.Equal(t, [][2]uint64{{0, 1}, {0, 1}}, client.updateRequests)

	// Crossing into the next period widens the request.
	clock.setSlot(17)
	require.NoError(t, s.onSlot(ctx, 17))
	assert.Equal(t, [2]uint64{0, 2}, client.updateRequests[len(client.updateRequests)-1])
}

func TestService_OnSlotFetchError(t *testing.T) {
	c := newChain(t)
	client := newFakeClient()
	client.bootstrap = c.bootstrap
	s, _ := newTestService(t, c, client, nil, c.root)
	ctx := context.Background()
	require.NoError(t, s.initialize(ctx))

	client.optimisticErr = errors.New("connection refused")
	err := s.onSlot(ctx, 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not fetch optimistic update")
	assert.Equal(t, eth2types.Slot(0), s.FinalizedHeader().Slot)
}

func TestProcessResult(t *testing.T) {
	assert.Equal(t, resultAccepted, processResult(nil))
	assert.Equal(t, resultIgnored, processResult(errors.Wrap(core.ErrIrrelevantUpdate, "old")))
	assert.Equal(t, resultRejected, processResult(core.ErrSignatureVerificationFailure))
}
