// Package syncer drives a light client store from a beacon node: it
// bootstraps from a trusted block root, catches up period by period and then
// follows the chain slot by slot.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/MariusVanDerWijden/altair-lc/api"
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/core"
	"github.com/MariusVanDerWijden/altair-lc/db/kv"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	eth2types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "syncer")

// CheckpointDB persists the finalized header to restart from.
type CheckpointDB interface {
	SaveFinalizedCheckpoint(ctx context.Context, checkpoint *kv.Checkpoint) error
	FinalizedCheckpoint(ctx context.Context) (*kv.Checkpoint, error)
}

// Config for the sync service.
type Config struct {
	ChainConfig *config.Config
	Client      api.Client
	Verifier    core.Verifier
	// DB is optional. Without it every start needs a checkpoint root.
	DB CheckpointDB
	// CheckpointRoot is the trusted block root to bootstrap from. When empty
	// the stored checkpoint is used, and as a last resort the finalized
	// checkpoint reported by the beacon node.
	CheckpointRoot common.Hash
}

// Service owns a light client store and keeps it in sync.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config
	lc     *core.LightClient

	clock                 *Clock
	genesisValidatorsRoot common.Hash

	lock          sync.RWMutex
	store         *types.LightClientStore
	savedFinality eth2types.Slot
	failStatus    error

	// Next slot to pass to ProcessSlot, owned by the sync loop.
	nextSlot eth2types.Slot

	timeNow func() time.Time
	done    chan struct{}
}

// NewService creates the sync service. Nothing is fetched until Start.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg.ChainConfig == nil || cfg.Client == nil || cfg.Verifier == nil {
		return nil, errors.New("chain config, client and verifier are required")
	}
	if err := cfg.ChainConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid chain config")
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		lc:      core.New(cfg.ChainConfig, cfg.Verifier),
		timeNow: time.Now,
	}, nil
}

// Start bootstraps the store, catches up to the current period and then
// follows the chain in the background. Bootstrap failures are returned.
func (s *Service) Start() error {
	s.done = make(chan struct{})
	if err := s.initialize(s.ctx); err != nil {
		close(s.done)
		return err
	}
	if err := s.syncPeriods(s.ctx); err != nil {
		log.WithError(err).Error("Could not sync to current period")
	}
	go s.run()
	return nil
}

// Stop the sync service and wait for the loop to exit.
func (s *Service) Stop() error {
	s.cancel()
	if s.done != nil {
		<-s.done
	}
	return nil
}

// Status reports the last failure of the sync loop.
func (s *Service) Status() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.failStatus
}

// Store returns a copy of the light client store, nil before Start.
func (s *Service) Store() *types.LightClientStore {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.store == nil {
		return nil
	}
	return s.store.Copy()
}

// FinalizedHeader returns the finalized header.
func (s *Service) FinalizedHeader() types.BeaconBlockHeader {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.store == nil {
		return types.BeaconBlockHeader{}
	}
	return s.store.FinalizedHeader
}

// OptimisticHeader returns the optimistic header.
func (s *Service) OptimisticHeader() types.BeaconBlockHeader {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.store == nil {
		return types.BeaconBlockHeader{}
	}
	return s.store.OptimisticHeader
}

// initialize discovers the chain and bootstraps the store.
func (s *Service) initialize(ctx context.Context) error {
	genesis, err := s.cfg.Client.Genesis(ctx)
	if err != nil {
		return errors.Wrap(err, "could not fetch genesis")
	}
	configured := common.Hash(s.cfg.ChainConfig.GenesisValidatorsRoot)
	if configured != (common.Hash{}) && configured != genesis.GenesisValidatorsRoot {
		return errors.Errorf("beacon node is on chain %#x, expected %#x", genesis.GenesisValidatorsRoot, configured)
	}
	s.genesisValidatorsRoot = genesis.GenesisValidatorsRoot
	s.clock = NewClock(genesis.GenesisTime, s.cfg.ChainConfig)
	s.clock.now = s.timeNow

	root, err := s.checkpointRoot(ctx)
	if err != nil {
		return err
	}
	bootstrap, err := s.cfg.Client.Bootstrap(ctx, root)
	if err != nil {
		return errors.Wrapf(err, "could not fetch bootstrap for %#x", root)
	}
	store, err := s.lc.InitializeStore(root, bootstrap)
	if err != nil {
		return errors.Wrap(err, "could not initialize light client store")
	}
	s.lock.Lock()
	s.store = store
	s.savedFinality = store.FinalizedHeader.Slot
	s.nextSlot = s.clock.CurrentSlot()
	reportStore(s.cfg.ChainConfig, store)
	s.lock.Unlock()

	log.WithFields(logrus.Fields{
		"root":   root,
		"slot":   store.FinalizedHeader.Slot,
		"period": s.cfg.ChainConfig.SyncPeriodAtSlot(store.FinalizedHeader.Slot),
	}).Info("Bootstrapped light client")
	return nil
}

// checkpointRoot picks the block root to trust.
func (s *Service) checkpointRoot(ctx context.Context) (common.Hash, error) {
	if s.cfg.CheckpointRoot != (common.Hash{}) {
		return s.cfg.CheckpointRoot, nil
	}
	if s.cfg.DB != nil {
		checkpoint, err := s.cfg.DB.FinalizedCheckpoint(ctx)
		if err != nil {
			return common.Hash{}, errors.Wrap(err, "could not read stored checkpoint")
		}
		switch {
		case checkpoint == nil:
		case checkpoint.GenesisValidatorsRoot != s.genesisValidatorsRoot:
			log.WithField("genesisValidatorsRoot", checkpoint.GenesisValidatorsRoot).Warn("Ignoring stored checkpoint of another chain")
		default:
			log.WithField("slot", checkpoint.Header.Slot).Info("Resuming from stored checkpoint")
			return checkpoint.BlockRoot, nil
		}
	}
	root, err := s.cfg.Client.FinalizedCheckpointRoot(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "no checkpoint root configured and could not fetch one")
	}
	log.WithField("root", root).Warn("No trusted checkpoint configured, trusting the finalized checkpoint of the beacon node")
	return root, nil
}

func (s *Service) run() {
	defer close(s.done)
	for {
		timer := time.NewTimer(s.clock.UntilNextSlot())
		select {
		case <-s.ctx.Done():
			timer.Stop()
			log.Debug("Context closed, exiting sync loop")
			return
		case <-timer.C:
		}
		err := s.onSlot(s.ctx, s.clock.CurrentSlot())
		s.lock.Lock()
		s.failStatus = err
		s.lock.Unlock()
		if err != nil && s.ctx.Err() == nil {
			log.WithError(err).Error("Could not follow chain")
		}
	}
}
