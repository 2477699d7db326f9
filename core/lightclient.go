// Package core implements the Altair light client sync protocol: bootstrap,
// update validation, store mutation and update ranking.
package core

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "core")

// LightClient runs the light client state transition for a single chain
// configuration. It holds no store; every operation takes the store it works
// on and the caller serializes access to it.
type LightClient struct {
	cfg      *config.Config
	verifier Verifier
}

// New creates a light client for the given chain configuration.
func New(cfg *config.Config, verifier Verifier) *LightClient {
	return &LightClient{cfg: cfg, verifier: verifier}
}

// Config returns the chain configuration.
func (lc *LightClient) Config() *config.Config {
	return lc.cfg
}

// SafetyThreshold implements get_safety_threshold.
func (lc *LightClient) SafetyThreshold(store *types.LightClientStore) uint64 {
	max := store.PreviousMaxActiveParticipants
	if store.CurrentMaxActiveParticipants > max {
		max = store.CurrentMaxActiveParticipants
	}
	return max / 2
}

func (lc *LightClient) hasSupermajority(participants uint64) bool {
	return participants*3 >= lc.cfg.SyncCommitteeSize*2
}
