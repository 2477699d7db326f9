package config

import (
	types "github.com/prysmaticlabs/eth2-types"
)

// Fork is one entry of the fork schedule.
type Fork struct {
	Name    string
	Epoch   types.Epoch
	Version Version
}

// ForkSchedule lists the scheduled forks in activation order.
func (c *Config) ForkSchedule() []Fork {
	return []Fork{
		{Name: "phase0", Epoch: GENESIS_EPOCH, Version: c.GenesisForkVersion},
		{Name: "altair", Epoch: c.AltairForkEpoch, Version: c.AltairForkVersion},
		{Name: "bellatrix", Epoch: c.BellatrixForkEpoch, Version: c.BellatrixForkVersion},
		{Name: "capella", Epoch: c.CapellaForkEpoch, Version: c.CapellaForkVersion},
		{Name: "deneb", Epoch: c.DenebForkEpoch, Version: c.DenebForkVersion},
	}
}

// ForkVersion implements compute_fork_version: the version of the latest fork
// active at epoch.
func (c *Config) ForkVersion(epoch types.Epoch) Version {
	version := c.GenesisForkVersion
	for _, fork := range c.ForkSchedule() {
		if epoch >= fork.Epoch {
			version = fork.Version
		}
	}
	return version
}
