// Package config holds the chain parameters the light client depends on.
package config

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
)

// Version is a 4 byte fork version.
type Version [4]byte

// UnmarshalYAML accepts both quoted and bare 0x prefixed hex values.
func (v *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return errors.Wrapf(err, "invalid version %q", s)
	}
	if len(b) != len(v) {
		return errors.Errorf("invalid version length %d: %q", len(b), s)
	}
	copy(v[:], b)
	return nil
}

// DomainType is a 4 byte signature domain prefix.
type DomainType = Version

// Root is a 32 byte value read from a hex string.
type Root common.Hash

// UnmarshalYAML decodes a 0x prefixed 32 byte hex string.
func (r *Root) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return errors.Wrapf(err, "invalid root %q", s)
	}
	if len(b) != common.HashLength {
		return errors.Errorf("invalid root length %d: %q", len(b), s)
	}
	copy(r[:], b)
	return nil
}

// Config is the set of preset and network parameters consumed by the light client.
type Config struct {
	ConfigName string `yaml:"CONFIG_NAME"`

	SlotsPerEpoch                uint64 `yaml:"SLOTS_PER_EPOCH"`
	EpochsPerSyncCommitteePeriod uint64 `yaml:"EPOCHS_PER_SYNC_COMMITTEE_PERIOD"`
	SyncCommitteeSize            uint64 `yaml:"SYNC_COMMITTEE_SIZE"`
	MinSyncCommitteeParticipants uint64 `yaml:"MIN_SYNC_COMMITTEE_PARTICIPANTS"`
	// UpdateTimeout is expressed in slots.
	UpdateTimeout  uint64 `yaml:"UPDATE_TIMEOUT"`
	SecondsPerSlot uint64 `yaml:"SECONDS_PER_SLOT"`

	GenesisForkVersion   Version     `yaml:"GENESIS_FORK_VERSION"`
	AltairForkVersion    Version     `yaml:"ALTAIR_FORK_VERSION"`
	AltairForkEpoch      types.Epoch `yaml:"ALTAIR_FORK_EPOCH"`
	BellatrixForkVersion Version     `yaml:"BELLATRIX_FORK_VERSION"`
	BellatrixForkEpoch   types.Epoch `yaml:"BELLATRIX_FORK_EPOCH"`
	CapellaForkVersion   Version     `yaml:"CAPELLA_FORK_VERSION"`
	CapellaForkEpoch     types.Epoch `yaml:"CAPELLA_FORK_EPOCH"`
	DenebForkVersion     Version     `yaml:"DENEB_FORK_VERSION"`
	DenebForkEpoch       types.Epoch `yaml:"DENEB_FORK_EPOCH"`

	DomainSyncCommittee DomainType `yaml:"DOMAIN_SYNC_COMMITTEE"`

	MinGenesisTime        uint64 `yaml:"MIN_GENESIS_TIME"`
	GenesisDelay          uint64 `yaml:"GENESIS_DELAY"`
	GenesisValidatorsRoot Root   `yaml:"GENESIS_VALIDATORS_ROOT"`
}

// FarFutureEpoch marks forks that are not scheduled.
const FarFutureEpoch = types.Epoch(1<<64 - 1)

// MainnetConfig returns the mainnet parameters.
func MainnetConfig() *Config {
	return &Config{
		ConfigName:                   "mainnet",
		SlotsPerEpoch:                32,
		EpochsPerSyncCommitteePeriod: 256,
		SyncCommitteeSize:            512,
		MinSyncCommitteeParticipants: 1,
		UpdateTimeout:                32 * 256,
		SecondsPerSlot:               12,
		GenesisForkVersion:           Version{0x00, 0x00, 0x00, 0x00},
		AltairForkVersion:            Version{0x01, 0x00, 0x00, 0x00},
		AltairForkEpoch:              74240,
		BellatrixForkVersion:         Version{0x02, 0x00, 0x00, 0x00},
		BellatrixForkEpoch:           144896,
		CapellaForkVersion:           Version{0x03, 0x00, 0x00, 0x00},
		CapellaForkEpoch:             194048,
		DenebForkVersion:             Version{0x04, 0x00, 0x00, 0x00},
		DenebForkEpoch:               269568,
		DomainSyncCommittee:          DomainType{0x07, 0x00, 0x00, 0x00},
		MinGenesisTime:               1606824000,
		GenesisDelay:                 604800,
		GenesisValidatorsRoot:        Root(common.HexToHash("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95")),
	}
}

// MinimalConfig returns the minimal preset used by consensus test vectors.
func MinimalConfig() *Config {
	cfg := MainnetConfig()
	cfg.ConfigName = "minimal"
	cfg.SlotsPerEpoch = 8
	cfg.EpochsPerSyncCommitteePeriod = 8
	cfg.SyncCommitteeSize = 32
	cfg.UpdateTimeout = 8 * 8
	cfg.SecondsPerSlot = 6
	cfg.GenesisForkVersion = Version{0x00, 0x00, 0x00, 0x01}
	cfg.AltairForkVersion = Version{0x01, 0x00, 0x00, 0x01}
	cfg.AltairForkEpoch = FarFutureEpoch
	cfg.BellatrixForkVersion = Version{0x02, 0x00, 0x00, 0x01}
	cfg.BellatrixForkEpoch = FarFutureEpoch
	cfg.CapellaForkVersion = Version{0x03, 0x00, 0x00, 0x01}
	cfg.CapellaForkEpoch = FarFutureEpoch
	cfg.DenebForkVersion = Version{0x04, 0x00, 0x00, 0x01}
	cfg.DenebForkEpoch = FarFutureEpoch
	cfg.MinGenesisTime = 1578009600
	cfg.GenesisDelay = 300
	cfg.GenesisValidatorsRoot = Root{}
	return cfg
}

// ConfigForNetwork returns the named preset.
func ConfigForNetwork(name string) (*Config, error) {
	switch name {
	case "mainnet", "":
		return MainnetConfig(), nil
	case "minimal":
		return MinimalConfig(), nil
	default:
		return nil, errors.Errorf("unknown network %q", name)
	}
}

// Copy returns a deep copy of the config.
func (c *Config) Copy() *Config {
	cp := *c
	return &cp
}

// Validate rejects parameter sets the light client cannot operate on.
func (c *Config) Validate() error {
	switch {
	case c.SlotsPerEpoch == 0:
		return errors.New("SLOTS_PER_EPOCH must be positive")
	case c.EpochsPerSyncCommitteePeriod == 0:
		return errors.New("EPOCHS_PER_SYNC_COMMITTEE_PERIOD must be positive")
	case c.UpdateTimeout == 0:
		return errors.New("UPDATE_TIMEOUT must be positive")
	case c.SecondsPerSlot == 0:
		return errors.New("SECONDS_PER_SLOT must be positive")
	case c.SyncCommitteeSize == 0 || c.SyncCommitteeSize > MAX_SYNC_COMMITTEE_SIZE:
		return errors.Errorf("SYNC_COMMITTEE_SIZE must be in [1, %d], got %d", MAX_SYNC_COMMITTEE_SIZE, c.SyncCommitteeSize)
	case c.MinSyncCommitteeParticipants > c.SyncCommitteeSize:
		return errors.Errorf("MIN_SYNC_COMMITTEE_PARTICIPANTS %d exceeds SYNC_COMMITTEE_SIZE %d", c.MinSyncCommitteeParticipants, c.SyncCommitteeSize)
	}
	return nil
}

// SlotsPerSyncPeriod is the length of a sync committee period in slots.
func (c *Config) SlotsPerSyncPeriod() uint64 {
	return c.SlotsPerEpoch * c.EpochsPerSyncCommitteePeriod
}

// EpochAtSlot implements compute_epoch_at_slot.
func (c *Config) EpochAtSlot(slot types.Slot) types.Epoch {
	return types.Epoch(uint64(slot) / c.SlotsPerEpoch)
}

// SyncPeriod implements compute_sync_committee_period.
func (c *Config) SyncPeriod(epoch types.Epoch) uint64 {
	return uint64(epoch) / c.EpochsPerSyncCommitteePeriod
}

// SyncPeriodAtSlot implements compute_sync_committee_period_at_slot.
func (c *Config) SyncPeriodAtSlot(slot types.Slot) uint64 {
	return c.SyncPeriod(c.EpochAtSlot(slot))
}

// SyncPeriodStartSlot returns the first slot of the given period.
func (c *Config) SyncPeriodStartSlot(period uint64) types.Slot {
	return types.Slot(period * c.SlotsPerSyncPeriod())
}
