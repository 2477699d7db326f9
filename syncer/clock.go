package syncer

import (
	"time"

	"github.com/MariusVanDerWijden/altair-lc/config"
	eth2types "github.com/prysmaticlabs/eth2-types"
)

// Clock maps wall time to slots of a chain.
type Clock struct {
	genesis time.Time
	cfg     *config.Config
	now     func() time.Time
}

// NewClock creates a clock for a chain started at genesisTime (unix seconds).
func NewClock(genesisTime uint64, cfg *config.Config) *Clock {
	return &Clock{
		genesis: time.Unix(int64(genesisTime), 0),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (c *Clock) slotDuration() time.Duration {
	return time.Duration(c.cfg.SecondsPerSlot) * time.Second
}

// CurrentSlot is the slot at the current time, the genesis slot before genesis.
func (c *Clock) CurrentSlot() eth2types.Slot {
	now := c.now()
	if now.Before(c.genesis) {
		return config.GENESIS_SLOT
	}
	return eth2types.Slot(now.Sub(c.genesis) / c.slotDuration())
}

// CurrentEpoch is the epoch of the current slot.
func (c *Clock) CurrentEpoch() eth2types.Epoch {
	return c.cfg.EpochAtSlot(c.CurrentSlot())
}

// CurrentPeriod is the sync committee period of the current slot.
func (c *Clock) CurrentPeriod() uint64 {
	return c.cfg.SyncPeriodAtSlot(c.CurrentSlot())
}

// SlotStart returns the time at which slot begins.
func (c *Clock) SlotStart(slot eth2types.Slot) time.Time {
	return c.genesis.Add(time.Duration(slot) * c.slotDuration())
}

// UntilNextSlot returns the time left until the next slot begins.
func (c *Clock) UntilNextSlot() time.Duration {
	now := c.now()
	if now.Before(c.genesis) {
		return c.genesis.Sub(now)
	}
	return c.SlotStart(c.CurrentSlot() + 1).Sub(now)
}
