package syncer

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/core"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	finalizedSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightclient_finalized_slot",
		Help: "Slot of the finalized header of the light client store.",
	})
	optimisticSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightclient_optimistic_slot",
		Help: "Slot of the optimistic header of the light client store.",
	})
	storePeriodGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightclient_store_period",
		Help: "Sync committee period of the finalized header.",
	})
	maxActiveParticipantsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightclient_current_max_active_participants",
		Help: "Highest sync committee participation seen in the current update timeout window.",
	})
	updatesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightclient_updates_processed_total",
		Help: "Number of processed light client updates by result.",
	}, []string{"result"})
)

const (
	resultAccepted = "accepted"
	resultIgnored  = "ignored"
	resultRejected = "rejected"
)

// processResult labels the outcome of processing an update. Irrelevant
// updates are the normal case when polling the latest update repeatedly.
func processResult(err error) string {
	switch {
	case err == nil:
		return resultAccepted
	case errors.Is(err, core.ErrIrrelevantUpdate):
		return resultIgnored
	default:
		return resultRejected
	}
}

func reportStore(cfg *config.Config, store *types.LightClientStore) {
	finalizedSlotGauge.Set(float64(store.FinalizedHeader.Slot))
	optimisticSlotGauge.Set(float64(store.OptimisticHeader.Slot))
	storePeriodGauge.Set(float64(cfg.SyncPeriodAtSlot(store.FinalizedHeader.Slot)))
	maxActiveParticipantsGauge.Set(float64(store.CurrentMaxActiveParticipants))
}
