// Package api implements the beacon node light client REST API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "api")

// ErrNotFound is returned when the beacon node has no data for a request.
var ErrNotFound = errors.New("not found")

// DefaultTimeout bounds every request unless configured otherwise.
const DefaultTimeout = 10 * time.Second

// Client retrieves light client data from a beacon node. Nothing returned is
// trusted; the light client verifies it.
type Client interface {
	Genesis(ctx context.Context) (*Genesis, error)
	FinalizedCheckpointRoot(ctx context.Context) (common.Hash, error)
	Bootstrap(ctx context.Context, blockRoot common.Hash) (*types.LightClientBootstrap, error)
	Updates(ctx context.Context, startPeriod, count uint64) ([]*types.LightClientUpdate, error)
	FinalityUpdate(ctx context.Context) (*types.LightClientFinalityUpdate, error)
	OptimisticUpdate(ctx context.Context) (*types.LightClientOptimisticUpdate, error)
}

// BeaconLightAPI requests light client data from a beacon node REST API.
type BeaconLightAPI struct {
	url           string
	client        *http.Client
	customHeaders map[string]string
}

var _ Client = (*BeaconLightAPI)(nil)

// NewBeaconLightAPI creates a client for the node at url.
func NewBeaconLightAPI(url string, timeout time.Duration, customHeaders map[string]string) *BeaconLightAPI {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BeaconLightAPI{
		url:           strings.TrimSuffix(url, "/"),
		client:        &http.Client{Timeout: timeout},
		customHeaders: customHeaders,
	}
}

func (api *BeaconLightAPI) httpGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.url+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range api.customHeaders {
		req.Header.Set(k, v)
	}
	log.WithField("path", path).Trace("Requesting")
	resp, err := api.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "could not request %s", path)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "endpoint %s", path)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("error from endpoint %s: status code %d", path, resp.StatusCode)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read response of %s", path)
	}
	return body, nil
}

// getData fetches path and decodes the "data" field of the response into v.
func (api *BeaconLightAPI) getData(ctx context.Context, path string, v interface{}) error {
	resp, err := api.httpGet(ctx, path)
	if err != nil {
		return err
	}
	data := struct {
		Data interface{} `json:"data"`
	}{Data: v}
	if err := json.Unmarshal(resp, &data); err != nil {
		return errors.Wrapf(err, "could not decode response of %s", path)
	}
	return nil
}

// Genesis fetches the genesis time and validators root.
func (api *BeaconLightAPI) Genesis(ctx context.Context) (*Genesis, error) {
	const path = "/eth/v1/beacon/genesis"
	var data jsonGenesis
	if err := api.getData(ctx, path, &data); err != nil {
		return nil, err
	}
	genesis, err := data.genesis()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid response of %s", path)
	}
	return genesis, nil
}

// FinalizedCheckpointRoot fetches the block root of the finalized checkpoint
// the node currently follows.
func (api *BeaconLightAPI) FinalizedCheckpointRoot(ctx context.Context) (common.Hash, error) {
	const path = "/eth/v1/beacon/states/finalized/finality_checkpoints"
	var data struct {
		Finalized struct {
			Epoch decimal     `json:"epoch"`
			Root  common.Hash `json:"root"`
		} `json:"finalized"`
	}
	if err := api.getData(ctx, path, &data); err != nil {
		return common.Hash{}, err
	}
	if data.Finalized.Root == (common.Hash{}) {
		return common.Hash{}, errors.Errorf("empty finalized checkpoint in response of %s", path)
	}
	return data.Finalized.Root, nil
}

// Bootstrap fetches the bootstrap for blockRoot.
func (api *BeaconLightAPI) Bootstrap(ctx context.Context, blockRoot common.Hash) (*types.LightClientBootstrap, error) {
	path := "/eth/v1/beacon/light_client/bootstrap/" + blockRoot.Hex()
	var data jsonBootstrap
	if err := api.getData(ctx, path, &data); err != nil {
		return nil, err
	}
	bootstrap, err := data.bootstrap()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid response of %s", path)
	}
	return bootstrap, nil
}

// Updates fetches the best updates of count periods starting at startPeriod.
// Servers may return fewer updates than requested.
func (api *BeaconLightAPI) Updates(ctx context.Context, startPeriod, count uint64) ([]*types.LightClientUpdate, error) {
	if count == 0 || count > config.MAX_REQUEST_LIGHT_CLIENT_UPDATES {
		return nil, errors.Errorf("invalid update count %d", count)
	}
	path := fmt.Sprintf("/eth/v1/beacon/light_client/updates?start_period=%d&count=%d", startPeriod, count)
	resp, err := api.httpGet(ctx, path)
	if err != nil {
		return nil, err
	}
	// The standard response is a list of versioned objects, older servers
	// wrap a plain list in a data object.
	var (
		versioned []struct {
			Data jsonUpdate `json:"data"`
		}
		list []jsonUpdate
	)
	if err := json.Unmarshal(resp, &versioned); err == nil {
		for _, v := range versioned {
			list = append(list, v.Data)
		}
	} else {
		var wrapped struct {
			Data []jsonUpdate `json:"data"`
		}
		if err := json.Unmarshal(resp, &wrapped); err != nil {
			return nil, errors.Wrapf(err, "could not decode response of %s", path)
		}
		list = wrapped.Data
	}
	if uint64(len(list)) > count {
		return nil, errors.Errorf("%s returned %d updates", path, len(list))
	}
	updates := make([]*types.LightClientUpdate, 0, len(list))
	for i := range list {
		update, err := list[i].update()
		if err != nil {
			return nil, errors.Wrapf(err, "invalid update %d in response of %s", i, path)
		}
		updates = append(updates, update)
	}
	return updates, nil
}

// FinalityUpdate fetches the latest finality update.
func (api *BeaconLightAPI) FinalityUpdate(ctx context.Context) (*types.LightClientFinalityUpdate, error) {
	const path = "/eth/v1/beacon/light_client/finality_update"
	var data jsonUpdate
	if err := api.getData(ctx, path, &data); err != nil {
		return nil, err
	}
	update, err := data.finalityUpdate()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid response of %s", path)
	}
	return update, nil
}

// OptimisticUpdate fetches the latest optimistic update.
func (api *BeaconLightAPI) OptimisticUpdate(ctx context.Context) (*types.LightClientOptimisticUpdate, error) {
	const path = "/eth/v1/beacon/light_client/optimistic_update"
	var data jsonUpdate
	if err := api.getData(ctx, path, &data); err != nil {
		return nil, err
	}
	update, err := data.optimisticUpdate()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid response of %s", path)
	}
	return update, nil
}
