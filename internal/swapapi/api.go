// Package swapapi implements the control surface operations shared by the
// REST and JSON-RPC handlers.
package swapapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pborman/uuid"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/disclosure"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/orchestrator"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
	"github.com/anyswap/CrossChain-HTLC/worker"
)

const (
	maxDeadlineWindow = 7 * 24 * 3600

	defaultNoticeLimit = 100
	maxNoticeLimit     = 1000
)

// api errors
var (
	ErrOrderExists   = errors.New("order already exists")
	ErrWrongParams   = errors.New("wrong params")
	ErrUnknownStatus = errors.New("unknown status filter")
)

// SecretMediator secret mediator operations
type SecretMediator interface {
	RequestSecret(orderID string) error
	ProvideSecret(orderID, secret string) error
	HandleResolverReady(orderID, resolver string) (string, error)
	ForceRevealSecret(orderID, reason string) error
	HeldOrders() []string
}

// DeadlineQuerier upcoming deadline alerts
type DeadlineQuerier interface {
	UpcomingAlerts(now, window int64) ([]*types.TimeoutAlert, error)
}

// JobStatsProvider scheduler statistics
type JobStatsProvider interface {
	Stats() []worker.JobStats
}

// API control surface logic
type API struct {
	config    *params.RelayerConfig
	reg       registry.Registry
	mediator  SecretMediator
	deadlines DeadlineQuerier
	opts      *validator.Options

	jobs         JobStatsProvider
	orchestrator *orchestrator.Orchestrator
	feed         *disclosure.Feed

	now   func() int64
	newID func() string
}

// NewAPI new api
func NewAPI(config *params.RelayerConfig, reg registry.Registry, mediator SecretMediator, deadlines DeadlineQuerier, opts *validator.Options) *API {
	return &API{
		config:    config,
		reg:       reg,
		mediator:  mediator,
		deadlines: deadlines,
		opts:      opts,
		now:       common.Now,
		newID:     uuid.New,
	}
}

// SetJobStatsProvider report scheduler statistics in status
func (api *API) SetJobStatsProvider(jobs JobStatsProvider) {
	api.jobs = jobs
}

// SetOrchestrator report resolver plans in status
func (api *API) SetOrchestrator(orch *orchestrator.Orchestrator) {
	api.orchestrator = orch
}

// SetFeed serve public notices of the feed
func (api *API) SetFeed(feed *disclosure.Feed) {
	api.feed = feed
}

// SetClock replace the clock (unix seconds)
func (api *API) SetClock(now func() int64) {
	api.now = now
}

// CreateSwap validate, persist and request the secret of a new swap
func (api *API) CreateSwap(p *types.SwapParams) (*CreateResult, error) {
	log.Debug("[api] receive CreateSwap", "orderID", p.OrderID)
	now := api.now()
	res, err := validator.ValidateSwapParams(p, api.opts, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	if !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}

	rec := p.ToRecord(api.newID(), now)
	if err = api.reg.CreateSwap(rec); err != nil {
		if errors.Is(err, registry.ErrItemIsDup) {
			return nil, fmt.Errorf("%w: %v", ErrOrderExists, p.OrderID)
		}
		return nil, err
	}
	log.Info("[api] swap created", "orderID", rec.OrderID, "id", rec.ID, "srcChain", rec.SrcChain, "dstChain", rec.DstChain)

	if err = api.mediator.RequestSecret(rec.OrderID); err != nil {
		// the swap stays pending
		log.Error("[api] request secret failed", "orderID", rec.OrderID, "err", err)
		return nil, err
	}
	return &CreateResult{ID: rec.ID, OrderID: rec.OrderID, Status: types.StatusAwaitingSecret}, nil
}

// ProvideSecret maker hands over the secret
func (api *API) ProvideSecret(orderID, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrWrongParams)
	}
	return api.mediator.ProvideSecret(orderID, secret)
}

// ResolverReady resolver signals readiness and receives the secret when held
func (api *API) ResolverReady(orderID, resolver string) (*ResolverReadyResult, error) {
	if resolver == "" {
		return nil, fmt.Errorf("%w: resolverAddress is required", ErrWrongParams)
	}
	secret, err := api.mediator.HandleResolverReady(orderID, resolver)
	if err != nil {
		return nil, err
	}
	rec, err := api.reg.GetSwap(orderID)
	if err != nil {
		return nil, err
	}
	return &ResolverReadyResult{OrderID: orderID, Status: rec.Status, Secret: secret}, nil
}

// GetSwap swap record, the secret is redacted unless already public
func (api *API) GetSwap(orderID string) (*SwapRecord, error) {
	rec, err := api.reg.GetSwap(orderID)
	if err != nil {
		return nil, err
	}
	return rec.Redacted(), nil
}

// GetSwaps summaries of swaps with status, "active" for all non terminal
func (api *API) GetSwaps(status string) ([]*SwapSummary, error) {
	var (
		recs []*types.SwapRecord
		err  error
	)
	switch {
	case status == "" || strings.EqualFold(status, "active"):
		recs, err = api.reg.FindActiveSwaps()
	case types.SwapStatus(status).IsValid():
		recs, err = api.reg.FindSwapsByStatus(types.SwapStatus(status))
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStatus, status)
	}
	if err != nil {
		return nil, err
	}
	result := make([]*SwapSummary, len(recs))
	for i, rec := range recs {
		result[i] = toSummary(rec)
	}
	return result, nil
}

// ForceReveal operator override publishing the secret now
func (api *API) ForceReveal(orderID string) (*SwapRecord, error) {
	log.Warn("[api] receive ForceReveal", "orderID", orderID)
	if err := api.mediator.ForceRevealSecret(orderID, types.ReasonManual); err != nil {
		return nil, err
	}
	return api.GetSwap(orderID)
}

// GetDeadlines upcoming deadline alerts within window seconds, zero means
// the configured alert window
func (api *API) GetDeadlines(window int64) ([]*TimeoutAlert, error) {
	if window == 0 {
		window = api.config.Swap.AlertWindow
	}
	if window <= 0 || window > maxDeadlineWindow {
		return nil, fmt.Errorf("%w: window must be in (0, %v]", ErrWrongParams, maxDeadlineWindow)
	}
	alerts, err := api.deadlines.UpcomingAlerts(api.now(), window)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []*TimeoutAlert{}
	}
	return alerts, nil
}

// GetDisclosures public notices after seq since, limit zero means the default page size
func (api *API) GetDisclosures(since uint64, limit int) ([]*disclosure.Notice, error) {
	if limit == 0 {
		limit = defaultNoticeLimit
	}
	if limit < 0 || limit > maxNoticeLimit {
		return nil, fmt.Errorf("%w: limit must be in (0, %v]", ErrWrongParams, maxNoticeLimit)
	}
	if api.feed == nil {
		return []*disclosure.Notice{}, nil
	}
	return api.feed.Since(since, limit), nil
}

// GetStatus aggregate health
func (api *API) GetStatus() (*StatusInfo, error) {
	now := api.now()
	info := &StatusInfo{
		Identifier: api.config.Identifier,
		Version:    params.VersionWithMeta,
		Timestamp:  now,
		Config:     api.config.Swap,
	}
	for _, chain := range api.config.Chains {
		cs := &ChainStatus{Chain: chain.Name, Family: chain.Family}
		if chain.Confirmations != nil {
			cs.Confirmations = *chain.Confirmations
		}
		cursor, err := api.reg.GetCursor(chain.Name)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			cs.CursorHeight = cursor.Height
			cs.CursorUpdated = cursor.Timestamp
		}
		info.Chains = append(info.Chains, cs)
	}

	active, err := api.reg.FindActiveSwaps()
	if err != nil {
		return nil, err
	}
	info.ActiveSwaps = len(active)

	alerts, err := api.deadlines.UpcomingAlerts(now, api.config.Swap.AlertWindow)
	if err != nil {
		return nil, err
	}
	info.UpcomingDeadlines = len(alerts)
	info.HeldSecrets = len(api.mediator.HeldOrders())

	if api.jobs != nil {
		info.Jobs = api.jobs.Stats()
	}
	if api.orchestrator != nil {
		info.ResolverPlans = api.orchestrator.Plans()
	}
	return info, nil
}

// VersionInfo version info
func VersionInfo() string {
	return params.VersionWithMeta
}
