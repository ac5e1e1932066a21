package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/pkg/retry"
	"github.com/trusttri/federation/pkg/worker"
	"github.com/trusttri/federation/protocol"
	"github.com/trusttri/federation/resolver"
)

// Deliverer hands a serialized activity to the transport layer for one
// recipient. The transport is an external collaborator; the driver only
// depends on this contract.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte, recipient entity.Recipient) error
}

// Decision is the outcome of the follow decision hook.
type Decision int

const (
	// DecisionAccept dispatches an Accept to the follower.
	DecisionAccept Decision = iota
	// DecisionReject drops the follow without a reply.
	DecisionReject
	// DecisionDefer leaves the follow for out-of-band handling; no Accept
	// is produced and no error is raised.
	DecisionDefer
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionReject:
		return "reject"
	case DecisionDefer:
		return "defer"
	default:
		return "unknown"
	}
}

// FollowDecisionHook decides how to answer an inbound follow. The default
// hook accepts unconditionally, matching the established behavior even for
// actors declaring manual follower approval; installations enforcing
// approval replace the hook.
type FollowDecisionHook func(ctx context.Context, follow *entity.Entity) Decision

// AcceptAll is the default decision hook.
func AcceptAll(context.Context, *entity.Entity) Decision {
	return DecisionAccept
}

// Receipt reports one delivery outcome. A non-nil Err is a warning, not a
// rollback: the triggering entity has already been processed.
type Receipt struct {
	Entity    *entity.Entity
	Recipient entity.Recipient
	Err       error
}

// Inbound is one received wire document queued for processing.
type Inbound struct {
	Protocol string
	Data     []byte
	Local    entity.UserType
}

// Driver executes the lifecycle around the pure transforms: it runs
// adapters, resolves profiles, applies the follow decision hook and
// dispatches deliveries with rate limiting and retry.
type Driver struct {
	pipeline  *Pipeline
	resolver  resolver.Resolver
	deliverer Deliverer
	adapters  *protocol.Registry

	hook     FollowDecisionHook
	limiter  *rate.Limiter
	retryCfg retry.Config
	logger   *slog.Logger

	reports chan Receipt
	results chan *entity.Entity
	pool    *worker.Pool[Inbound]

	registerer prometheus.Registerer
	deliveries *prometheus.CounterVec
	decisions  *prometheus.CounterVec
}

// DriverOption is a configuration option for the driver.
type DriverOption func(*Driver)

// WithDecisionHook replaces the default accept-all follow hook.
func WithDecisionHook(hook FollowDecisionHook) DriverOption {
	return func(d *Driver) {
		d.hook = hook
	}
}

// WithRateLimit caps outbound dispatch and profile fetches.
func WithRateLimit(perSecond float64, burst int) DriverOption {
	return func(d *Driver) {
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetry replaces the delivery retry configuration.
func WithRetry(cfg retry.Config) DriverOption {
	return func(d *Driver) {
		d.retryCfg = cfg
	}
}

// WithDriverLogger sets the structured logger.
func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithDriverMetrics registers delivery and decision counters.
func WithDriverMetrics(reg prometheus.Registerer) DriverOption {
	return func(d *Driver) {
		d.registerer = reg
	}
}

// WithReportBuffer sizes the delivery report channel.
func WithReportBuffer(n int) DriverOption {
	return func(d *Driver) {
		d.reports = make(chan Receipt, n)
	}
}

// NewDriver creates a lifecycle driver.
func NewDriver(p *Pipeline, r resolver.Resolver, del Deliverer, adapters *protocol.Registry, opts ...DriverOption) (*Driver, error) {
	if p == nil || r == nil || del == nil || adapters == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingRequiredField, "pipeline", "NewDriver",
			"pipeline, resolver, deliverer and adapters are all required")
	}

	d := &Driver{
		pipeline:  p,
		resolver:  r,
		deliverer: del,
		adapters:  adapters,
		hook:      AcceptAll,
		limiter:   rate.NewLimiter(rate.Inf, 0),
		retryCfg:  retry.Delivery(),
		logger:    slog.Default(),
		reports:   make(chan Receipt, 64),
		results:   make(chan *entity.Entity, 64),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.registerer != nil {
		if err := d.initializeMetrics(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Driver) initializeMetrics() error {
	d.deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_deliveries_total",
		Help: "Outbound activity deliveries by protocol and outcome",
	}, []string{"protocol", "status"})
	d.decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_follow_decisions_total",
		Help: "Inbound follow decisions by outcome",
	}, []string{"decision"})

	for _, c := range []prometheus.Collector{d.deliveries, d.decisions} {
		if err := d.registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Reports exposes per-recipient delivery outcomes. Failed accept deliveries
// appear here as warnings; they never fail the triggering receive.
func (d *Driver) Reports() <-chan Receipt {
	return d.reports
}

// Send runs PreSend on an outbound entity and delivers it to each
// recipient over that recipient's protocol. Per-recipient failures are
// reported in the returned receipts; only enrichment or total serialization
// failure returns an error.
func (d *Driver) Send(ctx context.Context, e *entity.Entity, sender entity.UserType, recipients []entity.Recipient) ([]Receipt, error) {
	e, cmds, err := d.pipeline.PreSend(e)
	if err != nil {
		return nil, err
	}
	if err := d.execute(ctx, e, cmds, sender); err != nil {
		return nil, err
	}

	payloads := make(map[string][]byte, 2)
	receipts := make([]Receipt, 0, len(recipients))

	for _, rcpt := range recipients {
		payload, ok := payloads[rcpt.Protocol]
		if !ok {
			adapter, err := d.adapters.Get(rcpt.Protocol)
			if err != nil {
				receipts = append(receipts, Receipt{Entity: e, Recipient: rcpt, Err: err})
				d.countDelivery(rcpt.Protocol, "unsupported")
				continue
			}
			payload, err = adapter.Marshal(ctx, e, sender)
			if err != nil {
				receipts = append(receipts, Receipt{Entity: e, Recipient: rcpt, Err: err})
				d.countDelivery(rcpt.Protocol, "marshal_error")
				continue
			}
			payloads[rcpt.Protocol] = payload
		}

		receipt := Receipt{Entity: e, Recipient: rcpt, Err: d.deliver(ctx, payload, rcpt)}
		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

// Receive verifies, parses and processes one inbound wire document,
// executing any side-effect commands the transform requests. The returned
// entity is ready for the application; a nil entity with a nil error never
// occurs.
func (d *Driver) Receive(ctx context.Context, protocolName string, data []byte, local entity.UserType) (*entity.Entity, error) {
	adapter, err := d.adapters.Get(protocolName)
	if err != nil {
		return nil, err
	}

	e, err := adapter.Unmarshal(ctx, data, resolver.NewKeys(d.resolver))
	if err != nil {
		return nil, err
	}

	e, cmds, err := d.pipeline.PostReceive(e)
	if err != nil {
		return nil, err
	}
	if err := d.execute(ctx, e, cmds, local); err != nil {
		return nil, err
	}
	return e, nil
}

// execute runs transform commands in order. Profile resolution failure
// aborts; accept dispatch failure degrades to a report.
func (d *Driver) execute(ctx context.Context, e *entity.Entity, cmds []Command, local entity.UserType) error {
	var profile *entity.Entity

	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case FetchProfile:
			fetched, err := d.fetchProfile(ctx, c.Identifier)
			if err != nil {
				return err
			}
			profile = fetched
		case DispatchAccept:
			d.dispatchAccept(ctx, c.Follow, profile, local)
		default:
			d.logger.Warn("unknown pipeline command dropped", "entity", e.ID)
		}
	}
	return nil
}

// fetchProfile resolves a profile under the rate limiter, retrying only
// transient failures.
func (d *Driver) fetchProfile(ctx context.Context, identifier string) (*entity.Entity, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapTransient(err, "pipeline", "fetchProfile", "waiting for rate limiter")
	}

	return retry.DoWithResult(ctx, d.retryCfg, func() (*entity.Entity, error) {
		profile, err := d.resolver.RetrieveProfile(ctx, identifier)
		if err != nil && !errors.IsTransient(err) {
			return nil, retry.NonRetryable(err)
		}
		return profile, err
	})
}

// dispatchAccept applies the decision hook and, on acceptance, delivers an
// Accept embedding the follow to the follower's private inbox. Failures
// after acceptance are warnings: the follow has been processed and the
// outcome is reported, not rolled back.
func (d *Driver) dispatchAccept(ctx context.Context, follow, follower *entity.Entity, local entity.UserType) {
	decision := d.hook(ctx, follow)
	d.countDecision(decision)
	if decision != DecisionAccept {
		d.logger.Info("follow not accepted", "follow", follow.ID, "decision", decision.String())
		return
	}

	accept, err := entity.NewAccept("", follow.TargetID, follow.ID, entity.WithObject(follow))
	if err != nil {
		d.report(Receipt{Entity: follow, Err: err})
		return
	}

	if follower == nil || follower.Inbox == "" {
		d.report(Receipt{Entity: accept, Err: errors.WrapInvalid(errors.ErrDeliveryFailed,
			"pipeline", "dispatchAccept", "follower profile has no inbox")})
		return
	}

	adapter, err := d.adapters.Get(protocol.ActivityPub)
	if err != nil {
		d.report(Receipt{Entity: accept, Err: err})
		return
	}
	payload, err := adapter.Marshal(ctx, accept, local)
	if err != nil {
		d.report(Receipt{Entity: accept, Err: err})
		return
	}

	rcpt := entity.Recipient{
		Endpoint: follower.Inbox,
		FID:      follow.ActorID,
		Protocol: protocol.ActivityPub,
		Public:   false,
	}
	d.report(Receipt{Entity: accept, Recipient: rcpt, Err: d.deliver(ctx, payload, rcpt)})
}

// deliver pushes a payload to one recipient under the rate limiter with
// retry. The returned error is already wrapped as a delivery failure.
func (d *Driver) deliver(ctx context.Context, payload []byte, rcpt entity.Recipient) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return errors.WrapTransient(err, "pipeline", "deliver", "waiting for rate limiter")
	}

	err := retry.Do(ctx, d.retryCfg, func() error {
		err := d.deliverer.Deliver(ctx, payload, rcpt)
		if err != nil && (errors.IsFatal(err) || errors.IsInvalid(err)) {
			return retry.NonRetryable(err)
		}
		return err
	})
	if err != nil {
		d.countDelivery(rcpt.Protocol, "error")
		d.logger.Warn("delivery failed", "endpoint", rcpt.Endpoint, "fid", rcpt.FID, "error", err)
		return errors.WrapTransient(errors.ErrDeliveryFailed, "pipeline", "deliver", err.Error())
	}

	d.countDelivery(rcpt.Protocol, "ok")
	return nil
}

// report publishes a receipt without blocking; when no consumer drains the
// channel the receipt is logged and dropped.
func (d *Driver) report(r Receipt) {
	select {
	case d.reports <- r:
	default:
		d.logger.Warn("delivery report dropped, channel full", "error", r.Err)
	}
}

func (d *Driver) countDelivery(protocolName, status string) {
	if d.deliveries != nil {
		d.deliveries.WithLabelValues(protocolName, status).Inc()
	}
}

func (d *Driver) countDecision(decision Decision) {
	if d.decisions != nil {
		d.decisions.WithLabelValues(decision.String()).Inc()
	}
}

// Start launches the inbound worker pool: submitted documents are processed
// concurrently and resulting entities surface on Entities.
func (d *Driver) Start(ctx context.Context, workers, queueSize int) error {
	pool, err := worker.NewPool(workers, queueSize, func(ctx context.Context, in Inbound) error {
		e, err := d.Receive(ctx, in.Protocol, in.Data, in.Local)
		if err != nil {
			d.logger.Warn("inbound document dropped",
				"protocol", in.Protocol, "class", errors.Classify(err).String(), "error", err)
			return err
		}
		select {
		case d.results <- e:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return err
	}
	if err := pool.Start(ctx); err != nil {
		return err
	}
	d.pool = pool
	return nil
}

// Submit queues an inbound document for the worker pool.
func (d *Driver) Submit(in Inbound) error {
	if d.pool == nil {
		return worker.ErrPoolNotStarted
	}
	return d.pool.Submit(in)
}

// Entities exposes processed inbound entities from the worker pool.
func (d *Driver) Entities() <-chan *entity.Entity {
	return d.results
}

// Stop drains the worker pool.
func (d *Driver) Stop(timeout time.Duration) error {
	if d.pool == nil {
		return nil
	}
	return d.pool.Stop(timeout)
}
