package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/manifold/internal/cache"
	"github.com/aretw0/manifold/internal/logging"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/guard"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/aretw0/manifold/pkg/observability"
	"github.com/aretw0/manifold/pkg/policy"
	"github.com/aretw0/manifold/pkg/ports"
	"github.com/aretw0/manifold/pkg/registry"
	"github.com/aretw0/manifold/pkg/workflow"
)

// Stage names a step of one orchestration call.
type Stage string

const (
	StageValidating     Stage = "validating"
	StagePolicyChecking Stage = "policy_checking"
	StageApplying       Stage = "applying"
	StageHookRunning    Stage = "hook_running"
	StageDone           Stage = "done"
	StageRejected       Stage = "rejected"
)

// Hook phases reported in the hook context and in HookEvents.
const (
	PhaseOnLeave = "on_leave"
	PhaseOnEnter = "on_enter"
)

// Orchestrator applies transition requests to stored entities.
// It holds no per-entity state and never locks an entity; concurrent writers
// are detected through the store's version tokens.
type Orchestrator struct {
	provider  ports.ManifestProvider
	store     ports.EntityStore
	cache     *cache.Cache
	machine   Machine
	registry  *registry.Registry
	lifecycle domain.LifecycleHooks
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.TransitionService = (*Orchestrator)(nil)

// NewOrchestrator wires an orchestrator over a manifest provider and an entity store.
func NewOrchestrator(provider ports.ManifestProvider, store ports.EntityStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		store:    store,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.cache == nil {
		o.cache = cache.New(cache.WithMetrics(o.metrics), cache.WithLogger(o.logger))
	}
	if o.machine == nil {
		o.machine = workflow.NewEngine(workflow.WithLogger(o.logger))
	}
	if o.registry == nil {
		o.registry = registry.NewRegistry(registry.WithLogger(o.logger))
	}
	if o.metrics != nil {
		o.lifecycle = o.metrics.Hooks(o.lifecycle)
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// Registry returns the action hook registry used by the orchestrator.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// attempt carries the state of one Transition call.
type attempt struct {
	req    domain.TransitionRequest
	stage  Stage
	entity *domain.Entity
	ast    *manifest.Ast
	wf     *manifest.WorkflowDef
	from   string
	to     string
	edge   manifest.TransitionEdge
}

// Transition validates req against the entity's pinned manifest and commits it.
//
// A trigger selects the edge it names, so parallel edges between the same two
// states keep their own guards and hooks. The edge's on_leave hooks run before
// the store write and on_enter hooks after it. If the write then fails, for
// example with a ConflictError raised by a concurrent writer, on_leave hooks
// have already run for a transition that was not committed; on_enter hooks
// run only for committed transitions.
func (o *Orchestrator) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.TransitionResult, error) {
	a := &attempt{req: req, stage: StageValidating}

	if err := req.Validate(); err != nil {
		return nil, o.reject(ctx, a, err)
	}

	entity, err := o.load(ctx, req.EntityID)
	if err != nil {
		return nil, o.reject(ctx, a, err)
	}
	a.entity = entity

	if req.ExpectedVersion != nil && *req.ExpectedVersion != entity.Version {
		return nil, o.reject(ctx, a, &domain.ConflictError{
			EntityID: entity.ID,
			Expected: *req.ExpectedVersion,
			Actual:   entity.Version,
		})
	}

	if err := o.validate(ctx, a); err != nil {
		return nil, o.reject(ctx, a, err)
	}

	a.stage = StagePolicyChecking
	candidate := applyRequest(entity.Snapshot, req)
	if err := o.checkPolicies(a, candidate); err != nil {
		return nil, o.reject(ctx, a, err)
	}

	a.stage = StageApplying
	trigger := req.Trigger
	if trigger == "" {
		trigger = a.edge.Trigger
	}
	o.runHooks(ctx, a.edge.OnLeave, PhaseOnLeave, a, trigger)

	next := entity.Clone()
	next.Snapshot = candidate
	next.Snapshot.State = a.to

	token := ""
	if req.ExpectedVersion != nil {
		token = *req.ExpectedVersion
	}
	version, err := o.store.Save(ctx, next, token)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			err = &domain.ConflictError{EntityID: entity.ID, Expected: token, Err: err}
		} else {
			err = fmt.Errorf("failed to save entity %q: %w", entity.ID, err)
		}
		return nil, o.reject(ctx, a, err)
	}
	next.Version = version

	a.stage = StageHookRunning
	o.runHooks(ctx, a.edge.OnEnter, PhaseOnEnter, a, trigger)

	a.stage = StageDone
	result := &domain.TransitionResult{
		EntityID: entity.ID,
		From:     a.from,
		To:       a.to,
		Trigger:  trigger,
		Snapshot: next.Snapshot,
		Version:  version,
	}

	o.logger.Info("transition applied", "entity_id", entity.ID, "from", a.from, "to", a.to, "trigger", trigger, "version", version)
	if o.lifecycle.OnTransition != nil {
		o.lifecycle.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: domain.EventBase{
				Timestamp: o.now(),
				Type:      domain.EventTransitionApplied,
				EntityID:  entity.ID,
			},
			From:    a.from,
			To:      a.to,
			Trigger: trigger,
			Version: version,
			Diff:    domain.Diff(entity.Snapshot, next.Snapshot),
		})
	}
	return result, nil
}

// validate resolves the workflow, the current state and the target edge, and
// checks the requested vocabulary values.
func (o *Orchestrator) validate(ctx context.Context, a *attempt) error {
	ast, err := o.ast(ctx, a.entity.ManifestVersion)
	if err != nil {
		return err
	}
	a.ast = ast
	wf, err := o.resolve(ast, a.entity.TypeKind, a.entity.TypeID)
	if err != nil {
		return err
	}
	a.wf = wf

	a.from = a.entity.Snapshot.State
	if a.from == "" {
		a.from = o.machine.InitialState(wf)
	}

	edge, err := o.machine.TargetEdge(wf, a.from, workflow.Target{
		NewState: a.req.NewState,
		Trigger:  a.req.Trigger,
	})
	if err != nil {
		return err
	}
	a.edge = edge
	a.to = edge.To

	return checkVocabulary(a.wf, a.to, a.req)
}

func (o *Orchestrator) checkPolicies(a *attempt, candidate domain.EntitySnapshot) error {
	var reasons []string
	if !guard.Evaluate(a.edge.Guard, candidate) {
		reasons = append(reasons, fmt.Sprintf("guard on %s -> %s not satisfied: %s", a.from, a.to, guard.Describe(a.edge.Guard)))
	}

	reasons = append(reasons, policy.Messages(policy.Check(a.ast, a.to, candidate))...)

	if len(reasons) > 0 {
		return domain.NewPolicyDeniedError(reasons...)
	}
	return nil
}

// checkVocabulary enforces the closed state reason and resolution vocabularies.
func checkVocabulary(wf *manifest.WorkflowDef, to string, req domain.TransitionRequest) error {
	if req.StateReason != "" && len(wf.StateReasonOptions) > 0 && !hasOption(wf.StateReasonOptions, req.StateReason) {
		return &domain.ValidationError{
			Field:   domain.FieldStateReason,
			Message: fmt.Sprintf("%q is not a declared state reason of workflow %q", req.StateReason, wf.ID),
		}
	}
	if len(wf.ResolutionOptions) == 0 {
		return nil
	}
	if req.Resolution != "" && !hasOption(wf.ResolutionOptions, req.Resolution) {
		return &domain.ValidationError{
			Field:   domain.FieldResolution,
			Message: fmt.Sprintf("%q is not a declared resolution of workflow %q", req.Resolution, wf.ID),
		}
	}
	if req.Resolution == "" && domain.IsResolvedLike(to) && !req.BypassResolution {
		return &domain.ValidationError{
			Field:   domain.FieldResolution,
			Message: fmt.Sprintf("resolution is required when entering state %q", to),
		}
	}
	return nil
}

func hasOption(opts []manifest.Option, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}

// applyRequest returns the snapshot the entity would have after the request,
// except for the state itself.
func applyRequest(current domain.EntitySnapshot, req domain.TransitionRequest) domain.EntitySnapshot {
	next := current.Clone()
	if req.StateReason != "" {
		next.StateReason = req.StateReason
	}
	if req.Resolution != "" {
		next.Resolution = req.Resolution
	}
	return next
}

func (o *Orchestrator) runHooks(ctx context.Context, names []string, phase string, a *attempt, trigger string) {
	if len(names) == 0 {
		return
	}
	hookCtx := map[string]any{
		registry.KeyEntityID:  a.entity.ID,
		registry.KeyFromState: a.from,
		registry.KeyToState:   a.to,
		registry.KeyTrigger:   trigger,
		registry.KeyPhase:     phase,
		registry.KeyRoles:     append([]string(nil), a.req.Roles...),
	}
	for _, f := range o.registry.Run(ctx, names, hookCtx) {
		if o.lifecycle.OnHookFailed != nil {
			o.lifecycle.OnHookFailed(ctx, &domain.HookEvent{
				EventBase: domain.EventBase{
					Timestamp: o.now(),
					Type:      domain.EventHookFailed,
					EntityID:  a.entity.ID,
				},
				Action: f.Action,
				Phase:  phase,
				Error:  f.Err,
			})
		}
	}
}

func (o *Orchestrator) reject(ctx context.Context, a *attempt, err error) error {
	kind := domain.ErrorKind(err)
	failed := a.stage
	a.stage = StageRejected

	level := slog.LevelInfo
	if kind == "internal" {
		level = slog.LevelError
	}
	o.logger.Log(ctx, level, "transition rejected",
		"entity_id", a.req.EntityID,
		"stage", failed,
		"kind", kind,
		"err", err,
	)

	if o.lifecycle.OnRejected != nil {
		o.lifecycle.OnRejected(ctx, &domain.RejectionEvent{
			EventBase: domain.EventBase{
				Timestamp: o.now(),
				Type:      domain.EventTransitionRejected,
				EntityID:  a.req.EntityID,
			},
			From:  a.from,
			To:    a.to,
			Kind:  kind,
			Error: err,
		})
	}
	return err
}

func (o *Orchestrator) load(ctx context.Context, id string) (*domain.Entity, error) {
	entity, err := o.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return nil, &domain.NotFoundError{Resource: "entity", ID: id, Err: err}
		}
		return nil, fmt.Errorf("failed to load entity %q: %w", id, err)
	}
	return entity, nil
}

// ast returns the compiled manifest for version, loading it through the
// provider on a cache miss.
func (o *Orchestrator) ast(ctx context.Context, version string) (*manifest.Ast, error) {
	ast, err := o.cache.GetOrLoad(ctx, version, func(ctx context.Context) (*manifest.Bundle, error) {
		return o.provider.Get(ctx, version)
	})
	if err != nil {
		if errors.Is(err, domain.ErrManifestNotFound) {
			return nil, &domain.NotFoundError{Resource: "manifest", ID: version, Err: err}
		}
		return nil, err
	}
	return ast, nil
}

// resolve maps a missing type or workflow to a ValidationError: the entity
// references something its manifest does not define.
func (o *Orchestrator) resolve(ast *manifest.Ast, typeKind, typeID string) (*manifest.WorkflowDef, error) {
	wf, err := o.machine.Resolve(ast, typeKind, typeID)
	if err == nil {
		return wf, nil
	}
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("%s %q not defined", nf.Resource, nf.ID)}
	}
	return nil, err
}
