package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/manifold/internal/runtime"
	"github.com/aretw0/manifold/pkg/adapters/file"
	"github.com/aretw0/manifold/pkg/adapters/memory"
	redisstore "github.com/aretw0/manifold/pkg/adapters/redis"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/ports"
	"github.com/aretw0/manifold/pkg/registry"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackerManifest = `
- kind: Workflow
  id: basic
  states: [new, active, resolved, closed]
  resolution_options: [fixed, wont_fix]
  state_reason_options: [duplicate, obsolete]
  transitions:
    - from: new
      to: active
      trigger: start
      on_leave: [audit_leave]
      on_enter: [audit_enter, notify_assignee]
    - {from: new, to: closed, trigger: discard}
    - {from: active, to: resolved, trigger: resolve}
    - {from: resolved, to: closed, trigger: close, guard: {kind: field_present, field: custom_fields.verified_by}}
- kind: TaskType
  id: bug
  workflow_id: basic
  child_types: []
- kind: TaskType
  id: epic
  workflow_id: basic
  child_types: [bug]
- kind: TaskType
  id: orphan
  workflow_id: missing
- kind: TransitionPolicy
  id: assignee-on-active
  when: {state: active}
  require: assignee
`

type fixture struct {
	store    *memory.Store
	provider *memory.Provider
	orch     *runtime.Orchestrator
}

func newFixture(t *testing.T, opts ...runtime.Option) *fixture {
	t.Helper()
	provider, err := memory.NewProviderFromYAML(map[string]string{"v1": trackerManifest})
	require.NoError(t, err)
	store := memory.NewStore()
	return &fixture{
		store:    store,
		provider: provider,
		orch:     runtime.NewOrchestrator(provider, store, opts...),
	}
}

func (f *fixture) seed(t *testing.T, id, typeID string, snap domain.EntitySnapshot) string {
	t.Helper()
	version, err := f.store.Save(context.Background(), &domain.Entity{
		ID:              id,
		TypeKind:        "TaskType",
		TypeID:          typeID,
		ManifestVersion: "v1",
		Snapshot:        snap,
	}, "")
	require.NoError(t, err)
	return version
}

func ptr(s string) *string { return &s }

func TestOrchestrator_TriggerTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", AssigneeID: "u1"})

	res, err := f.orch.Transition(ctx, domain.TransitionRequest{EntityID: "T-1", Trigger: "start"})
	require.NoError(t, err)
	assert.Equal(t, "new", res.From)
	assert.Equal(t, "active", res.To)
	assert.Equal(t, "start", res.Trigger)
	assert.Equal(t, "active", res.Snapshot.State)
	assert.NotEmpty(t, res.Version)

	stored, err := f.store.Load(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, "active", stored.Snapshot.State)
	assert.Equal(t, res.Version, stored.Version)
}

func TestOrchestrator_ExplicitStateTransition(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", CustomFields: map[string]any{"severity": "low"}})

	res, err := f.orch.Transition(context.Background(), domain.TransitionRequest{
		EntityID:    "T-1",
		NewState:    "closed",
		StateReason: "duplicate",
		Resolution:  "wont_fix",
	})
	require.NoError(t, err)
	assert.Equal(t, "discard", res.Trigger, "the edge trigger is reported")
	assert.Equal(t, "closed", res.Snapshot.State)
	assert.Equal(t, "duplicate", res.Snapshot.StateReason)
	assert.Equal(t, "wont_fix", res.Snapshot.Resolution)
	assert.Equal(t, "low", res.Snapshot.CustomFields["severity"])
}

func TestOrchestrator_EmptyStateStartsAtInitial(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{AssigneeID: "u1"})

	res, err := f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "start"})
	require.NoError(t, err)
	assert.Equal(t, "new", res.From)
}

func TestOrchestrator_Validation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", AssigneeID: "u1"})
	f.seed(t, "T-2", "orphan", domain.EntitySnapshot{State: "new"})
	f.seed(t, "T-3", "unknown", domain.EntitySnapshot{State: "new"})

	tests := []struct {
		name string
		req  domain.TransitionRequest
		want string
	}{
		{"neither target", domain.TransitionRequest{EntityID: "T-1"}, "exactly one"},
		{"both targets", domain.TransitionRequest{EntityID: "T-1", NewState: "active", Trigger: "start"}, "exactly one"},
		{"missing entity id", domain.TransitionRequest{Trigger: "start"}, "entity_id"},
		{"unknown trigger", domain.TransitionRequest{EntityID: "T-1", Trigger: "nonexistent"}, "not permitted"},
		{"no literal edge", domain.TransitionRequest{EntityID: "T-1", NewState: "resolved"}, "not allowed"},
		{"undeclared state", domain.TransitionRequest{EntityID: "T-1", NewState: "archived"}, "not allowed"},
		{"unknown workflow", domain.TransitionRequest{EntityID: "T-2", Trigger: "start"}, "workflow"},
		{"unknown type", domain.TransitionRequest{EntityID: "T-3", Trigger: "start"}, "type"},
		{"reason outside vocabulary", domain.TransitionRequest{EntityID: "T-1", Trigger: "start", StateReason: "bored"}, "state reason"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orch.Transition(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	stored, err := f.store.Load(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.Snapshot.State, "rejected requests never write")
}

func TestOrchestrator_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "ghost", Trigger: "start"})
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "entity", nf.Resource)

	_, err = f.store.Save(context.Background(), &domain.Entity{ID: "T-9", TypeKind: "TaskType", TypeID: "bug", ManifestVersion: "v404"}, "")
	require.NoError(t, err)
	_, err = f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-9", Trigger: "start"})
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "manifest", nf.Resource)
	assert.ErrorIs(t, err, domain.ErrManifestNotFound)
}

func TestOrchestrator_PolicyDenied(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new"})

	_, err := f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", NewState: "active"})
	require.Error(t, err)
	assert.True(t, domain.IsPolicyDenied(err))
	assert.Contains(t, err.Error(), "assignee")

	stored, _ := f.store.Load(context.Background(), "T-1")
	assert.Equal(t, "new", stored.Snapshot.State)
}

func TestOrchestrator_GuardAndPolicyReasonsAreCollected(t *testing.T) {
	const doc = `
- kind: Workflow
  id: wf
  states: [open, review]
  transitions:
    - {from: open, to: review, guard: {kind: field_equals, field: custom_fields.ready, value: true}}
- kind: TaskType
  id: doc
  workflow_id: wf
- kind: TransitionPolicy
  id: p1
  when: {state: review}
  require: assignee
- kind: TransitionPolicy
  id: p2
  when: {state: review}
  require: custom_fields.reviewer
`
	provider, err := memory.NewProviderFromYAML(map[string]string{"v1": doc})
	require.NoError(t, err)
	store := memory.NewStore()
	_, err = store.Save(context.Background(), &domain.Entity{ID: "D-1", TypeKind: "TaskType", TypeID: "doc", ManifestVersion: "v1", Snapshot: domain.EntitySnapshot{State: "open"}}, "")
	require.NoError(t, err)

	_, err = runtime.NewOrchestrator(provider, store).Transition(context.Background(), domain.TransitionRequest{EntityID: "D-1", Trigger: "review"})
	var denied *domain.PolicyDeniedError
	require.True(t, errors.As(err, &denied))
	require.Len(t, denied.Reasons, 3)
	assert.Contains(t, denied.Reasons[0], "guard")
	assert.Contains(t, denied.Reasons[1], "assignee")
	assert.Contains(t, denied.Reasons[2], "custom_fields.reviewer")
}

func TestOrchestrator_GuardDenies(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "resolved", Resolution: "fixed"})

	_, err := f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "close", Resolution: "fixed"})
	require.Error(t, err)
	assert.True(t, domain.IsPolicyDenied(err))
	assert.Contains(t, err.Error(), "custom_fields.verified_by")
}

func TestOrchestrator_Concurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", AssigneeID: "u1"})

	// A concurrent writer advances the token.
	entity, err := f.store.Load(ctx, "T-1")
	require.NoError(t, err)
	entity.Snapshot.AssigneeID = "u2"
	t1, err := f.store.Save(ctx, entity, t0)
	require.NoError(t, err)
	require.NotEqual(t, t0, t1)

	_, err = f.orch.Transition(ctx, domain.TransitionRequest{EntityID: "T-1", Trigger: "start", ExpectedVersion: ptr(t0)})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, t0, conflict.Expected)
	assert.Equal(t, t1, conflict.Actual)

	res, err := f.orch.Transition(ctx, domain.TransitionRequest{EntityID: "T-1", Trigger: "start"})
	require.NoError(t, err, "omitting the expected version overwrites")
	assert.Equal(t, "active", res.To)
}

func TestOrchestrator_ConflictCheckedBeforeContent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new"})

	_, err := f.orch.Transition(context.Background(), domain.TransitionRequest{
		EntityID:        "T-1",
		Trigger:         "nonexistent",
		ExpectedVersion: ptr("stale"),
	})
	assert.True(t, domain.IsConflict(err), "got %v", err)
}

func TestOrchestrator_ExpectedVersionMatches(t *testing.T) {
	f := newFixture(t)
	t0 := f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", AssigneeID: "u1"})

	res, err := f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "start", ExpectedVersion: ptr(t0)})
	require.NoError(t, err)
	assert.NotEqual(t, t0, res.Version)
}

// racingStore lets another writer commit between the orchestrator's Load and Save.
type racingStore struct {
	ports.EntityStore
	once sync.Once
}

func (s *racingStore) Save(ctx context.Context, e *domain.Entity, expected string) (string, error) {
	s.once.Do(func() {
		current, err := s.EntityStore.Load(ctx, e.ID)
		if err == nil {
			_, _ = s.EntityStore.Save(ctx, current, "")
		}
	})
	return s.EntityStore.Save(ctx, e, expected)
}

func TestOrchestrator_StoreDetectedRace(t *testing.T) {
	provider, err := memory.NewProviderFromYAML(map[string]string{"v1": trackerManifest})
	require.NoError(t, err)
	inner := memory.NewStore()
	t0, err := inner.Save(context.Background(), &domain.Entity{ID: "T-1", TypeKind: "TaskType", TypeID: "bug", ManifestVersion: "v1", Snapshot: domain.EntitySnapshot{State: "new", AssigneeID: "u1"}}, "")
	require.NoError(t, err)

	orch := runtime.NewOrchestrator(provider, &racingStore{EntityStore: inner})
	_, err = orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "start", ExpectedVersion: ptr(t0)})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestOrchestrator_Resolution(t *testing.T) {
	tests := []struct {
		name       string
		resolution string
		bypass     bool
		wantErr    bool
	}{
		{"outside vocabulary", "invalid_code", false, true},
		{"missing", "", false, true},
		{"missing with bypass", "", true, false},
		{"declared", "fixed", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "active", AssigneeID: "u1"})

			res, err := f.orch.Transition(context.Background(), domain.TransitionRequest{
				EntityID:         "T-1",
				NewState:         "resolved",
				Resolution:       tt.resolution,
				BypassResolution: tt.bypass,
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err), "got %T", err)
				assert.Contains(t, err.Error(), "resolution")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "resolved", res.Snapshot.State)
			assert.Equal(t, tt.resolution, res.Snapshot.Resolution)
		})
	}
}

func TestOrchestrator_HookOrderAndContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", AssigneeID: "u1"})

	var calls []string
	var seen []map[string]any
	record := func(name string) registry.HookFunc {
		return func(ctx context.Context, hookCtx map[string]any) error {
			stored, err := f.store.Load(ctx, "T-1")
			require.NoError(t, err)
			calls = append(calls, name+"@"+stored.Snapshot.State)
			seen = append(seen, hookCtx)
			return nil
		}
	}
	f.orch.Registry().Register("audit_leave", record("leave"))
	f.orch.Registry().Register("audit_enter", record("enter"))

	_, err := f.orch.Transition(ctx, domain.TransitionRequest{EntityID: "T-1", Trigger: "start", Roles: []string{"dev"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"leave@new", "enter@active"}, calls)
	require.Len(t, seen, 2)
	assert.Equal(t, runtime.PhaseOnLeave, seen[0][registry.KeyPhase])
	assert.Equal(t, runtime.PhaseOnEnter, seen[1][registry.KeyPhase])
	assert.Equal(t, "T-1", seen[1][registry.KeyEntityID])
	assert.Equal(t, "new", seen[1][registry.KeyFromState])
	assert.Equal(t, "active", seen[1][registry.KeyToState])
	assert.Equal(t, "start", seen[1][registry.KeyTrigger])
	assert.Equal(t, []string{"dev"}, seen[1][registry.KeyRoles])
}

func TestOrchestrator_HookFailuresAreAbsorbed(t *testing.T) {
	var failed []*domain.HookEvent
	f := newFixture(t, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnHookFailed: func(_ context.Context, e *domain.HookEvent) { failed = append(failed, e) },
	}))
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", AssigneeID: "u1"})

	f.orch.Registry().Register("audit_leave", func(context.Context, map[string]any) error {
		return errors.New("audit backend down")
	})
	f.orch.Registry().Register("audit_enter", func(context.Context, map[string]any) error {
		panic("boom")
	})

	res, err := f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "start"})
	require.NoError(t, err)
	assert.Equal(t, "active", res.To)

	require.Len(t, failed, 2)
	assert.Equal(t, "audit_leave", failed[0].Action)
	assert.Equal(t, runtime.PhaseOnLeave, failed[0].Phase)
	assert.Equal(t, "audit_enter", failed[1].Action)
	assert.Equal(t, runtime.PhaseOnEnter, failed[1].Phase)
}

func TestOrchestrator_LifecycleHooks(t *testing.T) {
	var applied []*domain.TransitionEvent
	var rejected []*domain.RejectionEvent
	f := newFixture(t, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) { applied = append(applied, e) },
		OnRejected:   func(_ context.Context, e *domain.RejectionEvent) { rejected = append(rejected, e) },
	}))
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new", AssigneeID: "u1"})

	_, err := f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "nope"})
	require.Error(t, err)
	_, err = f.orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "start"})
	require.NoError(t, err)

	require.Len(t, rejected, 1)
	assert.Equal(t, "validation", rejected[0].Kind)
	assert.Equal(t, domain.EventTransitionRejected, rejected[0].Type)

	require.Len(t, applied, 1)
	assert.Equal(t, "new", applied[0].From)
	assert.Equal(t, "active", applied[0].To)
	require.NotNil(t, applied[0].Diff)
	require.NotNil(t, applied[0].Diff.State)
	assert.Equal(t, "active", *applied[0].Diff.State)
}

func TestOrchestrator_PermittedTriggers(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T-1", "bug", domain.EntitySnapshot{State: "new"})
	f.seed(t, "T-2", "bug", domain.EntitySnapshot{State: "resolved"})

	triggers, err := f.orch.PermittedTriggers(context.Background(), "T-1")
	require.NoError(t, err)
	require.Len(t, triggers, 2)
	assert.Equal(t, "start", triggers[0].Trigger)
	assert.Equal(t, "discard", triggers[1].Trigger)

	triggers, err = f.orch.PermittedTriggers(context.Background(), "T-2")
	require.NoError(t, err)
	assert.Empty(t, triggers, "close is guarded on verified_by")

	_, err = f.orch.PermittedTriggers(context.Background(), "ghost")
	assert.True(t, domain.IsNotFound(err))
}

func TestOrchestrator_Queries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	initial, err := f.orch.InitialState(ctx, "v1", "TaskType", "bug")
	require.NoError(t, err)
	assert.Equal(t, "new", initial)

	_, err = f.orch.InitialState(ctx, "v1", "TaskType", "orphan")
	assert.True(t, domain.IsValidation(err))

	ok, err := f.orch.IsValidParentChild(ctx, "v1", "TaskType", "epic", "bug")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.orch.IsValidParentChild(ctx, "v1", "TaskType", "bug", "epic")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.orch.Workflow(ctx, "v404", "TaskType", "bug")
	assert.True(t, domain.IsNotFound(err))
}

func TestOrchestrator_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.orch.Create(ctx, &domain.Entity{ID: "T-1", TypeKind: "TaskType", TypeID: "bug", ManifestVersion: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "new", created.Snapshot.State)
	assert.NotEmpty(t, created.Version)

	_, err = f.orch.Create(ctx, &domain.Entity{ID: "T-1", TypeKind: "TaskType", TypeID: "bug", ManifestVersion: "v1"})
	assert.True(t, domain.IsValidation(err), "ids are unique")

	_, err = f.orch.Create(ctx, &domain.Entity{ID: "T-2", TypeKind: "TaskType", TypeID: "bug", ManifestVersion: "v1", Snapshot: domain.EntitySnapshot{State: "archived"}})
	assert.True(t, domain.IsValidation(err))

	_, err = f.orch.Create(ctx, &domain.Entity{ID: "T-3", TypeKind: "TaskType", TypeID: "orphan", ManifestVersion: "v1"})
	assert.True(t, domain.IsValidation(err))
}

const parallelEdgesManifest = `
- kind: Workflow
  id: parallel
  states: [new, active]
  transitions:
    - {from: new, to: active, trigger: start, guard: assignee_required, on_enter: [notify_assignee]}
    - {from: new, to: active, trigger: force, on_leave: [audit_force_leave], on_enter: [audit_force]}
- kind: TaskType
  id: bug
  workflow_id: parallel
`

func TestOrchestrator_TriggerSelectsParallelEdge(t *testing.T) {
	provider, err := memory.NewProviderFromYAML(map[string]string{"v1": parallelEdgesManifest})
	require.NoError(t, err)
	store := memory.NewStore()
	orch := runtime.NewOrchestrator(provider, store)
	ctx := context.Background()

	var calls []string
	for _, name := range []string{"notify_assignee", "audit_force_leave", "audit_force"} {
		name := name
		orch.Registry().Register(name, func(context.Context, map[string]any) error {
			calls = append(calls, name)
			return nil
		})
	}

	seed := func(id string) {
		_, err := store.Save(ctx, &domain.Entity{ID: id, TypeKind: "TaskType", TypeID: "bug", ManifestVersion: "v1", Snapshot: domain.EntitySnapshot{State: "new"}}, "")
		require.NoError(t, err)
	}
	seed("T-1")
	seed("T-2")

	res, err := orch.Transition(ctx, domain.TransitionRequest{EntityID: "T-1", Trigger: "force"})
	require.NoError(t, err, "the force edge has no guard")
	assert.Equal(t, "force", res.Trigger)
	assert.Equal(t, "active", res.To)
	assert.Equal(t, []string{"audit_force_leave", "audit_force"}, calls)

	calls = nil
	_, err = orch.Transition(ctx, domain.TransitionRequest{EntityID: "T-2", Trigger: "start"})
	require.Error(t, err)
	assert.True(t, domain.IsPolicyDenied(err))
	assert.Contains(t, err.Error(), "assignee required")
	assert.Empty(t, calls)
}

const numericGuardManifest = `
- kind: Workflow
  id: estimate
  states: [new, planned]
  transitions:
    - {from: new, to: planned, trigger: plan, guard: {kind: field_equals, field: custom_fields.points, value: 3}}
- kind: TaskType
  id: story
  workflow_id: estimate
`

func TestOrchestrator_NumericGuardAcrossStores(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	stores := map[string]ports.EntityStore{
		"memory": memory.NewStore(),
		"file":   file.NewStore(t.TempDir()),
		"redis":  redisstore.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()})),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			provider, err := memory.NewProviderFromYAML(map[string]string{"v1": numericGuardManifest})
			require.NoError(t, err)
			orch := runtime.NewOrchestrator(provider, store)
			ctx := context.Background()

			for id, points := range map[string]any{"S-3": 3, "S-5": 5} {
				_, err := store.Save(ctx, &domain.Entity{
					ID: id, TypeKind: "TaskType", TypeID: "story", ManifestVersion: "v1",
					Snapshot: domain.EntitySnapshot{State: "new", CustomFields: map[string]any{"points": points}},
				}, "")
				require.NoError(t, err)
			}

			res, err := orch.Transition(ctx, domain.TransitionRequest{EntityID: "S-3", Trigger: "plan"})
			require.NoError(t, err)
			assert.Equal(t, "planned", res.To)

			_, err = orch.Transition(ctx, domain.TransitionRequest{EntityID: "S-5", Trigger: "plan"})
			require.Error(t, err)
			assert.True(t, domain.IsPolicyDenied(err))
		})
	}
}

func TestOrchestrator_StoreRaceSkipsOnEnter(t *testing.T) {
	provider, err := memory.NewProviderFromYAML(map[string]string{"v1": trackerManifest})
	require.NoError(t, err)
	inner := memory.NewStore()
	t0, err := inner.Save(context.Background(), &domain.Entity{ID: "T-1", TypeKind: "TaskType", TypeID: "bug", ManifestVersion: "v1", Snapshot: domain.EntitySnapshot{State: "new", AssigneeID: "u1"}}, "")
	require.NoError(t, err)

	orch := runtime.NewOrchestrator(provider, &racingStore{EntityStore: inner})
	var calls []string
	for _, name := range []string{"audit_leave", "audit_enter", "notify_assignee"} {
		name := name
		orch.Registry().Register(name, func(context.Context, map[string]any) error {
			calls = append(calls, name)
			return nil
		})
	}

	_, err = orch.Transition(context.Background(), domain.TransitionRequest{EntityID: "T-1", Trigger: "start", ExpectedVersion: ptr(t0)})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, []string{"audit_leave"}, calls, "on_leave runs before the write, on_enter only after a commit")
}
