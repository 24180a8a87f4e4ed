package agent

import (
	"context"
	"fmt"

	"github.com/pagbank/agent-router/pkg/config"
	"github.com/pagbank/agent-router/pkg/store"
)

// ConfigSource is the narrow slice of the Config Store the factory needs:
// resolve an explicit or active version, and know when to drop its cache.
type ConfigSource interface {
	GetVersion(ctx context.Context, agentID string, version int) (*store.Version, error)
	GetActive(ctx context.Context, agentID string) (*store.Version, error)
	Generation() uint64
}

// ABResolver is the narrow slice of the A/B Test Manager the factory
// needs (spec §4.4: "via C9's A/B assignment for the given user_id").
type ABResolver interface {
	AssignForAgent(ctx context.Context, agentID, userID string) (version int, ok bool, err error)
}

type cacheEntry struct {
	doc *config.Document
	gen uint64
}

// Factory implements create_agent (spec §4.4). Handles are cacheable per
// (agent_id, version) — cache entries are invalidated when the Config
// Store's generation advances (Design Notes §9: "hot reload ... by
// invalidating factory caches on Config Store generation change").
type Factory struct {
	configs ConfigSource
	ab      ABResolver

	cache map[string]cacheEntry // key: agentID + "@" + version
}

// New builds an Agent Factory over a Config Store and an A/B Test Manager.
func New(configs ConfigSource, ab ABResolver) *Factory {
	return &Factory{configs: configs, ab: ab, cache: make(map[string]cacheEntry)}
}

func cacheKey(agentID string, version int) string {
	return fmt.Sprintf("%s@%d", agentID, version)
}

// CreateAgent resolves a version (explicit, else A/B assignment for
// userID, else the Config Store's active version), loads its document,
// and builds a tagged-union Handle bound to sessionID/userID (spec §4.4).
// version and userID are both optional; pass 0 / "" to omit.
func (f *Factory) CreateAgent(ctx context.Context, agentID string, version int, sessionID, userID string) (*Handle, error) {
	resolvedVersion, doc, err := f.resolve(ctx, agentID, version, userID)
	if err != nil {
		return nil, err
	}

	binding := Binding{AgentID: agentID, Version: resolvedVersion, SessionID: sessionID, UserID: userID, Doc: doc}

	switch {
	case doc.Workflow != nil:
		return f.buildWorkflow(ctx, binding, sessionID, userID)
	case doc.Team != nil:
		return f.buildTeam(ctx, binding, sessionID, userID)
	default:
		return &Handle{Kind: KindAgent, Agent: &AgentVariant{Binding: binding}}, nil
	}
}

// resolve returns the version to use and its parsed document, consulting
// the per-(agent_id,version) cache first.
func (f *Factory) resolve(ctx context.Context, agentID string, version int, userID string) (int, *config.Document, error) {
	if version == 0 {
		resolved, err := f.resolveVersion(ctx, agentID, userID)
		if err != nil {
			return 0, nil, err
		}
		version = resolved
	}

	currentGen := f.configs.Generation()
	key := cacheKey(agentID, version)
	if entry, ok := f.cache[key]; ok && entry.gen == currentGen {
		return version, entry.doc, nil
	}

	v, err := f.configs.GetVersion(ctx, agentID, version)
	if err != nil {
		return 0, nil, fmt.Errorf("agent: resolve %s@%d: %w", agentID, version, err)
	}
	doc, err := config.Parse(v.ConfigBlob)
	if err != nil {
		return 0, nil, fmt.Errorf("agent: parse config for %s@%d: %w", agentID, version, err)
	}

	f.cache[key] = cacheEntry{doc: doc, gen: currentGen}
	return version, doc, nil
}

// resolveVersion implements spec §4.4's "if version is omitted" rule:
// prefer a live A/B assignment for userID, otherwise the active version.
func (f *Factory) resolveVersion(ctx context.Context, agentID, userID string) (int, error) {
	if userID != "" && f.ab != nil {
		if v, ok, err := f.ab.AssignForAgent(ctx, agentID, userID); err != nil {
			return 0, fmt.Errorf("agent: ab assignment for %s: %w", agentID, err)
		} else if ok {
			return v, nil
		}
	}

	active, err := f.configs.GetActive(ctx, agentID)
	if err != nil {
		return 0, fmt.Errorf("agent: active version for %s: %w", agentID, err)
	}
	return active.Version, nil
}

func (f *Factory) buildTeam(ctx context.Context, binding Binding, sessionID, userID string) (*Handle, error) {
	members := make([]*Handle, 0, len(binding.Doc.Team.Members))
	for _, memberID := range binding.Doc.Team.Members {
		member, err := f.CreateAgent(ctx, memberID, 0, sessionID, userID)
		if err != nil {
			return nil, fmt.Errorf("agent: resolve team member %s: %w", memberID, err)
		}
		members = append(members, member)
	}
	return &Handle{Kind: KindTeam, Team: &TeamVariant{Binding: binding, Mode: binding.Doc.Team.Mode, Members: members}}, nil
}

func (f *Factory) buildWorkflow(ctx context.Context, binding Binding, sessionID, userID string) (*Handle, error) {
	steps := make([]*Handle, 0, len(binding.Doc.Workflow.Steps))
	for _, stepID := range binding.Doc.Workflow.Steps {
		step, err := f.CreateAgent(ctx, stepID, 0, sessionID, userID)
		if err != nil {
			return nil, fmt.Errorf("agent: resolve workflow step %s: %w", stepID, err)
		}
		steps = append(steps, step)
	}
	return &Handle{Kind: KindWorkflow, Workflow: &WorkflowVariant{Binding: binding, Steps: steps}}, nil
}
