// Package config defines the agent configuration document — the structured
// blob stored in an AgentConfig version's config_blob column (spec §3, §6)
// — along with its loader and validator. The Config Store (pkg/store) is the
// source of truth for which version is active; this package only knows how
// to parse and validate one document.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the mandatory structure of an agent/team/workflow configuration
// blob (spec §6): identity, model parameters, instructions, tool list,
// knowledge filter, storage binding, memory policy, escalation triggers.
type Document struct {
	Agent        AgentIdentity          `yaml:"agent" json:"agent"`
	Model        ModelConfig            `yaml:"model" json:"model"`
	Instructions string                 `yaml:"instructions" json:"instructions"`
	Tools        []string               `yaml:"tools,omitempty" json:"tools,omitempty"`
	Knowledge    KnowledgeFilter        `yaml:"knowledge_filter,omitempty" json:"knowledge_filter,omitempty"`
	Storage      StorageBinding         `yaml:"storage" json:"storage"`
	Memory       MemoryPolicy           `yaml:"memory,omitempty" json:"memory,omitempty"`
	Escalation   EscalationTriggers     `yaml:"escalation_triggers,omitempty" json:"escalation_triggers,omitempty"`
	Team         *TeamConfig            `yaml:"team,omitempty" json:"team,omitempty"`
	Workflow     *WorkflowConfig        `yaml:"workflow,omitempty" json:"workflow,omitempty"`
	Extra        map[string]interface{} `yaml:"-" json:"-"`
}

// AgentIdentity is the agent{...} block of the document.
type AgentIdentity struct {
	AgentID     string `yaml:"agent_id" json:"agent_id"`
	Version     int    `yaml:"version" json:"version"`
	Name        string `yaml:"name" json:"name"`
	Role        string `yaml:"role" json:"role"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ModelConfig is the model{...} block.
type ModelConfig struct {
	Provider    string  `yaml:"provider" json:"provider"`
	ID          string  `yaml:"id" json:"id"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// KnowledgeFilter narrows the Knowledge Gateway's search to this agent's domain.
type KnowledgeFilter struct {
	BusinessUnit string   `yaml:"business_unit,omitempty" json:"business_unit,omitempty"`
	ProductType  []string `yaml:"product_type,omitempty" json:"product_type,omitempty"`
	Audience     []string `yaml:"audience,omitempty" json:"audience,omitempty"`
	Complexity   []string `yaml:"complexity,omitempty" json:"complexity,omitempty"`
}

// StorageBinding is the storage{...} block controlling where session/turn data lands.
type StorageBinding struct {
	Type             string `yaml:"type" json:"type"`
	TableName        string `yaml:"table_name" json:"table_name"`
	AutoUpgradeSchema bool  `yaml:"auto_upgrade_schema,omitempty" json:"auto_upgrade_schema,omitempty"`
}

// MemoryPolicy is the memory{...} block.
type MemoryPolicy struct {
	AddHistoryToMessages bool `yaml:"add_history_to_messages,omitempty" json:"add_history_to_messages,omitempty"`
	NumHistoryRuns       int  `yaml:"num_history_runs,omitempty" json:"num_history_runs,omitempty"`
}

// EscalationTriggers is the escalation_triggers{...} block: numeric and
// boolean thresholds that gate specialist escalation behavior (spec §4.7).
type EscalationTriggers struct {
	HighValuePix         float64 `yaml:"high_value_pix,omitempty" json:"high_value_pix,omitempty"`
	HighValueAnticipation float64 `yaml:"high_value_anticipation,omitempty" json:"high_value_anticipation,omitempty"`
	AlwaysEscalateCardSecurity bool `yaml:"always_escalate_card_security,omitempty" json:"always_escalate_card_security,omitempty"`
}

// TeamConfig is present when the document describes a Team (spec §4.4):
// mode ∈ {route, coordinate} plus member agent ids resolved through the
// Config Store, never owned directly (Design Notes §9: no ownership cycles).
type TeamConfig struct {
	Mode    string   `yaml:"mode" json:"mode"`
	Members []string `yaml:"members" json:"members"`
}

// WorkflowConfig is present when the document describes a Workflow: a
// sequential list of step agent ids sharing one state bag.
type WorkflowConfig struct {
	Steps []string `yaml:"steps" json:"steps"`
}

const (
	TeamModeRoute      = "route"
	TeamModeCoordinate = "coordinate"
)

// Parse decodes a config document from either YAML or JSON, sniffing the
// format from the first non-whitespace byte (spec §6: "YAML or JSON").
func Parse(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, NewLoadError("document", fmt.Errorf("%w: empty body", ErrInvalidDocument))
	}

	// Environment variables (${VAR} / $VAR) are expanded before decoding;
	// storage credentials and provider keys are commonly injected this way,
	// and an unexpanded ${VAR} is not valid YAML inside a flow mapping.
	expanded := ExpandEnv(trimmed)

	doc := &Document{}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(expanded, doc); err != nil {
			return nil, NewLoadError("document", fmt.Errorf("%w: %v", ErrInvalidDocument, err))
		}
	} else {
		if err := yaml.Unmarshal(expanded, doc); err != nil {
			return nil, NewLoadError("document", fmt.Errorf("%w: %v", ErrInvalidDocument, err))
		}
	}

	return doc, nil
}
