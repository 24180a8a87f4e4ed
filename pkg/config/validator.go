package config

import "fmt"

// Validator validates a configuration document comprehensively with clear,
// field-scoped error messages (adapted from the teacher's ordered
// fail-fast validator: agent → model → storage → team/workflow).
type Validator struct {
	doc *Document
}

// NewValidator creates a validator for the given document.
func NewValidator(doc *Document) *Validator {
	return &Validator{doc: doc}
}

// ValidateAll performs comprehensive validation, stopping at the first error.
func (v *Validator) ValidateAll() error {
	if err := v.validateAgent(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}
	if err := v.validateModel(); err != nil {
		return fmt.Errorf("model validation failed: %w", err)
	}
	if err := v.validateStorage(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := v.validateTeamOrWorkflow(); err != nil {
		return fmt.Errorf("team/workflow validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateAgent() error {
	a := v.doc.Agent
	if a.AgentID == "" {
		return NewValidationError("agent.agent_id", ErrMissingRequiredField)
	}
	if a.Version < 1 {
		return NewValidationError("agent.version", fmt.Errorf("%w: version must be >= 1, got %d", ErrInvalidValue, a.Version))
	}
	if a.Name == "" {
		return NewValidationError("agent.name", ErrMissingRequiredField)
	}
	if a.Role == "" {
		return NewValidationError("agent.role", ErrMissingRequiredField)
	}
	if v.doc.Instructions == "" {
		return NewValidationError("instructions", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateModel() error {
	m := v.doc.Model
	if m.Provider == "" {
		return NewValidationError("model.provider", ErrMissingRequiredField)
	}
	if m.ID == "" {
		return NewValidationError("model.id", ErrMissingRequiredField)
	}
	if m.Temperature < 0 || m.Temperature > 2 {
		return NewValidationError("model.temperature", fmt.Errorf("%w: must be within [0,2], got %v", ErrInvalidValue, m.Temperature))
	}
	if m.MaxTokens <= 0 {
		return NewValidationError("model.max_tokens", fmt.Errorf("%w: must be positive, got %d", ErrInvalidValue, m.MaxTokens))
	}
	return nil
}

func (v *Validator) validateStorage() error {
	s := v.doc.Storage
	if s.Type == "" {
		return NewValidationError("storage.type", ErrMissingRequiredField)
	}
	if s.TableName == "" {
		return NewValidationError("storage.table_name", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateTeamOrWorkflow() error {
	if v.doc.Team != nil {
		t := v.doc.Team
		if t.Mode != TeamModeRoute && t.Mode != TeamModeCoordinate {
			return NewValidationError("team.mode", fmt.Errorf("%w: must be %q or %q, got %q", ErrInvalidValue, TeamModeRoute, TeamModeCoordinate, t.Mode))
		}
		if len(t.Members) == 0 {
			return NewValidationError("team.members", fmt.Errorf("%w: at least one member required", ErrMissingRequiredField))
		}
	}
	if v.doc.Workflow != nil {
		if len(v.doc.Workflow.Steps) == 0 {
			return NewValidationError("workflow.steps", fmt.Errorf("%w: at least one step required", ErrMissingRequiredField))
		}
	}
	return nil
}

// Validate is a convenience wrapper equivalent to NewValidator(doc).ValidateAll().
func Validate(doc *Document) error {
	return NewValidator(doc).ValidateAll()
}
