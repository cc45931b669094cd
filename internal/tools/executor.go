package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liubx8864/supportloop/internal/llm"
	"github.com/liubx8864/supportloop/internal/pkg/logger"
	"go.uber.org/zap"
)

// Executor validates tool input against the declared schema and dispatches to
// the registered handler.
type Executor struct {
	registry *Registry
	logger   *logger.Logger
}

// NewExecutor creates an executor over a registry.
func NewExecutor(registry *Registry, log *logger.Logger) *Executor {
	return &Executor{registry: registry, logger: log}
}

// Execute runs one tool-use request and returns the matching tool-result
// block. Unknown tools and schema violations fail closed: the error goes
// back to the model as an is_error result so it can recover conversationally.
// Only handler (infrastructure) errors are returned as Go errors.
func (e *Executor) Execute(ctx context.Context, use *llm.ToolUseBlock) (llm.ContentBlock, error) {
	def, handler, ok := e.registry.lookup(use.Name)
	if !ok {
		e.logger.Warn("model requested unknown tool", zap.String("tool", use.Name))
		return errorResult(use.ID, fmt.Sprintf("unknown tool: %s", use.Name)), nil
	}

	if err := validateInput(def.InputSchema, use.Input); err != nil {
		e.logger.Warn("tool input failed validation",
			zap.String("tool", use.Name),
			zap.Error(err),
		)
		return errorResult(use.ID, fmt.Sprintf("invalid input: %v", err)), nil
	}

	result, err := handler(ctx, use.Input)
	if err != nil {
		return llm.ContentBlock{}, fmt.Errorf("tool %s failed: %w", use.Name, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return llm.ContentBlock{}, fmt.Errorf("tool %s produced unserializable result: %w", use.Name, err)
	}

	e.logger.Debug("tool executed",
		zap.String("tool", use.Name),
		zap.String("tool_use_id", use.ID),
	)

	return llm.NewToolResultBlock(use.ID, string(payload), false), nil
}

func errorResult(toolUseID, message string) llm.ContentBlock {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return llm.NewToolResultBlock(toolUseID, string(payload), true)
}

// validateInput checks input against a JSON-schema-shaped declaration:
// required fields must be present and properties must match their declared
// primitive type. Unknown fields are rejected.
func validateInput(schema map[string]interface{}, input map[string]interface{}) error {
	props, _ := schema["properties"].(map[string]interface{})

	if required, ok := schema["required"].([]interface{}); ok {
		for _, field := range required {
			name, _ := field.(string)
			if _, present := input[name]; !present {
				return fmt.Errorf("missing required field %q", name)
			}
		}
	}

	for name, value := range input {
		propRaw, known := props[name]
		if !known {
			return fmt.Errorf("unexpected field %q", name)
		}

		prop, _ := propRaw.(map[string]interface{})
		declared, _ := prop["type"].(string)
		if declared == "" {
			continue
		}
		if err := checkType(name, declared, value); err != nil {
			return err
		}

		if enum, ok := prop["enum"].([]interface{}); ok {
			if err := checkEnum(name, enum, value); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkType(name, declared string, value interface{}) error {
	ok := false
	switch declared {
	case "string":
		_, ok = value.(string)
	case "number":
		_, ok = value.(float64)
	case "integer":
		// JSON numbers decode as float64; accept whole values.
		if f, isFloat := value.(float64); isFloat {
			ok = f == float64(int64(f))
		}
	case "boolean":
		_, ok = value.(bool)
	default:
		ok = true
	}

	if !ok {
		return fmt.Errorf("field %q must be of type %s", name, declared)
	}
	return nil
}

func checkEnum(name string, enum []interface{}, value interface{}) error {
	for _, allowed := range enum {
		if allowed == value {
			return nil
		}
	}
	return fmt.Errorf("field %q must be one of the declared values", name)
}
