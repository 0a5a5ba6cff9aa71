package rules

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// CustomEngine evaluates operator-defined CEL rules over feature vectors.
// Each rule is a boolean expression over the feature map `f` with a fixed
// boost and reason; they fire after the built-in table, in load order, and
// their boosts accumulate the same way.
type CustomEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []*compiledRule
}

type compiledRule struct {
	cfg     *domain.RuleConfig
	program cel.Program
}

// NewCustomEngine creates a CEL engine with the feature map declared.
func NewCustomEngine() (*CustomEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("f", cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CustomEngine{env: env}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *CustomEngine) ValidateRule(cfg *domain.RuleConfig) error {
	_, err := e.compile(cfg)
	return err
}

// LoadRule compiles and appends a rule, replacing any loaded rule with the
// same ID in place so evaluation order stays stable.
func (e *CustomEngine) LoadRule(cfg *domain.RuleConfig) error {
	compiled, err := e.compile(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, existing := range e.compiled {
		if existing.cfg.ID == cfg.ID {
			e.compiled[i] = compiled
			return nil
		}
	}
	e.compiled = append(e.compiled, compiled)
	return nil
}

// ReloadRules replaces all loaded rules with the given configs, preserving
// their order. Disabled configs are skipped.
func (e *CustomEngine) ReloadRules(configs []*domain.RuleConfig) error {
	loaded := make([]*compiledRule, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compile(cfg)
		if err != nil {
			return err
		}
		loaded = append(loaded, compiled)
	}

	e.mu.Lock()
	e.compiled = loaded
	e.mu.Unlock()
	return nil
}

// Evaluate applies the loaded rules for one entity class. Rules whose
// expressions error at runtime are skipped with a warning; the predicate
// contract is pure, so an error means a bad expression, not bad data.
func (e *CustomEngine) Evaluate(class domain.EntityClass, v domain.FeatureVector) domain.RuleOutcome {
	e.mu.RLock()
	rules := make([]*compiledRule, len(e.compiled))
	copy(rules, e.compiled)
	e.mu.RUnlock()

	out := domain.RuleOutcome{Reasons: []string{}}
	if len(rules) == 0 {
		return out
	}

	activation := map[string]any{"f": map[string]float64(v)}
	for _, r := range rules {
		if r.cfg.Class != class {
			continue
		}
		val, _, err := r.program.Eval(activation)
		if err != nil {
			slog.Warn("custom rule evaluation failed",
				"rule_id", r.cfg.ID,
				"error", err,
			)
			continue
		}
		if fired, ok := val.(types.Bool); ok && bool(fired) {
			out.Boost += r.cfg.Boost
			out.Reasons = append(out.Reasons, r.cfg.Reason)
		}
	}
	return out
}

// RulesCount returns the number of loaded rules.
func (e *CustomEngine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// LoadedRules returns the loaded rule configurations in evaluation order.
func (e *CustomEngine) LoadedRules() []*domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	configs := make([]*domain.RuleConfig, len(e.compiled))
	for i, r := range e.compiled {
		configs[i] = r.cfg
	}
	return configs
}

func (e *CustomEngine) compile(cfg *domain.RuleConfig) (*compiledRule, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rule config is required")
	}
	if cfg.Boost < 0 {
		return nil, fmt.Errorf("rule %s: boost must be non-negative", cfg.ID)
	}
	if cfg.Class != domain.ClassReview && cfg.Class != domain.ClassTransaction {
		return nil, fmt.Errorf("rule %s: unknown entity class %q", cfg.ID, cfg.Class)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}
	return &compiledRule{cfg: cfg, program: program}, nil
}
