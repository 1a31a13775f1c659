// Package advice produces deterministic tax-saving suggestions from
// CEL rules evaluated over a profile and its two regime outcomes.
//
// Suggestions are advisory: they ride along on the comparison result but
// never feed back into the computed liability. CEL activations use float64
// views of the decimal amounts, which is fine at this precision for
// "invest X more" estimates.
package advice

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/myna/internal/calc"
	"github.com/opensource-finance/myna/internal/domain"
	"github.com/shopspring/decimal"
)

// Rule is one suggestion rule. When evaluates to a boolean; Saving, when
// present, evaluates to the estimated rupee saving.
type Rule struct {
	ID      string `yaml:"id" json:"id"`
	Message string `yaml:"message" json:"message"`

	// When is the applicability predicate, e.g.
	// "section_80c < 150000.0 && net_taxable_old > 250000.0".
	When string `yaml:"when" json:"when"`

	// Saving estimates the rupee benefit, e.g.
	// "(150000.0 - section_80c) * marginal_rate_old". Empty means zero.
	Saving string `yaml:"saving,omitempty" json:"saving,omitempty"`

	Enabled bool `yaml:"enabled" json:"enabled"`
}

// compiledRule holds the pre-compiled CEL programs for one rule.
type compiledRule struct {
	rule   Rule
	when   cel.Program
	saving cel.Program // nil when no saving expression
}

// Engine is the CEL-based suggestion engine.
type Engine struct {
	mu         sync.RWMutex
	env        *cel.Env
	compiled   map[string]*compiledRule
	maxWorkers int
}

// NewEngine creates a suggestion engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	// Profile and outcome variables exposed to rule expressions.
	env, err := cel.NewEnv(
		cel.Variable("gross_salary", cel.DoubleType),
		cel.Variable("section_80c", cel.DoubleType),
		cel.Variable("section_80ccc", cel.DoubleType),
		cel.Variable("section_80d", cel.DoubleType),
		cel.Variable("section_80e", cel.DoubleType),
		cel.Variable("section_80g", cel.DoubleType),
		cel.Variable("section_80tta", cel.DoubleType),
		cel.Variable("savings_interest", cel.DoubleType),
		cel.Variable("property_loan_interest", cel.DoubleType),
		cel.Variable("net_taxable_old", cel.DoubleType),
		cel.Variable("net_taxable_new", cel.DoubleType),
		cel.Variable("total_tax_old", cel.DoubleType),
		cel.Variable("total_tax_new", cel.DoubleType),
		cel.Variable("tax_saving", cel.DoubleType),
		cel.Variable("marginal_rate_old", cel.DoubleType),
		cel.Variable("marginal_rate_new", cel.DoubleType),
		cel.Variable("recommended_regime", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:        env,
		compiled:   make(map[string]*compiledRule),
		maxWorkers: maxWorkers,
	}, nil
}

// LoadRule compiles and loads one rule.
func (e *Engine) LoadRule(rule Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compile(rule)
	if err != nil {
		return err
	}
	e.compiled[rule.ID] = compiled
	return nil
}

// LoadRules compiles and loads the enabled rules from a slice.
func (e *Engine) LoadRules(rules []Rule) error {
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		if err := e.LoadRule(r); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) compile(rule Rule) (*compiledRule, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}
	if rule.When == "" {
		return nil, fmt.Errorf("rule %s: when expression is required", rule.ID)
	}

	whenProg, err := e.compileExpr(rule.ID, rule.When)
	if err != nil {
		return nil, err
	}

	cr := &compiledRule{rule: rule, when: whenProg}
	if rule.Saving != "" {
		cr.saving, err = e.compileExpr(rule.ID, rule.Saving)
		if err != nil {
			return nil, err
		}
	}
	return cr, nil
}

func (e *Engine) compileExpr(ruleID, expr string) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule %s: compile failed: %w", ruleID, issues.Err())
	}
	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule %s: program creation failed: %w", ruleID, err)
	}
	return prog, nil
}

// Evaluate runs every loaded rule against the profile and comparison and
// returns the applicable suggestions, ordered by estimated saving
// descending. Rules that error are skipped; advice must never fail the
// comparison it decorates.
func (e *Engine) Evaluate(ctx context.Context, p *domain.FinancialProfile, result *domain.ComparisonResult, oldRS, newRS *domain.RegimeRuleSet) []domain.Suggestion {
	e.mu.RLock()
	rules := make([]*compiledRule, 0, len(e.compiled))
	for _, r := range e.compiled {
		rules = append(rules, r)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := map[string]any{
		"gross_salary":           p.Salary.GrossSalary.InexactFloat64(),
		"section_80c":            p.Salary.Section80C.InexactFloat64(),
		"section_80ccc":          p.Salary.Section80CCC.InexactFloat64(),
		"section_80d":            p.Salary.Section80D.InexactFloat64(),
		"section_80e":            p.Salary.Section80E.InexactFloat64(),
		"section_80g":            p.Salary.Section80G.InexactFloat64(),
		"section_80tta":          p.Salary.Section80TTA.InexactFloat64(),
		"savings_interest":       p.OtherIncome.SavingsInterest.InexactFloat64(),
		"property_loan_interest": p.Property.LoanInterest.InexactFloat64(),
		"net_taxable_old":        result.OldOutcome.NetTaxableIncome.InexactFloat64(),
		"net_taxable_new":        result.NewOutcome.NetTaxableIncome.InexactFloat64(),
		"total_tax_old":          result.OldOutcome.TotalTax.InexactFloat64(),
		"total_tax_new":          result.NewOutcome.TotalTax.InexactFloat64(),
		"tax_saving":             result.TaxSaving.InexactFloat64(),
		"marginal_rate_old":      calc.MarginalRate(oldRS, result.OldOutcome.NetTaxableIncome).InexactFloat64(),
		"marginal_rate_new":      calc.MarginalRate(newRS, result.NewOutcome.NetTaxableIncome).InexactFloat64(),
		"recommended_regime":     string(result.RecommendedRegime),
	}

	// Bounded parallel evaluation, same worker-pool shape as the rule
	// engine in the evaluation path.
	suggestions := make([]*domain.Suggestion, len(rules))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *compiledRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			suggestions[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	var out []domain.Suggestion
	for _, s := range suggestions {
		if s != nil {
			out = append(out, *s)
		}
	}
	sortBySaving(out)
	return out
}

// evaluateRule returns a suggestion when the rule applies, nil otherwise.
func (e *Engine) evaluateRule(r *compiledRule, activation map[string]any) *domain.Suggestion {
	out, _, err := r.when.Eval(activation)
	if err != nil || !toBool(out) {
		return nil
	}

	saving := decimal.Zero
	if r.saving != nil {
		val, _, err := r.saving.Eval(activation)
		if err == nil {
			saving = decimal.NewFromFloat(toDouble(val)).Round(2)
		}
	}
	if saving.IsNegative() {
		saving = decimal.Zero
	}

	return &domain.Suggestion{
		RuleID:          r.rule.ID,
		Message:         r.rule.Message,
		EstimatedSaving: saving,
	}
}

func toBool(val ref.Val) bool {
	b, ok := val.(types.Bool)
	return ok && bool(b)
}

func toDouble(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	}
	return 0
}

func sortBySaving(s []domain.Suggestion) {
	// Rule iteration order comes from a map; tie-break on ID so output is
	// deterministic across runs.
	sort.Slice(s, func(i, j int) bool {
		if !s[i].EstimatedSaving.Equal(s[j].EstimatedSaving) {
			return s[i].EstimatedSaving.GreaterThan(s[j].EstimatedSaving)
		}
		return s[i].RuleID < s[j].RuleID
	})
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*compiledRule)
	return nil
}
