package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensource-finance/myna/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File schema for YAML rule sets. Amounts and rates are plain YAML
// numbers; they are converted to decimals after parsing.

type ruleSetFile struct {
	Regime         string     `yaml:"regime"`
	AssessmentYear string     `yaml:"assessment_year"`
	Slabs          []slabFile `yaml:"slabs"`

	StandardDeduction float64         `yaml:"standard_deduction"`
	SalaryExemptions  []string        `yaml:"salary_exemptions"`
	Deductions        []deductionFile `yaml:"deductions"`

	PropertyLoanInterestCap  float64 `yaml:"property_loan_interest_cap"`
	SavingsInterestExemption float64 `yaml:"savings_interest_exemption"`

	CapitalGainsRates []gainsRateFile `yaml:"capital_gains_rates"`

	RebateThreshold float64 `yaml:"rebate_threshold"`
	RebateCap       float64 `yaml:"rebate_cap"`
	CessRate        float64 `yaml:"cess_rate"`
}

type slabFile struct {
	Lower float64  `yaml:"lower"`
	Upper *float64 `yaml:"upper"`
	Rate  float64  `yaml:"rate"`
}

type deductionFile struct {
	Section string   `yaml:"section"`
	Cap     *float64 `yaml:"cap"`
}

type gainsRateFile struct {
	Class     string  `yaml:"class"`
	Rate      float64 `yaml:"rate"`
	Exemption float64 `yaml:"exemption"`
}

func (f *ruleSetFile) toRuleSet() *domain.RegimeRuleSet {
	rs := &domain.RegimeRuleSet{
		Regime:                   domain.RegimeKind(f.Regime),
		AssessmentYear:           f.AssessmentYear,
		StandardDeduction:        decimal.NewFromFloat(f.StandardDeduction),
		PropertyLoanInterestCap:  decimal.NewFromFloat(f.PropertyLoanInterestCap),
		SavingsInterestExemption: decimal.NewFromFloat(f.SavingsInterestExemption),
		RebateThreshold:          decimal.NewFromFloat(f.RebateThreshold),
		RebateCap:                decimal.NewFromFloat(f.RebateCap),
		CessRate:                 decimal.NewFromFloat(f.CessRate),
	}

	for _, s := range f.Slabs {
		slab := domain.Slab{
			Lower: decimal.NewFromFloat(s.Lower),
			Rate:  decimal.NewFromFloat(s.Rate),
		}
		if s.Upper != nil {
			u := decimal.NewFromFloat(*s.Upper)
			slab.Upper = &u
		}
		rs.Slabs = append(rs.Slabs, slab)
	}

	for _, e := range f.SalaryExemptions {
		rs.SalaryExemptions = append(rs.SalaryExemptions, domain.SalaryExemption(e))
	}

	for _, d := range f.Deductions {
		dc := domain.DeductionCap{Section: domain.DeductionSection(d.Section)}
		if d.Cap != nil {
			c := decimal.NewFromFloat(*d.Cap)
			dc.Cap = &c
		}
		rs.Deductions = append(rs.Deductions, dc)
	}

	for _, g := range f.CapitalGainsRates {
		rs.CapitalGainsRates = append(rs.CapitalGainsRates, domain.CapitalGainsRate{
			Class:     domain.CapitalGainsClass(g.Class),
			Rate:      decimal.NewFromFloat(g.Rate),
			Exemption: decimal.NewFromFloat(g.Exemption),
		})
	}

	return rs
}

// LoadFile parses one YAML rule set file and validates it.
func LoadFile(path string) (*domain.RegimeRuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set file %s: %w", path, err)
	}

	var f ruleSetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rule set file %s: %w", path, err)
	}

	rs := f.toRuleSet()
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("rule set file %s: %w", path, err)
	}
	return rs, nil
}

// LoadDir parses every .yaml/.yml file in a directory.
func LoadDir(dir string) ([]*domain.RegimeRuleSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set directory %s: %w", dir, err)
	}

	var sets []*domain.RegimeRuleSet
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		rs, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

// Load builds a registry from the builtin rule sets, then applies the
// optional override directory on top. Directory sets win for matching
// (regime, year) pairs.
func Load(cfg domain.RulesConfig) (*Registry, error) {
	reg := NewRegistry()
	for _, rs := range BuiltinRuleSets() {
		if err := reg.Register(rs); err != nil {
			return nil, err
		}
	}

	if cfg.Dir != "" {
		sets, err := LoadDir(cfg.Dir)
		if err != nil {
			return nil, err
		}
		for _, rs := range sets {
			if err := reg.Register(rs); err != nil {
				return nil, err
			}
		}
	}

	if _, _, err := reg.Pair(cfg.DefaultAssessmentYear); err != nil {
		return nil, fmt.Errorf("default assessment year %s incomplete: %w",
			cfg.DefaultAssessmentYear, err)
	}

	return reg, nil
}
