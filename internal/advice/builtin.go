package advice

// BuiltinRules are the stock suggestions. Statutory amounts here mirror the
// AY 2024-25 old-regime caps; custom rule files can replace them per
// deployment.
func BuiltinRules() []Rule {
	return []Rule{
		{
			ID:      "sec-80c-headroom",
			Message: "Unused Section 80C limit: investing the remainder in PPF, ELSS or EPF reduces old-regime taxable income.",
			When:    "section_80c < 150000.0 && net_taxable_old > 250000.0",
			Saving:  "(150000.0 - section_80c) * marginal_rate_old",
			Enabled: true,
		},
		{
			ID:      "sec-80d-health-cover",
			Message: "Health insurance premium under Section 80D is below the 25,000 cap.",
			When:    "section_80d < 25000.0 && net_taxable_old > 250000.0",
			Saving:  "(25000.0 - section_80d) * marginal_rate_old",
			Enabled: true,
		},
		{
			ID:      "sec-80tta-unclaimed",
			Message: "Savings account interest qualifies for Section 80TTA but no deduction was declared.",
			When:    "savings_interest > 0.0 && section_80tta == 0.0",
			Saving:  "(savings_interest < 10000.0 ? savings_interest : 10000.0) * marginal_rate_old",
			Enabled: true,
		},
		{
			ID:      "home-loan-interest",
			Message: "Home loan interest above the 2,00,000 cap earns no further deduction; prepayment may beat further interest outgo.",
			When:    "property_loan_interest > 200000.0",
			Enabled: true,
		},
	}
}
