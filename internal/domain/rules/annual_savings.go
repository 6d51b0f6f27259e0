package rules

const (
	annualSavingsTarget   = "annual_savings"
	annualSavingsFunction = "compute_annual_savings"

	// DefaultHomeModule is the module canonical helpers are imported from.
	DefaultHomeModule = "calculations"
	// DefaultDefinitionsFile is the file canonical helpers are inserted into.
	DefaultDefinitionsFile = "calculations.py"
)

var resultKeys = set(
	"annual_total_savings_euro",
	"annual_financial_benefit_year1",
	"annual_savings_consumption_eur",
	"jahresersparnis_gesamt",
	"total_annual_savings",
	"annual_savings",
	"annual_savings_total_euro",
)

var (
	feedInNames             = set("annual_feedin_revenue", "feed_in_revenue", "annual_feed_in_revenue", "annual_revenue_feed_in_eur")
	consumptionSavingsNames = set("annual_electricity_savings", "consumption_savings", "annual_savings_consumption_eur")
	oldCostNames            = set("annual_old_cost", "old_annual_cost", "annual_cost_old")
	heatPumpCostNames       = set("annual_hp_cost", "hp_annual_cost", "annual_cost_hp")
	withoutPVNames          = set("electricity_costs_without_pv", "cost_without_pv", "annual_cost_without_pv")
	withPVNames             = set("electricity_costs_with_pv", "cost_with_pv", "annual_cost_with_pv")
)

// AnnualSavings centralizes every computation of annual_savings into
// compute_annual_savings(...).
func AnnualSavings() Catalog {
	fn := annualSavingsFunction

	withoutWith := differenceRule{
		name:              "without_with_difference",
		function:          fn,
		minuendKeyword:    "electricity_costs_without_pv",
		minuendNames:      withoutPVNames,
		subtrahendKeyword: "electricity_costs_with_pv",
		subtrahendNames:   withPVNames,
	}

	return Catalog{
		Name:            annualSavingsTarget,
		Target:          annualSavingsTarget,
		Function:        fn,
		HomeModule:      DefaultHomeModule,
		DefinitionsFile: DefaultDefinitionsFile,
		Definition:      computeAnnualSavingsDefinition,
		Denylist: []DenyPattern{
			{Left: "peak_reduction_kw", Op: "*", Right: "power_price_per_kw"},
		},
		Rules: []Rule{
			lookupRule{name: "results_get_to_compute", function: fn, keys: resultKeys},
			indexRule{name: "dict_index_to_compute", function: fn, keys: resultKeys},
			sumRule{
				name:          "feedin_plus_consumption",
				function:      fn,
				firstKeyword:  "annual_feedin_revenue",
				firstNames:    feedInNames,
				secondKeyword: "annual_electricity_savings",
				secondNames:   consumptionSavingsNames,
			},
			differenceRule{
				name:              "old_minus_hp",
				function:          fn,
				minuendKeyword:    "annual_old_cost",
				minuendNames:      oldCostNames,
				subtrahendKeyword: "annual_hp_cost",
				subtrahendNames:   heatPumpCostNames,
			},
			withoutWith,
			differencePlusRule{
				difference:   withoutWith,
				extraKeyword: "annual_feed_in_revenue",
				extraNames:   feedInNames,
				leftReason:   "diff_plus_feedin",
				rightReason:  "feedin_plus_diff",
			},
		},
	}
}

const computeAnnualSavingsDefinition = `from typing import Any, Dict, Optional


def compute_annual_savings(
    *,
    results: Optional[Dict[str, Any]] = None,
    annual_feedin_revenue: Optional[float] = None,
    annual_electricity_savings: Optional[float] = None,
    annual_old_cost: Optional[float] = None,
    annual_hp_cost: Optional[float] = None,
    electricity_costs_without_pv: Optional[float] = None,
    electricity_costs_with_pv: Optional[float] = None,
    annual_feed_in_revenue: Optional[float] = None,
    default: float = 0.0,
) -> float:
    """Single source of truth for annual_savings."""
    try:
        if results:
            for key in (
                "annual_total_savings_euro",
                "annual_financial_benefit_year1",
                "annual_savings_consumption_eur",
                "jahresersparnis_gesamt",
                "total_annual_savings",
                "annual_savings",
                "annual_savings_total_euro",
            ):
                if isinstance(results, dict) and key in results:
                    value = results.get(key)
                    try:
                        if value is not None and float(value) != 0.0:
                            return float(value)
                    except (TypeError, ValueError):
                        pass
            try:
                feed_in = float(results.get("annual_revenue_feed_in_eur", 0.0))
                consumption = float(results.get("annual_savings_consumption_eur", 0.0))
                if feed_in > 0.0 or consumption > 0.0:
                    return feed_in + consumption
            except (TypeError, ValueError, AttributeError):
                pass

        if annual_feedin_revenue is not None and annual_electricity_savings is not None:
            return float(annual_feedin_revenue) + float(annual_electricity_savings)

        if annual_old_cost is not None and annual_hp_cost is not None:
            return float(annual_old_cost) - float(annual_hp_cost)

        if electricity_costs_without_pv is not None and electricity_costs_with_pv is not None:
            base = float(electricity_costs_without_pv) - float(electricity_costs_with_pv)
            if annual_feed_in_revenue is not None:
                base += float(annual_feed_in_revenue)
            return base

        return float(default)
    except (TypeError, ValueError):
        try:
            return float(default)
        except (TypeError, ValueError):
            return 0.0
`
