package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultraclean.dev/pkg/ultraclean/internal/adapter"
	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// parseValue returns the right-hand side of "target = expr".
func parseValue(t *testing.T, expr string) *syntax.Node {
	t.Helper()

	unit, err := adapter.NewLocalPythonFileAdapter().Parse(context.Background(), "t.py", []byte("target = "+expr+"\n"))
	require.NoError(t, err)

	var value *syntax.Node

	unit.Root.Walk(func(n *syntax.Node) bool {
		if value == nil && n.Kind() == "assignment" {
			value = n.ChildByField("right")
		}

		return value == nil
	})
	require.NotNil(t, value)

	return value
}

func parseStatement(t *testing.T, src string) *syntax.Node {
	t.Helper()

	unit, err := adapter.NewLocalPythonFileAdapter().Parse(context.Background(), "t.py", []byte(src+"\n"))
	require.NoError(t, err)

	stmts := unit.Root.NamedChildren()
	require.Len(t, stmts, 1)
	require.Equal(t, "expression_statement", stmts[0].Kind())

	return stmts[0].NamedChildren()[0]
}

// firstMatch mirrors the engine: denylist first, then rules in order.
func firstMatch(t *testing.T, catalog Catalog, expr string) (string, string, bool, error) {
	t.Helper()

	value := parseValue(t, expr)
	if catalog.Denied(value) {
		return "", "denied", false, nil
	}

	for _, rule := range catalog.Rules {
		replacement, reason, ok, err := rule.Rewrite(value)
		if err != nil || ok {
			return replacement, reason, ok, err
		}
	}

	return "", "", false, nil
}

func TestAnnualSavings_Rules(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		want   string
		reason string
	}{
		{
			name:   "get with default",
			expr:   `results.get("annual_savings", 0)`,
			want:   "compute_annual_savings(results=results, default=0)",
			reason: "results_get_to_compute",
		},
		{
			name:   "get with keyword default",
			expr:   `data.get('total_annual_savings', default=5)`,
			want:   "compute_annual_savings(results=data, default=5)",
			reason: "results_get_to_compute",
		},
		{
			name:   "get without default",
			expr:   `self.results.get("jahresersparnis_gesamt")`,
			want:   "compute_annual_savings(results=self.results, default=0.0)",
			reason: "results_get_to_compute",
		},
		{
			name:   "index",
			expr:   `calc["annual_savings_total_euro"]`,
			want:   "compute_annual_savings(results=calc, default=0.0)",
			reason: "dict_index_to_compute",
		},
		{
			name:   "feed-in plus consumption",
			expr:   `consumption_savings + r.feed_in_revenue`,
			want:   "compute_annual_savings(annual_feedin_revenue=r.feed_in_revenue, annual_electricity_savings=consumption_savings, default=0.0)",
			reason: "feedin_plus_consumption",
		},
		{
			name:   "old minus heat pump",
			expr:   `annual_old_cost - annual_hp_cost`,
			want:   "compute_annual_savings(annual_old_cost=annual_old_cost, annual_hp_cost=annual_hp_cost, default=0.0)",
			reason: "old_minus_hp",
		},
		{
			name:   "without minus with",
			expr:   `(cost_without_pv - cost_with_pv)`,
			want:   "compute_annual_savings(electricity_costs_without_pv=cost_without_pv, electricity_costs_with_pv=cost_with_pv, default=0.0)",
			reason: "without_with_difference",
		},
		{
			name:   "difference plus feed-in",
			expr:   `(cost_without_pv - cost_with_pv) + feed_in_revenue`,
			want:   "compute_annual_savings(electricity_costs_without_pv=cost_without_pv, electricity_costs_with_pv=cost_with_pv, annual_feed_in_revenue=feed_in_revenue, default=0.0)",
			reason: "diff_plus_feedin",
		},
		{
			name:   "feed-in plus difference",
			expr:   `annual_feedin_revenue + (annual_cost_without_pv - annual_cost_with_pv)`,
			want:   "compute_annual_savings(electricity_costs_without_pv=annual_cost_without_pv, electricity_costs_with_pv=annual_cost_with_pv, annual_feed_in_revenue=annual_feedin_revenue, default=0.0)",
			reason: "feedin_plus_diff",
		},
	}

	catalog := AnnualSavings()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason, ok, err := firstMatch(t, catalog, tt.expr)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestAnnualSavings_Declines(t *testing.T) {
	exprs := []string{
		`results.get("unrelated_key", 0)`,
		`results.get(f"annual_savings")`,
		`results.get(key)`,
		`a + b`,
		`annual_hp_cost - annual_old_cost`,
		`compute_annual_savings(results=r, default=0.0)`,
		`42`,
	}

	catalog := AnnualSavings()

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			_, _, ok, err := firstMatch(t, catalog, expr)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestAnnualSavings_DenylistWins(t *testing.T) {
	catalog := AnnualSavings()

	for _, expr := range []string{
		`peak_reduction_kw * power_price_per_kw`,
		`12 * power_price_per_kw * peak_reduction_kw`,
		`results.get("annual_savings", 0) + peak_reduction_kw * power_price_per_kw`,
	} {
		t.Run(expr, func(t *testing.T) {
			assert.True(t, catalog.Denied(parseValue(t, expr)))
		})
	}

	assert.False(t, catalog.Denied(parseValue(t, `peak_reduction_kw + power_price_per_kw`)))
}

func TestAnnualSavings_UnpackedArgument(t *testing.T) {
	_, _, ok, err := firstMatch(t, AnnualSavings(), `results.get("annual_savings", *extra)`)
	require.ErrorIs(t, err, ErrUnpackedArgument)
	assert.False(t, ok)
}

func TestProjectData_Rules(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		want   string
		reason string
	}{
		{"dict literal", `{"a": 1}`, `build_project_data({"a": 1})`, "dict_literal_to_builder"},
		{"union", `base | extra`, `build_project_data(base, extra)`, "dict_union_to_builder"},
		{"merge-like call", `deepmerge(a, b)`, `build_project_data(deepmerge(a, b))`, "deepmerge_to_builder"},
		{"dict call", `dict(a=1)`, `build_project_data(dict(a=1))`, "dict_to_builder"},
		{"other call", `load_project(path)`, `build_project_data(load_project(path))`, "call_wrapped_to_builder"},
	}

	catalog := ProjectData()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason, ok, err := firstMatch(t, catalog, tt.expr)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestProjectData_LeavesBuilderCalls(t *testing.T) {
	_, _, ok, err := firstMatch(t, ProjectData(), `build_project_data({"a": 1})`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProjectData_UpdateStatement(t *testing.T) {
	rule := ProjectData().StatementRules[0]

	tests := []struct {
		src    string
		want   string
		before string
		ok     bool
	}{
		{`project_data.update(extra)`, `project_data = build_project_data(project_data, extra)`, `project_data.update(extra)`, true},
		{`project_data.update()`, `project_data = build_project_data(project_data, {})`, `project_data.update()`, true},
		{`project_data.update(a=1)`, "", "", false},
		{`project_data.update(a, b)`, "", "", false},
		{`project_data.update(**extra)`, "", "", false},
		{`other.update(extra)`, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, before, ok, err := rule.RewriteStatement(parseStatement(t, tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.before, before)
		})
	}
}
