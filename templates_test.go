package guardian

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/model"
)

func TestStrategyTemplates(t *testing.T) {
	require.Equal(t, []string{"conservative", "balanced", "trader", "yield"}, StrategyTemplateNames())

	all := StrategyTemplates()
	all[0].Name = "mutated"
	require.Equal(t, "conservative", StrategyTemplates()[0].Name)

	for _, tmpl := range StrategyTemplates() {
		maxTx, err := model.ParseWei(tmpl.MaxTxValue)
		require.NoError(t, err)
		daily, err := model.ParseWei(tmpl.DailyLimit)
		require.NoError(t, err)
		weekly, err := model.ParseWei(tmpl.WeeklyLimit)
		require.NoError(t, err)

		require.True(t, maxTx.Cmp(daily) <= 0, tmpl.Name)
		require.True(t, daily.Cmp(weekly) <= 0, tmpl.Name)
		require.NoError(t, model.ValidateStruct("template", tmpl.PolicyUpdate()), tmpl.Name)
	}
}

func TestLookupStrategyTemplate(t *testing.T) {
	tmpl, err := LookupStrategyTemplate("balanced")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", tmpl.MaxTxValue)

	update := tmpl.PolicyUpdate()
	require.Equal(t, 50, *update.RiskThreshold)
	require.Nil(t, update.BlockedTargets)

	_, err = LookupStrategyTemplate("yolo")
	require.True(t, guarderr.Is(err, guarderr.InvalidInput))
}
