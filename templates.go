package guardian

import (
	_ "embed"
	"fmt"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/model"
)

//go:embed templates.yaml
var templatesYAML []byte

// StrategyTemplate is a named policy preset. It is plain data.
type StrategyTemplate struct {
	Name          string `yaml:"name"          json:"name"`
	Description   string `yaml:"description"   json:"description"`
	MaxTxValue    string `yaml:"maxTxValue"    json:"maxTxValue"`
	DailyLimit    string `yaml:"dailyLimit"    json:"dailyLimit"`
	WeeklyLimit   string `yaml:"weeklyLimit"   json:"weeklyLimit"`
	RiskThreshold int    `yaml:"riskThreshold" json:"riskThreshold"`
}

var strategyTemplates = mustLoadTemplates(templatesYAML)

func mustLoadTemplates(data []byte) []StrategyTemplate {
	var doc struct {
		Templates []StrategyTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		panic(fmt.Sprintf("invalid strategy templates: %v", err))
	}
	for _, t := range doc.Templates {
		for _, v := range []string{t.MaxTxValue, t.DailyLimit, t.WeeklyLimit} {
			if _, err := model.ParseWei(v); err != nil {
				panic(fmt.Sprintf("strategy template %s: invalid amount %q", t.Name, v))
			}
		}
	}
	return doc.Templates
}

// StrategyTemplates returns a copy of the template catalog.
func StrategyTemplates() []StrategyTemplate {
	return append([]StrategyTemplate(nil), strategyTemplates...)
}

// StrategyTemplateNames returns the template names in catalog order.
func StrategyTemplateNames() []string {
	return lo.Map(strategyTemplates, func(t StrategyTemplate, _ int) string { return t.Name })
}

// LookupStrategyTemplate returns the template called name.
func LookupStrategyTemplate(name string) (StrategyTemplate, error) {
	t, ok := lo.Find(strategyTemplates, func(t StrategyTemplate) bool { return t.Name == name })
	if !ok {
		return StrategyTemplate{}, guarderr.InvalidInputf("strategyTemplate", "unknown strategy template %q", name)
	}
	return t, nil
}

// PolicyUpdate returns the policy update that applies the template's limits.
// Target lists are left unchanged.
func (t StrategyTemplate) PolicyUpdate() model.PolicyUpdate {
	return model.PolicyUpdate{
		MaxTxValue:    lo.ToPtr(t.MaxTxValue),
		DailyLimit:    lo.ToPtr(t.DailyLimit),
		WeeklyLimit:   lo.ToPtr(t.WeeklyLimit),
		RiskThreshold: lo.ToPtr(t.RiskThreshold),
	}
}
