// Package content loads authored game content (rate tables and scenarios)
// from files into the store. Content ships either as plain JSON or as HCL,
// which is friendlier to hand-edit for the cloud-infrastructure theme.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"cloudbudget/core/scenario"
	"cloudbudget/internal/errors"
)

// LoadRatesFile reads a rate-table document from a .json or .hcl file.
// The result is the raw map stored under the costs record, ready for
// rates.ParseTable on the read path.
func LoadRatesFile(path string) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return loadRatesHCL(path)
	default:
		return loadRatesJSON(path)
	}
}

func loadRatesJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "read rates file", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "parse rates json", err)
	}
	// Accept either the bare table or a {"costs": {...}} wrapper.
	if costs, ok := doc["costs"].(map[string]any); ok {
		return costs, nil
	}
	return doc, nil
}

// loadRatesHCL parses rate blocks of the form:
//
//	rate "ec2" {
//	  cost = 20.00
//	  kind = "per_month"
//	}
func loadRatesHCL(path string) (map[string]any, error) {
	body, err := parseHCLFile(path)
	if err != nil {
		return nil, err
	}

	content, _, diags := body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "rate", LabelNames: []string{"name"}},
		},
	})
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "decode rates hcl", diags)
	}

	table := make(map[string]any, len(content.Blocks))
	for _, block := range content.Blocks {
		if len(block.Labels) != 1 {
			continue
		}
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, errors.Wrapf(errors.TypeConfig, diags, "rate %q", block.Labels[0])
		}

		entry := map[string]any{}
		if v, ok := evalAttr(attrs, "cost"); ok {
			entry["cost"] = v
		}
		if v, ok := evalAttr(attrs, "kind"); ok {
			entry["type"] = v
		}
		table[block.Labels[0]] = entry
	}
	return table, nil
}

// LoadScenarioFile reads one scenario from a .json or .hcl file.
func LoadScenarioFile(path string) (*scenario.Scenario, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return loadScenarioHCL(path)
	default:
		return loadScenarioJSON(path)
	}
}

func loadScenarioJSON(path string) (*scenario.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "read scenario file", err)
	}
	var sc scenario.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "parse scenario json", err)
	}
	if sc.ScenarioID == "" {
		return nil, errors.New(errors.TypeConfig, "scenario file has no scenario_id")
	}
	return &sc, nil
}

// loadScenarioHCL parses a scenario document of the form:
//
//	scenario "startup-journey" {
//	  name      = "Startup Journey"
//	  end_month = 12
//
//	  feature "f-web" {
//	    type     = "ec2"
//	    feature  = "web frontend"
//	    required = ["vpc"]
//	  }
//
//	  month "0" {
//	    funds       = 500
//	    description = "launch month"
//	    demand "f-web" { requests = 1000 }
//	  }
//	}
func loadScenarioHCL(path string) (*scenario.Scenario, error) {
	body, err := parseHCLFile(path)
	if err != nil {
		return nil, err
	}

	content, _, diags := body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "scenario", LabelNames: []string{"id"}},
		},
	})
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "decode scenario hcl", diags)
	}
	if len(content.Blocks) != 1 {
		return nil, errors.Newf(errors.TypeConfig, "scenario file must hold exactly one scenario, found %d", len(content.Blocks))
	}

	block := content.Blocks[0]
	sc := &scenario.Scenario{ScenarioID: block.Labels[0]}

	inner, _, diags := block.Body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "name"},
			{Name: "end_month"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "feature", LabelNames: []string{"id"}},
			{Type: "month", LabelNames: []string{"number"}},
		},
	})
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "decode scenario body", diags)
	}

	if v, ok := evalAttr(inner.Attributes, "name"); ok {
		sc.Name, _ = v.(string)
	}
	if v, ok := evalAttr(inner.Attributes, "end_month"); ok {
		sc.EndMonth = toInt(v)
	}

	for _, b := range inner.Blocks {
		switch b.Type {
		case "feature":
			f, err := decodeFeature(b)
			if err != nil {
				return nil, err
			}
			sc.Features = append(sc.Features, f)
		case "month":
			m, err := decodeMonth(b)
			if err != nil {
				return nil, err
			}
			sc.Requests = append(sc.Requests, m)
		}
	}

	return sc, nil
}

func decodeFeature(block *hcl.Block) (scenario.Feature, error) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return scenario.Feature{}, errors.Wrapf(errors.TypeConfig, diags, "feature %q", block.Labels[0])
	}

	f := scenario.Feature{ID: block.Labels[0]}
	if v, ok := evalAttr(attrs, "type"); ok {
		f.Type, _ = v.(string)
	}
	if v, ok := evalAttr(attrs, "feature"); ok {
		f.Feature, _ = v.(string)
	}
	if v, ok := evalAttr(attrs, "required"); ok {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					f.Required = append(f.Required, s)
				}
			}
		}
	}
	return f, nil
}

func decodeMonth(block *hcl.Block) (scenario.MonthlyRequest, error) {
	month, err := strconv.Atoi(block.Labels[0])
	if err != nil {
		return scenario.MonthlyRequest{}, errors.Newf(errors.TypeConfig, "month label %q is not a number", block.Labels[0])
	}

	inner, _, diags := block.Body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "funds"},
			{Name: "description"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "demand", LabelNames: []string{"feature_id"}},
		},
	})
	if diags.HasErrors() {
		return scenario.MonthlyRequest{}, errors.Wrapf(errors.TypeConfig, diags, "month %d", month)
	}

	m := scenario.MonthlyRequest{Month: month}
	if v, ok := evalAttr(inner.Attributes, "funds"); ok {
		m.Funds = int64(toInt(v))
	}
	if v, ok := evalAttr(inner.Attributes, "description"); ok {
		m.Description, _ = v.(string)
	}

	for _, b := range inner.Blocks {
		attrs, diags := b.Body.JustAttributes()
		if diags.HasErrors() {
			return scenario.MonthlyRequest{}, errors.Wrapf(errors.TypeConfig, diags, "demand %q", b.Labels[0])
		}
		rf := scenario.RequestFeature{FeatureID: b.Labels[0]}
		if v, ok := evalAttr(attrs, "requests"); ok {
			rf.Request = toInt(v)
		}
		m.Feature = append(m.Feature, rf)
	}

	return m, nil
}

func parseHCLFile(path string) (hcl.Body, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "read hcl file", err)
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "parse hcl", diags)
	}
	return file.Body, nil
}

func evalAttr(attrs hcl.Attributes, name string) (any, bool) {
	attr, ok := attrs[name]
	if !ok {
		return nil, false
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, false
	}
	return ctyToGo(val), true
}

// ctyToGo converts an evaluated cty value into plain Go values. Numbers come
// back as their exact decimal string so money parsing stays lossless.
func ctyToGo(val cty.Value) any {
	if val.IsNull() {
		return nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString()
	case ty == cty.Number:
		return val.AsBigFloat().Text('f', -1)
	case ty == cty.Bool:
		return val.True()
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			out = append(out, ctyToGo(v))
		}
		return out
	case ty.IsObjectType() || ty.IsMapType():
		out := map[string]any{}
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			out[k.AsString()] = ctyToGo(v)
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
