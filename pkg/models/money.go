package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// moneyScale is the number of decimal places money is rendered with.
const moneyScale = 2

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(moneyScale)
}

// MarshalJSON renders Total with two decimal places.
func (inv Invoice) MarshalJSON() ([]byte, error) {
	type plain Invoice
	return json.Marshal(struct {
		plain
		Total string `json:"total"`
	}{plain(inv), formatMoney(inv.Total)})
}

// MarshalYAML renders Total with two decimal places.
func (inv Invoice) MarshalYAML() (any, error) {
	type plain Invoice
	return encodeYAMLWithMoney(plain(inv), "total", inv.Total)
}

// MarshalJSON renders Amount with two decimal places.
func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	return json.Marshal(struct {
		plain
		Amount string `json:"amount"`
	}{plain(p), formatMoney(p.Amount)})
}

// MarshalYAML renders Amount with two decimal places.
func (p Payment) MarshalYAML() (any, error) {
	type plain Payment
	return encodeYAMLWithMoney(plain(p), "amount", p.Amount)
}

// encodeYAMLWithMoney encodes v as a mapping and replaces the value under key
// with the fixed-scale amount.
func encodeYAMLWithMoney(v any, key string, amount decimal.Decimal) (*yaml.Node, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	mapping := &node
	if mapping.Kind == yaml.DocumentNode && len(mapping.Content) > 0 {
		mapping = mapping.Content[0]
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   "!!str",
				Value: formatMoney(amount),
				Style: yaml.DoubleQuotedStyle,
			}
		}
	}
	return mapping, nil
}
