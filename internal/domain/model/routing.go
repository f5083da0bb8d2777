package model

import (
	"encoding/json"
	"fmt"
)

// ConnectorChoice names a routable connector, optionally pinned to one of
// the merchant's connector accounts.
type ConnectorChoice struct {
	Connector           string `json:"connector"`
	MerchantConnectorID string `json:"merchant_connector_id,omitempty"`
}

// ConnectorVolumeSplit pairs a choice with its selection weight. Weights
// need not sum to any particular value.
type ConnectorVolumeSplit struct {
	Connector ConnectorChoice `json:"connector"`
	Split     int64           `json:"split"`
}

type AlgorithmKind string

const (
	AlgorithmSingle      AlgorithmKind = "single"
	AlgorithmPriority    AlgorithmKind = "priority"
	AlgorithmVolumeSplit AlgorithmKind = "volume_split"
	AlgorithmAdvanced    AlgorithmKind = "advanced"
)

// ConnectorSelection is the selection half of an advanced rule: either an
// ordered fallback list or a weighted split.
type ConnectorSelection struct {
	Priority    []ConnectorChoice      `json:"priority,omitempty"`
	VolumeSplit []ConnectorVolumeSplit `json:"volume_split,omitempty"`
}

// RuleCondition is a predicate over the attempt context. A condition holds
// when the named key's value equals one of the listed values.
type RuleCondition struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// RoutingRule maps a conjunction of conditions to a selection.
type RoutingRule struct {
	Name       string             `json:"name"`
	Conditions []RuleCondition    `json:"conditions"`
	Selection  ConnectorSelection `json:"connector_selection"`
}

// AdvancedProgram is an ordered rule list with a default selection used when
// no rule matches.
type AdvancedProgram struct {
	DefaultSelection ConnectorSelection `json:"default_selection"`
	Rules            []RoutingRule      `json:"rules"`
}

// RoutingAlgorithm is the tagged variant Single | Priority | VolumeSplit |
// Advanced. Exactly one payload field is populated, discriminated by Kind.
type RoutingAlgorithm struct {
	Kind        AlgorithmKind
	Single      *ConnectorChoice
	Priority    []ConnectorChoice
	VolumeSplit []ConnectorVolumeSplit
	Advanced    *AdvancedProgram
}

type routingAlgorithmJSON struct {
	Type AlgorithmKind   `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (a RoutingAlgorithm) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch a.Kind {
	case AlgorithmSingle:
		data, err = json.Marshal(a.Single)
	case AlgorithmPriority:
		data, err = json.Marshal(a.Priority)
	case AlgorithmVolumeSplit:
		data, err = json.Marshal(a.VolumeSplit)
	case AlgorithmAdvanced:
		data, err = json.Marshal(a.Advanced)
	default:
		return nil, fmt.Errorf("unknown routing algorithm kind %q", a.Kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(routingAlgorithmJSON{Type: a.Kind, Data: data})
}

func (a *RoutingAlgorithm) UnmarshalJSON(b []byte) error {
	var raw routingAlgorithmJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = RoutingAlgorithm{Kind: raw.Type}
	switch raw.Type {
	case AlgorithmSingle:
		a.Single = &ConnectorChoice{}
		return json.Unmarshal(raw.Data, a.Single)
	case AlgorithmPriority:
		return json.Unmarshal(raw.Data, &a.Priority)
	case AlgorithmVolumeSplit:
		return json.Unmarshal(raw.Data, &a.VolumeSplit)
	case AlgorithmAdvanced:
		a.Advanced = &AdvancedProgram{}
		return json.Unmarshal(raw.Data, a.Advanced)
	}
	return fmt.Errorf("unknown routing algorithm kind %q", raw.Type)
}

// RoutingRecord is one named algorithm inside a merchant's dictionary.
type RoutingRecord struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Algorithm   RoutingAlgorithm `json:"algorithm"`
	CreatedAt   int64            `json:"created_at"`
	ModifiedAt  int64            `json:"modified_at"`
}

// RoutingDictionary is everything a merchant has configured for routing,
// with ActiveID naming the record currently in force.
type RoutingDictionary struct {
	MerchantID string          `json:"merchant_id"`
	ActiveID   string          `json:"active_id,omitempty"`
	Records    []RoutingRecord `json:"records"`
}

// ActiveRecord returns the record named by ActiveID, if any.
func (d *RoutingDictionary) ActiveRecord() (*RoutingRecord, bool) {
	if d.ActiveID == "" {
		return nil, false
	}
	for i := range d.Records {
		if d.Records[i].ID == d.ActiveID {
			return &d.Records[i], true
		}
	}
	return nil, false
}
