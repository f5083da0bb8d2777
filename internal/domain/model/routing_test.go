// File: internal/domain/model/routing_test.go
package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRoutingAlgorithm_JSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   RoutingAlgorithm
	}{
		{
			name: "single",
			in: RoutingAlgorithm{
				Kind:   AlgorithmSingle,
				Single: &ConnectorChoice{Connector: "nuvei", MerchantConnectorID: "mca_1"},
			},
		},
		{
			name: "priority",
			in: RoutingAlgorithm{
				Kind: AlgorithmPriority,
				Priority: []ConnectorChoice{
					{Connector: "nuvei"},
					{Connector: "stripe"},
				},
			},
		},
		{
			name: "volume_split",
			in: RoutingAlgorithm{
				Kind: AlgorithmVolumeSplit,
				VolumeSplit: []ConnectorVolumeSplit{
					{Connector: ConnectorChoice{Connector: "nuvei"}, Split: 30},
					{Connector: ConnectorChoice{Connector: "stripe"}, Split: 70},
				},
			},
		},
		{
			name: "advanced",
			in: RoutingAlgorithm{
				Kind: AlgorithmAdvanced,
				Advanced: &AdvancedProgram{
					DefaultSelection: ConnectorSelection{
						Priority: []ConnectorChoice{{Connector: "nuvei"}},
					},
					Rules: []RoutingRule{
						{
							Name: "cards to stripe",
							Conditions: []RuleCondition{
								{Key: "payment_method", Values: []string{"card"}},
							},
							Selection: ConnectorSelection{
								Priority: []ConnectorChoice{{Connector: "stripe"}},
							},
						},
					},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var out RoutingAlgorithm
			if err := json.Unmarshal(b, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(tc.in, out) {
				t.Errorf("round trip mismatch:\n in:  %+v\n out: %+v", tc.in, out)
			}
		})
	}

	t.Run("should reject an unknown kind", func(t *testing.T) {
		var out RoutingAlgorithm
		if err := json.Unmarshal([]byte(`{"type":"oracle","data":{}}`), &out); err == nil {
			t.Error("expected an error for unknown algorithm kind")
		}
		if _, err := json.Marshal(RoutingAlgorithm{Kind: "oracle"}); err == nil {
			t.Error("expected an error marshaling unknown algorithm kind")
		}
	})
}

func TestRoutingDictionary_ActiveRecord(t *testing.T) {
	dict := RoutingDictionary{
		MerchantID: "m1",
		Records: []RoutingRecord{
			{ID: "r1", Name: "old"},
			{ID: "r2", Name: "current"},
		},
	}

	t.Run("should return nothing when no record is active", func(t *testing.T) {
		if _, ok := dict.ActiveRecord(); ok {
			t.Error("expected no active record")
		}
	})

	t.Run("should return the record named by ActiveID", func(t *testing.T) {
		dict.ActiveID = "r2"
		rec, ok := dict.ActiveRecord()
		if !ok {
			t.Fatal("expected an active record")
		}
		if rec.Name != "current" {
			t.Errorf("expected record 'current', got %q", rec.Name)
		}
	})

	t.Run("should return nothing when ActiveID is dangling", func(t *testing.T) {
		dict.ActiveID = "r9"
		if _, ok := dict.ActiveRecord(); ok {
			t.Error("expected no active record for a dangling id")
		}
	})
}
