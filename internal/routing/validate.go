package routing

import (
	"context"
	"fmt"

	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

// ValidateAlgorithm checks every connector referenced by the algorithm
// against the connectors actually configured (and not disabled) for the
// given business profile. The first unconfigured reference aborts with an
// error identifying the connector.
func (e *Engine) ValidateAlgorithm(ctx context.Context, merchantID, profileID string, algorithm *model.RoutingAlgorithm) error {
	all, err := e.mcas.ListByMerchantID(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("list connector accounts for %s: %w", merchantID, err)
	}

	nameSet := make(map[string]struct{})
	nameMCASet := make(map[[2]string]struct{})
	for _, mca := range all {
		if mca.ProfileID != profileID || !mca.ConnectorEnabled() {
			continue
		}
		nameSet[mca.ConnectorName] = struct{}{}
		nameMCASet[[2]string{mca.ConnectorName, mca.MerchantConnectorID}] = struct{}{}
	}

	checkChoice := func(choice model.ConnectorChoice) error {
		if choice.MerchantConnectorID != "" {
			if _, ok := nameMCASet[[2]string{choice.Connector, choice.MerchantConnectorID}]; !ok {
				return domain.NewInvalidDataFormat(
					"routing_algorithm",
					fmt.Sprintf("connector with name '%s' and merchant connector account id '%s' configured for the given profile",
						choice.Connector, choice.MerchantConnectorID),
				)
			}
			return nil
		}
		if _, ok := nameSet[choice.Connector]; !ok {
			return domain.NewInvalidDataFormat(
				"routing_algorithm",
				fmt.Sprintf("connector with name '%s' configured for the given profile", choice.Connector),
			)
		}
		return nil
	}

	checkSelection := func(sel model.ConnectorSelection) error {
		for _, choice := range sel.Priority {
			if err := checkChoice(choice); err != nil {
				return err
			}
		}
		for _, split := range sel.VolumeSplit {
			if err := checkChoice(split.Connector); err != nil {
				return err
			}
		}
		return nil
	}

	switch algorithm.Kind {
	case model.AlgorithmSingle:
		if algorithm.Single == nil {
			return domain.NewInvalidDataFormat("routing_algorithm", "single variant with a connector choice")
		}
		return checkChoice(*algorithm.Single)

	case model.AlgorithmPriority:
		for _, choice := range algorithm.Priority {
			if err := checkChoice(choice); err != nil {
				return err
			}
		}
		return nil

	case model.AlgorithmVolumeSplit:
		for _, split := range algorithm.VolumeSplit {
			if err := checkChoice(split.Connector); err != nil {
				return err
			}
		}
		return nil

	case model.AlgorithmAdvanced:
		if algorithm.Advanced == nil {
			return domain.NewInvalidDataFormat("routing_algorithm", "advanced variant with a program")
		}
		if err := checkSelection(algorithm.Advanced.DefaultSelection); err != nil {
			return err
		}
		for _, rule := range algorithm.Advanced.Rules {
			if err := checkSelection(rule.Selection); err != nil {
				return err
			}
		}
		return nil
	}
	return domain.NewInvalidDataFormat("routing_algorithm", "one of single|priority|volume_split|advanced")
}
