// File: internal/routing/evaluate.go
package routing

import (
	"math/rand"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/infra/metrics"
)

// AttemptContext is the snapshot of the attempt the Advanced rules predicate
// over. Keys: "payment_method", "currency", "capture_method", "amount_bucket".
type AttemptContext map[string]string

// Evaluator resolves a connector fallback sequence from an algorithm. The
// random source is injected so VolumeSplit selection is replayable in tests.
type Evaluator struct {
	rng *rand.Rand
	log *zerolog.Logger
}

func NewEvaluator(rng *rand.Rand, logger *zerolog.Logger) *Evaluator {
	return &Evaluator{rng: rng, log: logger}
}

// Evaluate returns the ordered connector fallback sequence the algorithm
// resolves to for the given attempt context. Single yields its fixed choice;
// Priority preserves declared order; VolumeSplit picks one entry weighted by
// split, the rest following in declared order; Advanced picks the first
// matching rule's selection, else the default selection.
func (ev *Evaluator) Evaluate(algorithm *model.RoutingAlgorithm, actx AttemptContext) []model.ConnectorChoice {
	metrics.IncRoutingEvaluation(string(algorithm.Kind))

	switch algorithm.Kind {
	case model.AlgorithmSingle:
		if algorithm.Single == nil {
			return nil
		}
		return []model.ConnectorChoice{*algorithm.Single}

	case model.AlgorithmPriority:
		out := make([]model.ConnectorChoice, len(algorithm.Priority))
		copy(out, algorithm.Priority)
		return out

	case model.AlgorithmVolumeSplit:
		return ev.volumeSplit(algorithm.VolumeSplit)

	case model.AlgorithmAdvanced:
		if algorithm.Advanced == nil {
			return nil
		}
		return ev.advanced(algorithm.Advanced, actx)
	}
	return nil
}

// volumeSplit picks the primary entry with probability weight/sum(weights);
// weights need not normalize. Remaining entries keep declared order as the
// fallback tail. A non-positive total falls back to the first entry.
func (ev *Evaluator) volumeSplit(splits []model.ConnectorVolumeSplit) []model.ConnectorChoice {
	if len(splits) == 0 {
		return nil
	}
	var total int64
	for _, s := range splits {
		if s.Split > 0 {
			total += s.Split
		}
	}

	picked := 0
	if total > 0 {
		point := ev.rng.Int63n(total)
		var acc int64
		for i, s := range splits {
			if s.Split <= 0 {
				continue
			}
			acc += s.Split
			if point < acc {
				picked = i
				break
			}
		}
	}

	out := make([]model.ConnectorChoice, 0, len(splits))
	out = append(out, splits[picked].Connector)
	for i, s := range splits {
		if i != picked {
			out = append(out, s.Connector)
		}
	}
	return out
}

// advanced walks the ordered rule list; a rule that fails to evaluate is
// skipped, it never aborts the remaining rules.
func (ev *Evaluator) advanced(program *model.AdvancedProgram, actx AttemptContext) []model.ConnectorChoice {
	for _, rule := range program.Rules {
		matched, err := ruleMatches(rule, actx)
		if err != nil {
			if ev.log != nil {
				ev.log.Warn().Str("rule", rule.Name).Err(err).Msg("routing rule failed to evaluate, skipping")
			}
			continue
		}
		if matched {
			return ev.selection(rule.Selection)
		}
	}
	return ev.selection(program.DefaultSelection)
}

func (ev *Evaluator) selection(sel model.ConnectorSelection) []model.ConnectorChoice {
	if len(sel.VolumeSplit) > 0 {
		return ev.volumeSplit(sel.VolumeSplit)
	}
	out := make([]model.ConnectorChoice, len(sel.Priority))
	copy(out, sel.Priority)
	return out
}

func ruleMatches(rule model.RoutingRule, actx AttemptContext) (bool, error) {
	for _, cond := range rule.Conditions {
		val, ok := actx[cond.Key]
		if !ok {
			return false, &unknownKeyError{key: cond.Key}
		}
		found := false
		for _, want := range cond.Values {
			if val == want {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

type unknownKeyError struct{ key string }

func (e *unknownKeyError) Error() string {
	return "attempt context has no key " + e.key
}
