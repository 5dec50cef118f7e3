package analysis

import (
	"encoding/json"
	"strconv"
)

// Topic names as they appear both in feedback records and in provider
// payloads.
const (
	TopicKeyInfo          = "keyInfo"
	TopicQuestioning      = "questioning"
	TopicLanguage         = "language"
	TopicCoachBehaviours  = "coachBehaviours"
	TopicPlayerEngagement = "playerEngagement"
	TopicIntendedOutcomes = "intendedOutcomes"
)

// Annotation keys attached to merged topic blocks for supplementary
// providers. These are additive only: Claude and Perplexity data never
// overwrite a topic's primary fields.
const (
	annotationClaude     = "claudeInsights"
	annotationPerplexity = "researchEvidence"
)

// MergeTopic resolves one topic block: the effective OpenAI enrichment
// is merged key-by-key over the base block (provider keys win, base
// keys not overridden are retained), then supplementary provider
// blocks are attached as annotations. Inputs are never mutated; the
// result is never nil.
func MergeTopic(base Block, p ParsedPayload, topic string) Block {
	out := make(Block, len(base)+2)
	for k, v := range base {
		out[k] = v
	}
	if enrich := asBlock(p.OpenAI[topic]); len(enrich) > 0 {
		for k, v := range enrich {
			out[k] = v
		}
	}
	if ci := asBlock(p.Claude[topic]); len(ci) > 0 {
		out[annotationClaude] = ci
	}
	if re := asBlock(p.Perplexity[topic]); len(re) > 0 {
		out[annotationPerplexity] = re
	}
	return out
}

// ResolveOverallScore applies the overall-score precedence:
// synthesizedInsights.overallScore, then openaiAnalysis.overallScore
// (current shape only), then the base record's score, then 0.
func ResolveOverallScore(p ParsedPayload, base *float64) float64 {
	if p.Kind == PayloadCurrent {
		if v, ok := p.Synthesized.number("overallScore"); ok {
			return v
		}
		if v, ok := p.OpenAIRoot.number("overallScore"); ok {
			return v
		}
	}
	if base != nil {
		return *base
	}
	return 0
}

// Number reads a numeric field, defaulting to 0 when the key is absent
// or not a number.
func (b Block) Number(key string) float64 {
	v, _ := b.number(key)
	return v
}

func (b Block) number(key string) (float64, bool) {
	raw, ok := b[key]
	if !ok {
		return 0, false
	}
	switch n := raw.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Text reads a narrative field, defaulting to "".
func (b Block) Text(key string) string {
	s, _ := b[key].(string)
	return s
}
