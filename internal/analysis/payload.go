package analysis

import (
	"encoding/json"
	"strings"

	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

// PayloadKind classifies a raw multi_ai_analysis value. All shape
// sniffing lives here; downstream code switches on the kind instead of
// probing keys ad hoc.
type PayloadKind int

const (
	// PayloadNone means the record carries no provider analysis at all.
	PayloadNone PayloadKind = iota
	// PayloadCurrent is the current layout: openaiAnalysis,
	// claudeAnalysis, perplexityAnalysis and synthesizedInsights.
	PayloadCurrent
	// PayloadLegacy is the historical layout keyed by a single
	// "openai" sub-object.
	PayloadLegacy
	// PayloadUnparseable is malformed input. Downstream it behaves
	// exactly like PayloadNone.
	PayloadUnparseable
)

// Block is one decoded JSON object. Absent blocks are represented as
// empty, never nil, so callers can index without guarding.
type Block map[string]any

// ParsedPayload is the tagged result of decoding a multi_ai_analysis
// value. It is read-only input for the merge step.
type ParsedPayload struct {
	Kind PayloadKind

	// OpenAI is the effective primary-provider block used for topic
	// merging: openaiAnalysis.detailed when present, otherwise
	// openaiAnalysis itself, or the legacy openai sub-object.
	OpenAI Block

	// OpenAIRoot is the openaiAnalysis object itself. Top-level fields
	// such as overallScore live here, not in the detailed block.
	OpenAIRoot Block

	Claude      Block
	Perplexity  Block
	Synthesized Block
}

func emptyPayload(kind PayloadKind) ParsedPayload {
	return ParsedPayload{
		Kind:        kind,
		OpenAI:      Block{},
		OpenAIRoot:  Block{},
		Claude:      Block{},
		Perplexity:  Block{},
		Synthesized: Block{},
	}
}

// ParsePayload decodes a raw multi_ai_analysis value, which may be
// absent, a JSON object, or a JSON-encoded string (sometimes doubly
// encoded by older pipeline versions). It never panics and never
// returns an error: malformed input degrades to PayloadUnparseable
// with a diagnostic on the injected logger.
func ParsePayload(raw any, log *logger.Logger) ParsedPayload {
	if raw == nil {
		return emptyPayload(PayloadNone)
	}

	switch v := raw.(type) {
	case map[string]any:
		return classify(v, log)
	case string:
		return parseEncoded([]byte(v), log)
	case []byte:
		return parseEncoded(v, log)
	case json.RawMessage:
		return parseEncoded(v, log)
	default:
		if log != nil {
			log.Warn("multi_ai_analysis has unexpected type", "kind", "unparseable")
		}
		return emptyPayload(PayloadUnparseable)
	}
}

func parseEncoded(raw []byte, log *logger.Logger) ParsedPayload {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return emptyPayload(PayloadNone)
	}

	var decoded any = trimmed
	// A JSONB column holding a JSON-encoded string decodes to a string
	// first and to the object on the second pass.
	for i := 0; i < 2; i++ {
		s, ok := decoded.(string)
		if !ok {
			break
		}
		var next any
		if err := json.Unmarshal([]byte(s), &next); err != nil {
			if log != nil {
				log.Warn("multi_ai_analysis is not valid JSON", "error", err)
			}
			return emptyPayload(PayloadUnparseable)
		}
		decoded = next
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		if log != nil {
			log.Warn("multi_ai_analysis decoded to a non-object value")
		}
		return emptyPayload(PayloadUnparseable)
	}
	return classify(obj, log)
}

func classify(obj map[string]any, log *logger.Logger) ParsedPayload {
	if openaiRaw, ok := obj["openaiAnalysis"]; ok {
		p := emptyPayload(PayloadCurrent)
		p.OpenAIRoot = asBlock(openaiRaw)
		p.OpenAI = p.OpenAIRoot
		// A present detailed block wins even when empty; the root
		// object is only the fallback for payloads without one.
		if detailedRaw, ok := p.OpenAIRoot["detailed"]; ok {
			p.OpenAI = asBlock(detailedRaw)
		}
		p.Claude = asBlock(obj["claudeAnalysis"])
		p.Perplexity = asBlock(obj["perplexityAnalysis"])
		p.Synthesized = asBlock(obj["synthesizedInsights"])
		return p
	}

	if legacyRaw, ok := obj["openai"]; ok {
		p := emptyPayload(PayloadLegacy)
		p.OpenAI = asBlock(legacyRaw)
		p.OpenAIRoot = p.OpenAI
		return p
	}

	if log != nil {
		log.Warn("multi_ai_analysis object matches no known shape")
	}
	return emptyPayload(PayloadUnparseable)
}

// asBlock extracts a JSON object, tolerating any malformed or missing
// value by returning an empty Block. One bad sub-object must only
// degrade itself, never its siblings.
func asBlock(v any) Block {
	switch m := v.(type) {
	case Block:
		return m
	case map[string]any:
		return Block(m)
	default:
		return Block{}
	}
}
