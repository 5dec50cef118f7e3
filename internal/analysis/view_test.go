package analysis

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/coachlens/coachlens-backend/internal/domain/feedback"
)

func ptr(f float64) *float64 { return &f }

func baseRecord() *feedback.FeedbackRecord {
	return &feedback.FeedbackRecord{
		ID:           uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		SessionID:    uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Title:        "U12 training session",
		OverallScore: ptr(50),
		Questioning:  datatypes.JSON(`{"score":6,"comments":"mostly closed questions"}`),
		Language:     datatypes.JSON(`{"score":7}`),
		Strengths:    datatypes.JSON(`["clear instructions"]`),
		Summary:      "A solid session with good player engagement.",
	}
}

func TestBuildViewAbsentPayloadEqualsBaseOnly(t *testing.T) {
	rec := baseRecord()
	view := BuildView(rec, ParsePayload(nil, nil))

	if view.OverallScore != 50 {
		t.Fatalf("overall score = %v, want 50", view.OverallScore)
	}
	if got := view.Questioning.Number("score"); got != 6 {
		t.Fatalf("questioning score = %v, want 6", got)
	}
	if got := view.Questioning.Text("comments"); got != "mostly closed questions" {
		t.Fatalf("questioning comments = %q", got)
	}
	// Absent topic blocks must still be present and empty, never nil.
	for name, b := range map[string]Block{
		"key_info":          view.KeyInfo,
		"coach_behaviours":  view.CoachBehaviours,
		"player_engagement": view.PlayerEngagement,
		"intended_outcomes": view.IntendedOutcomes,
	} {
		if b == nil {
			t.Fatalf("topic %s is nil", name)
		}
	}
	if !reflect.DeepEqual(Texts(view.Strengths), []string{"clear instructions"}) {
		t.Fatalf("strengths = %v", view.Strengths)
	}
}

func TestBuildViewMalformedPayloadEqualsAbsent(t *testing.T) {
	rec := baseRecord()
	absent := BuildView(rec, ParsePayload(nil, nil))
	malformed := BuildView(rec, ParsePayload(`{not json at all`, nil))

	if !reflect.DeepEqual(absent, malformed) {
		t.Fatalf("malformed payload must normalize like an absent one\nabsent:    %+v\nmalformed: %+v", absent, malformed)
	}
}

func TestBuildViewOverallScorePrecedence(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		base    *float64
		want    float64
	}{
		{
			name:    "synthesized_wins",
			payload: `{"openaiAnalysis":{"overallScore":90},"synthesizedInsights":{"overallScore":95}}`,
			base:    ptr(50),
			want:    95,
		},
		{
			name:    "synthesized_only",
			payload: `{"openaiAnalysis":{},"synthesizedInsights":{"overallScore":87}}`,
			base:    ptr(42),
			want:    87,
		},
		{
			name:    "openai_root_when_no_synthesized",
			payload: `{"openaiAnalysis":{"overallScore":90}}`,
			base:    ptr(50),
			want:    90,
		},
		{
			name:    "legacy_never_overrides_overall",
			payload: `{"openai":{"overallScore":99}}`,
			base:    ptr(50),
			want:    50,
		},
		{
			name:    "base_when_payload_empty",
			payload: `{"openaiAnalysis":{}}`,
			base:    ptr(61),
			want:    61,
		},
		{
			name:    "default_zero",
			payload: `{"openaiAnalysis":{}}`,
			base:    nil,
			want:    0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := baseRecord()
			rec.OverallScore = tc.base
			view := BuildView(rec, ParsePayload(tc.payload, nil))
			if view.OverallScore != tc.want {
				t.Fatalf("overall score = %v, want %v", view.OverallScore, tc.want)
			}
		})
	}
}

func TestBuildViewLegacyTopicMerge(t *testing.T) {
	rec := baseRecord()
	view := BuildView(rec, ParsePayload(`{"openai":{"questioning":{"score":9,"openEnded":true}}}`, nil))

	if got := view.Questioning.Number("score"); got != 9 {
		t.Fatalf("provider key must override base: score = %v, want 9", got)
	}
	if got := view.Questioning.Text("comments"); got != "mostly closed questions" {
		t.Fatalf("base key not overridden must be retained: %q", got)
	}
	if got, ok := view.Questioning["openEnded"]; !ok || got != true {
		t.Fatalf("provider-only key lost: %v", view.Questioning)
	}
	// Untouched topic keeps base content.
	if got := view.Language.Number("score"); got != 7 {
		t.Fatalf("language score = %v, want 7", got)
	}
}

func TestBuildViewSupplementaryProvidersAreAdditive(t *testing.T) {
	rec := baseRecord()
	payload := `{
		"openaiAnalysis":{"detailed":{"questioning":{"score":8}}},
		"claudeAnalysis":{"questioning":{"depth":"probing follow-ups"}},
		"perplexityAnalysis":{"questioning":{"citations":["study A"]}}
	}`
	view := BuildView(rec, ParsePayload(payload, nil))

	if got := view.Questioning.Number("score"); got != 8 {
		t.Fatalf("primary score = %v, want 8", got)
	}
	ci := asBlock(view.Questioning["claudeInsights"])
	if ci.Text("depth") != "probing follow-ups" {
		t.Fatalf("claude annotation missing: %v", view.Questioning)
	}
	if _, ok := view.Questioning["researchEvidence"]; !ok {
		t.Fatalf("perplexity annotation missing: %v", view.Questioning)
	}
	// Supplementary data must never replace the primary score.
	withConflict := `{
		"openaiAnalysis":{"detailed":{"questioning":{"score":8}}},
		"claudeAnalysis":{"questioning":{"score":1}}
	}`
	view = BuildView(rec, ParsePayload(withConflict, nil))
	if got := view.Questioning.Number("score"); got != 8 {
		t.Fatalf("claude overwrote primary score: %v", got)
	}
}

func TestBuildViewDoesNotMutateParsedPayload(t *testing.T) {
	p := ParsePayload(`{"openaiAnalysis":{"detailed":{"questioning":{"score":8}}},"claudeAnalysis":{"questioning":{"x":1}}}`, nil)
	before := ParsePayload(`{"openaiAnalysis":{"detailed":{"questioning":{"score":8}}},"claudeAnalysis":{"questioning":{"x":1}}}`, nil)

	_ = BuildView(baseRecord(), p)

	if !reflect.DeepEqual(p, before) {
		t.Fatalf("merge mutated the parsed payload")
	}
}

func TestBuildViewIdempotent(t *testing.T) {
	rec := baseRecord()
	rec.MultiAiAnalysis = datatypes.JSON(`{"openaiAnalysis":{"overallScore":90},"synthesizedInsights":{"overallScore":95}}`)

	first := BuildView(rec, ParsePayload(decodeRaw(rec.MultiAiAnalysis), nil))
	second := BuildView(rec, ParsePayload(decodeRaw(rec.MultiAiAnalysis), nil))

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("building twice from the same record diverged\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if first.OverallScore != 95 {
		t.Fatalf("overall score = %v, want 95", first.OverallScore)
	}
}

func TestBuildViewSyntheticFallbacks(t *testing.T) {
	rec := baseRecord()
	rec.Strengths = nil
	rec.Improvements = nil
	rec.Summary = "Real strengths on display, with scope for improvement."

	view := BuildView(rec, ParsePayload(nil, nil))

	if len(view.Strengths) != 1 || !view.Strengths[0].Synthetic {
		t.Fatalf("want one synthetic strength, got %+v", view.Strengths)
	}
	if len(view.Improvements) != 1 || !view.Improvements[0].Synthetic {
		t.Fatalf("want one synthetic improvement, got %+v", view.Improvements)
	}

	rec.Summary = ""
	view = BuildView(rec, ParsePayload(nil, nil))
	if len(view.Strengths) != 0 || len(view.Improvements) != 0 {
		t.Fatalf("no summary means no synthetic entries, got %+v / %+v", view.Strengths, view.Improvements)
	}
}

func TestBuildViewStrengthsStoredAsEncodedString(t *testing.T) {
	rec := baseRecord()
	// Older rows persisted the list as a JSON-encoded array string.
	rec.Strengths = datatypes.JSON(`"[\"paced the drills well\",\"positive tone\"]"`)

	view := BuildView(rec, ParsePayload(nil, nil))
	if !reflect.DeepEqual(Texts(view.Strengths), []string{"paced the drills well", "positive tone"}) {
		t.Fatalf("strengths = %v", Texts(view.Strengths))
	}
}
