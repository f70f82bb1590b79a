package moderation

import (
	"testing"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
)

func TestRuleScorerToxicity(t *testing.T) {
	scorer := NewRuleScorer()

	clean := scorer.Score(Candidate{Description: "дпс стоят на выезде из города", Category: enums.PostCategoryDPS}, 0)
	dirty := scorer.Score(Candidate{Description: "эти мудаки опять стоят на выезде", Category: enums.PostCategoryDPS}, 0)

	if clean.Toxicity != 1.0 {
		t.Fatalf("clean text should score 1.0, got %f", clean.Toxicity)
	}
	if dirty.Toxicity >= clean.Toxicity {
		t.Fatalf("profanity should lower toxicity score: %f vs %f", dirty.Toxicity, clean.Toxicity)
	}
}

func TestRuleScorerRelevance(t *testing.T) {
	scorer := NewRuleScorer()

	onTopic := scorer.Score(Candidate{Description: "авария на трассе, дпс уже на месте", Category: enums.PostCategoryAccident}, 0)
	offTopic := scorer.Score(Candidate{Description: "продам гараж недорого", Category: enums.PostCategoryOther}, 0)

	if onTopic.Relevance <= offTopic.Relevance {
		t.Fatalf("road text should be more relevant: %f vs %f", onTopic.Relevance, offTopic.Relevance)
	}
}

func TestRuleScorerQualityPhotoBoost(t *testing.T) {
	scorer := NewRuleScorer()
	description := "стоят с радаром за мостом проверяют всех подряд"

	without := scorer.Score(Candidate{Description: description}, 0)
	with := scorer.Score(Candidate{Description: description, HasPhoto: true}, 0)

	if with.Quality <= without.Quality {
		t.Fatalf("photo should boost quality: %f vs %f", with.Quality, without.Quality)
	}
}

func TestRuleScorerImageDefaultsNeutral(t *testing.T) {
	scorer := NewRuleScorer()

	without := scorer.Score(Candidate{Description: "пост дпс"}, 0)
	if without.Image != 0.5 {
		t.Fatalf("missing photo should score neutral 0.5, got %f", without.Image)
	}

	with := scorer.Score(Candidate{Description: "пост дпс", HasPhoto: true}, 0)
	if with.Image <= without.Image {
		t.Fatalf("attached photo should score above neutral, got %f", with.Image)
	}
}

func TestRuleScorerScoresStayInRange(t *testing.T) {
	scorer := NewRuleScorer()

	scores := scorer.Score(Candidate{
		Description: "сука блять мудак гондон долбоеб уебок шлюха",
		Category:    enums.PostCategoryOther,
	}, 50)

	for name, v := range map[string]float64{
		"toxicity":  scores.Toxicity,
		"relevance": scores.Relevance,
		"quality":   scores.Quality,
		"context":   scores.Context,
		"image":     scores.Image,
	} {
		if v < 0 || v > 1 {
			t.Fatalf("%s score out of range: %f", name, v)
		}
	}
}
