package moderation

import (
	"strings"
	"unicode"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

// Scorer computes the five factor scores for a candidate. Implementations
// must be deterministic: identical input yields identical scores.
type Scorer interface {
	Score(candidate Candidate, nearbyCount int) model.FactorScores
}

// Candidate is the moderation view of a submitted post.
type Candidate struct {
	PostID      string
	Description string
	Latitude    float64
	Longitude   float64
	Category    enums.PostCategory
	Severity    enums.Severity
	HasPhoto    bool
}

// RuleScorer is the default heuristic scorer: profanity lists for toxicity,
// road-topic keyword matching for relevance, description completeness for
// quality, corroboration by recent nearby posts for context.
type RuleScorer struct{}

func NewRuleScorer() RuleScorer {
	return RuleScorer{}
}

var profanityTerms = []string{
	"блять", "бля", "сука", "хуй", "пизд", "ебан", "ебат", "мудак",
	"гондон", "долбоеб", "уебок", "шлюха",
	"fuck", "shit", "bitch", "asshole",
}

var roadTerms = []string{
	"дпс", "гаи", "гибдд", "пост", "патруль", "экипаж", "инспектор",
	"авария", "дтп", "столкновение", "камера", "тренога", "радар",
	"ремонт", "дорожные работы", "перекрыт", "объезд", "пробка",
	"лось", "лоси", "кабан", "животн", "трасса", "шоссе", "дорог",
	"машина", "стоят", "проверяют", "останавливают",
	"police", "patrol", "accident", "camera", "roadwork", "speed trap",
}

func (RuleScorer) Score(candidate Candidate, nearbyCount int) model.FactorScores {
	text := strings.ToLower(candidate.Description)

	return model.FactorScores{
		Toxicity:  scoreToxicity(text),
		Relevance: scoreRelevance(text, candidate.Category),
		Quality:   scoreQuality(candidate.Description, candidate.HasPhoto),
		Context:   scoreContext(nearbyCount),
		Image:     scoreImage(candidate.HasPhoto),
	}
}

// scoreToxicity starts at 1.0 (clean) and loses 0.3 per profanity hit.
func scoreToxicity(text string) float64 {
	score := 1.0
	for _, term := range profanityTerms {
		if strings.Contains(text, term) {
			score -= 0.3
		}
	}
	return clamp01(score)
}

// scoreRelevance combines a keyword match with a category prior: a typed
// category other than "other" is already a topical signal.
func scoreRelevance(text string, category enums.PostCategory) float64 {
	score := 0.3
	if category != enums.PostCategoryOther {
		score += 0.2
	}

	matched := 0
	for _, term := range roadTerms {
		if strings.Contains(text, term) {
			matched++
		}
	}
	switch {
	case matched >= 3:
		score += 0.5
	case matched == 2:
		score += 0.4
	case matched == 1:
		score += 0.3
	}

	return clamp01(score)
}

// scoreQuality rewards a complete, coherent description and boosts posts
// backed by a photo.
func scoreQuality(description string, hasPhoto bool) float64 {
	trimmed := strings.TrimSpace(description)
	words := strings.Fields(trimmed)

	var score float64
	switch {
	case len(words) >= 8:
		score = 0.7
	case len(words) >= 4:
		score = 0.55
	case len(words) >= 2:
		score = 0.4
	case len(words) == 1:
		score = 0.25
	}

	if letterRatio(trimmed) < 0.5 {
		score -= 0.2
	}
	if hasPhoto {
		score += 0.15
	}

	return clamp01(score)
}

// scoreContext reflects consistency with recent nearby activity: each
// corroborating post in the area raises confidence that the report is real.
func scoreContext(nearbyCount int) float64 {
	score := 0.5 + 0.1*float64(nearbyCount)
	return clamp01(score)
}

// scoreImage defaults to a neutral 0.5 when no photo is attached; an
// attached photo is treated as supporting evidence.
func scoreImage(hasPhoto bool) float64 {
	if hasPhoto {
		return 0.75
	}
	return 0.5
}

func letterRatio(text string) float64 {
	if text == "" {
		return 0
	}
	letters := 0
	total := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
