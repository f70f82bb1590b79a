package moderation

import (
	"errors"
	"fmt"
	"math"

	"github.com/Iornfire12211221/KNG-sub001/internal/config"
)

const weightTolerance = 1e-6

var ErrInvalidSettings = errors.New("invalid moderation settings")

type Weights struct {
	Toxicity  float64
	Relevance float64
	Quality   float64
	Context   float64
	Image     float64
}

type Settings struct {
	Weights          Weights
	ApproveThreshold float64
	RejectThreshold  float64
}

// NewSettings validates that the factor weights sum to 1.0 and the
// thresholds leave room for the flag band between them.
func NewSettings(weights Weights, approveThreshold, rejectThreshold float64) (Settings, error) {
	sum := weights.Toxicity + weights.Relevance + weights.Quality + weights.Context + weights.Image
	if math.Abs(sum-1.0) > weightTolerance {
		return Settings{}, fmt.Errorf("weights sum to %f, want 1.0: %w", sum, ErrInvalidSettings)
	}
	for _, w := range []float64{weights.Toxicity, weights.Relevance, weights.Quality, weights.Context, weights.Image} {
		if w < 0 || w > 1 {
			return Settings{}, fmt.Errorf("weight %f out of [0,1]: %w", w, ErrInvalidSettings)
		}
	}
	if approveThreshold < 0 || approveThreshold > 1 || rejectThreshold < 0 || rejectThreshold > 1 {
		return Settings{}, fmt.Errorf("thresholds out of [0,1]: %w", ErrInvalidSettings)
	}
	if rejectThreshold >= approveThreshold {
		return Settings{}, fmt.Errorf("reject threshold %f must be below approve threshold %f: %w",
			rejectThreshold, approveThreshold, ErrInvalidSettings)
	}

	return Settings{
		Weights:          weights,
		ApproveThreshold: approveThreshold,
		RejectThreshold:  rejectThreshold,
	}, nil
}

func SettingsFromConfig(cfg config.ModerationConfig) (Settings, error) {
	return NewSettings(Weights{
		Toxicity:  cfg.Weights.Toxicity,
		Relevance: cfg.Weights.Relevance,
		Quality:   cfg.Weights.Quality,
		Context:   cfg.Weights.Context,
		Image:     cfg.Weights.Image,
	}, cfg.ApproveThreshold, cfg.RejectThreshold)
}

// FlagMidpoint is the center of the flag band between the two thresholds.
func (s Settings) FlagMidpoint() float64 {
	return (s.ApproveThreshold + s.RejectThreshold) / 2
}
