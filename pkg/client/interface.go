package client

import (
	"context"

	"github.com/menta2k/emotion-detector/pkg/types"
)

// TextClassifier returns an emotion distribution for a piece of text. Backends
// that do not take instructions ignore prompt.
type TextClassifier interface {
	ClassifyText(ctx context.Context, model, prompt, text string) ([]types.EmotionScore, error)
}
