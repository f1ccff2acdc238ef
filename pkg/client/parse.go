package client

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/emotion-detector/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

type modelScore struct {
	Label   string  `json:"label"`
	Emotion string  `json:"emotion"`
	Score   float64 `json:"score"`
}

type modelResponse struct {
	Emotions []modelScore `json:"emotions"`
}

// ParseEmotionJSON parses the JSON reply of a language model into a
// distribution over types.TextEmotions. Unknown labels are dropped.
func ParseEmotionJSON(raw string) ([]types.EmotionScore, error) {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("no json object in model response")
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	scores := make([]modelScore, 0, len(resp.Emotions))
	for _, s := range resp.Emotions {
		if s.Label == "" {
			s.Label = s.Emotion
		}
		scores = append(scores, s)
	}

	out := normalizeScores(scores)
	if len(out) == 0 {
		return nil, fmt.Errorf("model response contains no known emotion labels")
	}
	return out, nil
}

// normalizeScores maps labels onto types.TextEmotions in canonical order,
// clamping scores to [0,1]. Duplicate labels keep the first score.
func normalizeScores(in []modelScore) []types.EmotionScore {
	seen := make(map[string]float64, len(in))
	for _, s := range in {
		label := canonicalLabel(s.Label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = clamp(s.Score, 0, 1)
	}

	out := make([]types.EmotionScore, 0, len(seen))
	for _, label := range types.TextEmotions {
		if score, ok := seen[label]; ok {
			out = append(out, types.EmotionScore{Emotion: label, Confidence: score})
		}
	}
	return out
}

// canonicalLabel folds common model spellings onto the text label set
func canonicalLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	switch label {
	case "angry":
		return "anger"
	case "disgusted":
		return "disgust"
	case "fearful", "afraid":
		return "fear"
	case "happy", "happiness":
		return "joy"
	case "sad":
		return "sadness"
	case "surprised":
		return "surprise"
	}
	for _, known := range types.TextEmotions {
		if label == known {
			return label
		}
	}
	return ""
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// Scores builds a score list from label/score pairs, used by backends that
// decode typed responses
func Scores(pairs map[string]float64) []types.EmotionScore {
	in := make([]modelScore, 0, len(pairs))
	for label, score := range pairs {
		in = append(in, modelScore{Label: label, Score: score})
	}
	return normalizeScores(in)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
