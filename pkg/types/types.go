package types

// Emotion label sets per modality
var (
	FaceEmotions  = []string{"Angry", "Disgust", "Fear", "Happy", "Sad", "Surprise", "Neutral"}
	TextEmotions  = []string{"anger", "disgust", "fear", "joy", "neutral", "sadness", "surprise"}
	VoiceEmotions = []string{"Angry", "Happy", "Sad", "Neutral"}
)

// Placeholder labels reported while no trained model is wired in
const (
	NeutralFace  = "Neutral"
	NeutralText  = "neutral"
	NeutralVoice = "Neutral"
)

// BBox is a face bounding box in pixel coordinates
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectionResult is produced for every face region found in a frame
type DetectionResult struct {
	BBox       BBox    `json:"bbox"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// EmotionScore is one label/score pair of a distribution
type EmotionScore struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// TextEmotionResult contains the outcome of a text analysis call.
// AllEmotions is nil for the default result.
type TextEmotionResult struct {
	Emotion     string         `json:"emotion"`
	Confidence  float64        `json:"confidence"`
	AllEmotions []EmotionScore `json:"all_emotions,omitempty"`
}

// VoiceResult contains the outcome of a voice analysis call
type VoiceResult struct {
	Emotion    string    `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Features   []float64 `json:"features,omitempty"`
}
