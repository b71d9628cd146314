package capability

import (
	"fmt"
	"strings"
)

// TranscriptionProfile describes a speech-to-text model. Languages are ISO-639-1 codes;
// PricePerMinute is in dollars.
type TranscriptionProfile struct {
	Model            string
	Languages        []string
	Temperature      Range
	UploadLimitBytes int64
	PricePerMinute   float64
}

var whisperLanguages = []string{
	"af", "ar", "hy", "az", "be", "bs", "bg", "ca", "zh", "hr", "cs", "da", "nl", "en", "et",
	"fi", "fr", "gl", "de", "el", "he", "hi", "hu", "is", "id", "it", "ja", "kn", "kk", "ko",
	"lv", "lt", "mk", "ms", "mr", "mi", "ne", "no", "fa", "pl", "pt", "ro", "ru", "sr", "sk",
	"sl", "es", "sw", "sv", "tl", "ta", "th", "tr", "uk", "ur", "vi", "cy",
}

var TranscriptionModels = map[string]TranscriptionProfile{
	"whisper-1": {
		Model:            "whisper-1",
		Languages:        whisperLanguages,
		Temperature:      Range{Min: 0, Max: 2},
		UploadLimitBytes: 25_000_000,
		PricePerMinute:   0.006,
	},
}

func LookupTranscription(model string) (TranscriptionProfile, error) {
	profile, ok := TranscriptionModels[model]
	if !ok {
		return TranscriptionProfile{}, fmt.Errorf("transcription model %q: %w", model, ErrUnknownModel)
	}
	return profile, nil
}

func TranscriptionModelIDs() []string {
	return sortedKeys(TranscriptionModels)
}

// CheckTranscriptionLanguage matches language case-insensitively.
func CheckTranscriptionLanguage(p TranscriptionProfile, language string) bool {
	return contains(p.Languages, strings.ToLower(language))
}

func CheckTranscriptionTemperature(p TranscriptionProfile, temperature float64) bool {
	return p.Temperature.Contains(temperature)
}

// CheckTranscriptionInput reports whether an upload of size bytes is accepted.
func CheckTranscriptionInput(p TranscriptionProfile, size int64) bool {
	return size > 0 && size < p.UploadLimitBytes
}

// TranscriptionCost prices seconds of audio.
func TranscriptionCost(p TranscriptionProfile, seconds int) float64 {
	return float64(seconds) * p.PricePerMinute / 60
}
