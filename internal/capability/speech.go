package capability

import "fmt"

// SpeechProfile describes a text-to-speech model. PricePer1KChars is in dollars.
type SpeechProfile struct {
	Model           string
	MaxChars        int
	Voices          []string
	Formats         []string
	Speed           Range
	PricePer1KChars float64
}

var speechVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

var speechFormats = []string{"mp3", "opus", "aac", "flac", "wav", "pcm"}

var SpeechModels = map[string]SpeechProfile{
	"tts-1":    speechProfile("tts-1", 0.015),
	"tts-1-hd": speechProfile("tts-1-hd", 0.03),
}

func speechProfile(model string, pricePer1K float64) SpeechProfile {
	return SpeechProfile{
		Model:           model,
		MaxChars:        4096,
		Voices:          speechVoices,
		Formats:         speechFormats,
		Speed:           Range{Min: 0.25, Max: 4.0},
		PricePer1KChars: pricePer1K,
	}
}

func LookupSpeech(model string) (SpeechProfile, error) {
	profile, ok := SpeechModels[model]
	if !ok {
		return SpeechProfile{}, fmt.Errorf("speech model %q: %w", model, ErrUnknownModel)
	}
	return profile, nil
}

func SpeechModelIDs() []string {
	return sortedKeys(SpeechModels)
}

func CheckSpeechInput(p SpeechProfile, input string) bool {
	n := len([]rune(input))
	return n > 0 && n <= p.MaxChars
}

func CheckSpeechVoice(p SpeechProfile, voice string) bool {
	return contains(p.Voices, voice)
}

func CheckSpeechFormat(p SpeechProfile, format string) bool {
	return contains(p.Formats, format)
}

func CheckSpeechSpeed(p SpeechProfile, speed float64) bool {
	return p.Speed.Contains(speed)
}

// SpeechCost prices the synthesis of characters characters.
func SpeechCost(p SpeechProfile, characters int) float64 {
	return float64(characters) * p.PricePer1KChars / 1000
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
