package capability

import "fmt"

const (
	QualityStandard = "standard"
	QualityHD       = "hd"
)

// ImageProfile describes an image model. Prices maps resolution to quality to dollars per image;
// the resolutions and qualities a model accepts are exactly the keys of that table.
type ImageProfile struct {
	Model          string
	MinPromptChars int
	MaxPromptChars int
	MinAmount      int
	MaxAmount      int
	Styles         []string
	Prices         map[string]map[string]float64
}

var ImageModels = map[string]ImageProfile{
	"dall-e-2": {
		Model:          "dall-e-2",
		MinPromptChars: 1,
		MaxPromptChars: 1000,
		MinAmount:      1,
		MaxAmount:      10,
		Prices: map[string]map[string]float64{
			"256x256":   {QualityStandard: 0.016},
			"512x512":   {QualityStandard: 0.018},
			"1024x1024": {QualityStandard: 0.020},
		},
	},
	"dall-e-3": {
		Model:          "dall-e-3",
		MinPromptChars: 1,
		MaxPromptChars: 4000,
		MinAmount:      1,
		MaxAmount:      1,
		Styles:         []string{"vivid", "natural"},
		Prices: map[string]map[string]float64{
			"1024x1024": {QualityStandard: 0.040, QualityHD: 0.080},
			"1024x1792": {QualityStandard: 0.080, QualityHD: 0.120},
			"1792x1024": {QualityStandard: 0.080, QualityHD: 0.120},
		},
	},
}

func LookupImage(model string) (ImageProfile, error) {
	profile, ok := ImageModels[model]
	if !ok {
		return ImageProfile{}, fmt.Errorf("image model %q: %w", model, ErrUnknownModel)
	}
	return profile, nil
}

func ImageModelIDs() []string {
	return sortedKeys(ImageModels)
}

// SupportsStyle reports whether the model accepts a style parameter at all.
func (p ImageProfile) SupportsStyle() bool {
	return len(p.Styles) > 0
}

// Resolutions returns the accepted resolutions in lexical order.
func (p ImageProfile) Resolutions() []string {
	return sortedKeys(p.Prices)
}

func CheckImagePrompt(p ImageProfile, prompt string) bool {
	n := len([]rune(prompt))
	return n >= p.MinPromptChars && n <= p.MaxPromptChars
}

func CheckImageAmount(p ImageProfile, amount int) bool {
	return amount >= p.MinAmount && amount <= p.MaxAmount
}

func CheckImageResolution(p ImageProfile, resolution string) bool {
	_, ok := p.Prices[resolution]
	return ok
}

// CheckImageQuality reports whether any accepted resolution offers quality.
func CheckImageQuality(p ImageProfile, quality string) bool {
	for _, qualities := range p.Prices {
		if _, ok := qualities[quality]; ok {
			return true
		}
	}
	return false
}

func CheckImageStyle(p ImageProfile, style string) bool {
	return contains(p.Styles, style)
}

// ImagePrice returns the price of one image at resolution and quality.
func ImagePrice(p ImageProfile, resolution, quality string) (float64, error) {
	qualities, ok := p.Prices[resolution]
	if !ok {
		return 0, fmt.Errorf("%s does not support resolution %q", p.Model, resolution)
	}

	price, ok := qualities[quality]
	if !ok {
		return 0, fmt.Errorf("%s does not support quality %q at %s", p.Model, quality, resolution)
	}

	return price, nil
}
