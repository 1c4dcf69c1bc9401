package prompts

import "strings"

// RealismModifiers are the anti-AI-gloss vocabulary injected into image
// prompts. Treated as configuration: tuning the lists changes output style
// without touching the builders.
var RealismModifiers = struct {
	Camera        []string
	Skin          []string
	Lighting      []string
	Imperfections []string
	Negative      []string
}{
	Camera: []string{
		"shot on iPhone 15 Pro",
		"front-facing camera selfie",
		"natural smartphone camera quality",
		"unedited iPhone photo",
		"casual phone snapshot aesthetic",
	},
	Skin: []string{
		"natural skin texture with visible pores",
		"subtle skin imperfections",
		"real human skin with natural variations",
		"unretouched skin appearance",
		"authentic complexion with minor blemishes",
	},
	Lighting: []string{
		"natural window light",
		"slightly overexposed highlights near windows",
		"warm indoor ambient lighting",
		"soft diffused daylight",
		"real-world mixed lighting conditions",
	},
	Imperfections: []string{
		"flyaway hairs",
		"slight facial asymmetry",
		"natural fabric wrinkles",
		"lived-in environment",
		"authentic unposed moment",
	},
	Negative: []string{
		"no plastic skin",
		"no airbrushed appearance",
		"no artificial glossy look",
		"no 3D render aesthetic",
		"no perfect symmetry",
		"no studio lighting",
		"no over-saturated colors",
		"no AI-generated smoothness",
	},
}

// EnforceRealism appends key anti-gloss modifiers to a generated character
// prompt when the model omitted them. The model usually includes both; this
// is the backstop.
func EnforceRealism(prompt string) string {
	lower := strings.ToLower(prompt)
	if !strings.Contains(lower, "iphone") {
		prompt += " Shot on iPhone 15 Pro, unedited."
	}
	if !strings.Contains(lower, "pore") && !strings.Contains(lower, "skin texture") {
		prompt += " Natural skin texture with visible pores."
	}
	return prompt
}
