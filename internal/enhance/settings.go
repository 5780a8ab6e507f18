package enhance

// Settings selects the enhancement stages applied to a photo. It is a plain
// value: copy it freely.
//
// Brightness, Contrast and Saturation are multiplicative factors where 1.0
// means unchanged. The zero value is not neutral (its factors are 0); start
// from DefaultSettings or IdentitySettings.
type Settings struct {
	AutoCorrect           bool    `json:"auto_correct"`
	PerspectiveCorrection bool    `json:"perspective_correction"`
	Denoise               bool    `json:"denoise"`
	Brightness            float64 `json:"brightness"`
	Contrast              float64 `json:"contrast"`
	Saturation            float64 `json:"saturation"`
	Sharpen               bool    `json:"sharpen"`
	RestoreColors         bool    `json:"restore_colors"`
}

// DefaultSettings returns the settings a new scan starts with: every
// corrective stage on, neutral factors, colour restoration off.
func DefaultSettings() Settings {
	return Settings{
		AutoCorrect:           true,
		PerspectiveCorrection: true,
		Denoise:               true,
		Brightness:            1.0,
		Contrast:              1.0,
		Saturation:            1.0,
		Sharpen:               true,
	}
}

// IdentitySettings returns settings under which Enhance only copies the
// image.
func IdentitySettings() Settings {
	return Settings{
		Brightness: 1.0,
		Contrast:   1.0,
		Saturation: 1.0,
	}
}

// IsIdentity reports whether s leaves pixels unchanged.
func (s Settings) IsIdentity() bool {
	return !s.AutoCorrect && !s.PerspectiveCorrection && !s.Denoise &&
		!s.Sharpen && !s.RestoreColors &&
		s.Brightness == 1 && s.Contrast == 1 && s.Saturation == 1
}
