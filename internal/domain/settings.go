package domain

// ReadingDirection is the page layout orientation of the reader.
type ReadingDirection string

// Reading directions supported by the reader UI.
const (
	DirectionHorizontal ReadingDirection = "horizontal"
	DirectionVertical   ReadingDirection = "vertical"
)

// ReaderSettings holds per-book reader preferences.
// Sync carries these verbatim; the engine never inspects them.
type ReaderSettings struct {
	Bionic      BionicSettings      `json:"bionic"`
	ReadAloud   ReadAloudSettings   `json:"readAloud"`
	Translation TranslationSettings `json:"translation"`
	Direction   ReadingDirection    `json:"readingDirection" validate:"oneof=horizontal vertical"`
	Scale       float64             `json:"scale"`
	ColorMode   ColorModeSettings   `json:"colorMode"`
}

// BionicSettings controls bionic-reading bolding.
type BionicSettings struct {
	On       bool `json:"on"`
	Boldness int  `json:"boldness" validate:"gte=0,lte=5"`
}

// ReadAloudSettings controls text-to-speech playback.
type ReadAloudSettings struct {
	On    bool    `json:"on"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// TranslationSettings controls inline translation.
type TranslationSettings struct {
	On     bool   `json:"on"`
	Target string `json:"target"`
}

// ColorModeSettings controls the reader color filter.
type ColorModeSettings struct {
	On   bool   `json:"on"`
	Mode string `json:"mode"`
}

// DefaultSettings returns the reader preferences applied to newly imported books.
func DefaultSettings() ReaderSettings {
	return ReaderSettings{
		Bionic:    BionicSettings{Boldness: 3},
		ReadAloud: ReadAloudSettings{Voice: "en_US-lessac-high", Speed: 1.0},
		Direction: DirectionHorizontal,
		Scale:     1.0,
		ColorMode: ColorModeSettings{Mode: "normal"},
	}
}
