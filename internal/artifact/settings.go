package artifact

// Settings is the document served at /settings.json. The schema and the
// defaults are an external contract with the BlueMap webapp and must stay
// byte-compatible with what it expects.
type Settings struct {
	Version             string   `json:"version"`
	UseCookies          bool     `json:"useCookies"`
	EnableFreeFlight    bool     `json:"enableFreeFlight"`
	DefaultToFlatView   bool     `json:"defaultToFlatView"`
	ResolutionDefault   int      `json:"resolutionDefault"`
	MinZoomDistance     int      `json:"minZoomDistance"`
	MaxZoomDistance     int      `json:"maxZoomDistance"`
	HiresSliderMax      int      `json:"hiresSliderMax"`
	HiresSliderDefault  int      `json:"hiresSliderDefault"`
	HiresSliderMin      int      `json:"hiresSliderMin"`
	LowresSliderMax     int      `json:"lowresSliderMax"`
	LowresSliderDefault int      `json:"lowresSliderDefault"`
	LowresSliderMin     int      `json:"lowresSliderMin"`
	Maps                []string `json:"maps"`
	Scripts             []string `json:"scripts"`
	Styles              []string `json:"styles"`
}

// NewSettings builds the settings document for the given maps, all other
// fields at their fixed defaults.
func NewSettings(maps ...string) Settings {
	if maps == nil {
		maps = []string{}
	}
	return Settings{
		Version:             "5.4",
		UseCookies:          true,
		EnableFreeFlight:    true,
		DefaultToFlatView:   false,
		ResolutionDefault:   1,
		MinZoomDistance:     5,
		MaxZoomDistance:     100000,
		HiresSliderMax:      500,
		HiresSliderDefault:  100,
		HiresSliderMin:      0,
		LowresSliderMax:     7000,
		LowresSliderDefault: 2000,
		LowresSliderMin:     500,
		Maps:                maps,
		Scripts:             []string{},
		Styles:              []string{},
	}
}
