// Last-used generation options, persisted between runs. Loading is
// forgiving: a missing or corrupt file just means defaults.
package prefs

import (
	"encoding/json"
	"os"

	"github.com/1F47E/go-inkwell/pkg/config"
	"github.com/1F47E/go-inkwell/pkg/logger"
)

var log = logger.Log

type Prefs struct {
	Style          int     `json:"style"`
	StrokeColor    string  `json:"stroke_color"`
	StrokeWidth    float64 `json:"stroke_width"`
	Legibility     int     `json:"legibility"`
	LineWidth      int     `json:"line_width"`
	LineSpacing    int     `json:"line_spacing"`
	BackgroundType string  `json:"background_type"`
	BackgroundHex  string  `json:"background_color"`
	ExportFormat   string  `json:"export_format"`
	JPGQuality     int     `json:"jpg_quality"`
}

func Default() Prefs {
	return Prefs{
		StrokeColor:    config.DefaultStrokeColor,
		StrokeWidth:    config.DefaultStrokeWidth,
		Legibility:     config.DefaultLegibility,
		LineWidth:      config.DefaultLineWidth,
		LineSpacing:    config.DefaultLineSpacing,
		BackgroundType: "white",
		BackgroundHex:  "#FFFFFF",
		ExportFormat:   "png",
		JPGQuality:     config.QualityDefault,
	}
}

// Load reads prefs from path, falling back to defaults on any problem.
func Load(path string) Prefs {
	prefs := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return prefs
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		log.WithField("scope", "prefs").Warnf("corrupt prefs file %s, using defaults: %v", path, err)
		return Default()
	}
	return prefs
}

// Save writes prefs to path, best effort. Never worth crashing over.
func Save(path string, prefs Prefs) {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		log.WithField("scope", "prefs").Warnf("cannot marshal prefs: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.WithField("scope", "prefs").Warnf("cannot save prefs: %v", err)
	}
}
