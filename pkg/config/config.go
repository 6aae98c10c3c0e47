package config

import "time"

// NOTE: canvas pixels are written from left to right, top to bottom
const (
	// canvas, matches the paper model of the placement preview
	CanvasWidth  = 2400
	CanvasHeight = 1600

	// ink defaults
	DefaultStrokeColor = "#003264"
	DefaultStrokeWidth = 5.0
	DefaultLegibility  = 50
	DefaultLineSpacing = 80
	DefaultLineWidth   = 43 // chars per line

	// jpg quality is clamped into this range, never rejected
	QualityMin     = 50
	QualityMax     = 100
	QualityDefault = 95

	// progress animation: a run is split into at most AnimTicks ticks
	AnimTicks     = 50
	AnimTickDelay = 15 * time.Millisecond

	// burst coalescing for resize-like event storms
	DebounceDelay       = 150 * time.Millisecond
	DebounceResizeKey   = "window-resize"
	DebounceSettleDelay = 180 * time.Millisecond

	// Path
	PathWorkspaceRoot = "tmp/runs"
	PathPrefs         = ".userprefs.json"

	// style book
	StyleCount = 12
)
