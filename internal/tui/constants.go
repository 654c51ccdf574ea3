package tui

import "time"

const (
	// Timeouts and Intervals
	NoticeDuration = 4 * time.Second

	// Input Dimensions
	InputWidth = 50

	// Layout Offsets and Padding
	HeaderWidthOffset      = 2
	ProgressBarWidthOffset = 4
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0
	PopupPaddingX          = 2

	// Popup sizes
	PopupWidth  = 80
	PopupHeight = 13

	// Channel Buffers
	ProgressChannelBuffer = 100
)
