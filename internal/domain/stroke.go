package domain

import (
	"fmt"
	"math"
)

type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// DrawingOperation is one stroke segment. The server forwards it as is.
type DrawingOperation struct {
	FromX   float64  `json:"fromX"`
	FromY   float64  `json:"fromY"`
	ToX     float64  `json:"toX"`
	ToY     float64  `json:"toY"`
	Tool    Tool     `json:"tool"`
	Size    float64  `json:"size"`
	Color   [3]uint8 `json:"color"`
	Opacity int      `json:"opacity"`
}

func (op DrawingOperation) Validate() error {
	switch op.Tool {
	case ToolBrush, ToolEraser:
	default:
		return fmt.Errorf("%w: unknown tool %q", ErrInvalidOperation, op.Tool)
	}
	if !(op.Size > 0) || math.IsInf(op.Size, 0) {
		return fmt.Errorf("%w: size must be positive", ErrInvalidOperation)
	}
	if op.Opacity < 0 || op.Opacity > 255 {
		return fmt.Errorf("%w: opacity %d out of range", ErrInvalidOperation, op.Opacity)
	}
	for _, v := range [...]float64{op.FromX, op.FromY, op.ToX, op.ToY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidOperation)
		}
	}
	return nil
}
