package render

import (
	"image"

	"github.com/cwrk-planet/duet/internal/domain"
)

// Board holds the local and partner buffers of one client.
type Board struct {
	w, h    int
	local   *Canvas
	partner *Canvas
}

func NewBoard(w, h int) *Board {
	return &Board{w: w, h: h, local: NewCanvas(w, h), partner: NewCanvas(w, h)}
}

func (b *Board) Reset() {
	b.local.Clear()
	b.partner.Clear()
}

func (b *Board) ApplyLocal(op domain.DrawingOperation)   { b.local.Apply(op) }
func (b *Board) ApplyPartner(op domain.DrawingOperation) { b.partner.Apply(op) }

// Compose puts player1's drawing on top whichever role this client holds.
func (b *Board) Compose(self domain.Role) image.Image {
	top, bottom := b.local.Image(), b.partner.Image()
	if self == domain.RolePlayerTwo {
		top, bottom = bottom, top
	}
	return Merge(top, bottom)
}
