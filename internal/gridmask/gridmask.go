// Package gridmask partitions the plate raster into an nx×ny grid and
// builds the exposure masks for each cell: a plate-sized brightness
// mask for pixel-dimming mode and binary per-cell region masks for
// layer-duplication mode. Both are always built; the mode switch only
// decides which one downstream code consumes.
package gridmask

import (
	"fmt"
	"math"

	"github.com/ExpertResinPrints/UVToolsScripts/internal/exposure"
	"github.com/ExpertResinPrints/UVToolsScripts/pkg/geometry"
)

// MaxDivisions caps the grid dimensions in either direction.
const MaxDivisions = 32

// Masks holds the per-cell exposure masks for one grid layout.
type Masks struct {
	Size geometry.Size
	NX   int
	NY   int

	// NMax is the number of cells with an assigned exposure:
	// min(NX*NY, len(exposures)). Cells at linear index >= NMax stay
	// at full brightness and get no region mask.
	NMax int

	// ExpMax is the largest requested exposure; in dimming mode it
	// becomes the batch exposure time.
	ExpMax float64

	// Exposures holds the first NMax requested durations, in cell
	// order.
	Exposures []float64

	// Brightness is the plate-sized dimming mask: each cell's pixels
	// hold round(255*exposure/ExpMax), unassigned cells hold 255.
	Brightness []uint8

	// Cells holds NMax binary region masks (255 inside the cell, 0
	// elsewhere), one per assigned cell.
	Cells [][]uint8

	// Rects holds the cell rectangle for each assigned cell.
	Rects []geometry.Rect
}

// Build partitions a width×height plate into nx×ny cells and assigns
// exposures to cells in row-major order (cell k = j*nx + i). Cell
// boundaries come from rounding the exact fractional step at each grid
// line, so adjacent cells tile the plate with no gap or overlap even
// when width/nx is not integral.
func Build(width, height, nx, ny int, exposures []float64) (*Masks, error) {
	if nx < 1 || nx > MaxDivisions || ny < 1 || ny > MaxDivisions {
		return nil, fmt.Errorf("grid divisions %dx%d outside [1,%d]", nx, ny, MaxDivisions)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid plate resolution %dx%d", width, height)
	}
	if len(exposures) == 0 {
		return nil, fmt.Errorf("empty exposure list")
	}

	nmax := nx * ny
	if len(exposures) < nmax {
		nmax = len(exposures)
	}

	m := &Masks{
		Size:       geometry.Size{Width: width, Height: height},
		NX:         nx,
		NY:         ny,
		NMax:       nmax,
		ExpMax:     exposure.Max(exposures),
		Exposures:  append([]float64(nil), exposures[:nmax]...),
		Brightness: make([]uint8, width*height),
		Cells:      make([][]uint8, nmax),
		Rects:      make([]geometry.Rect, nmax),
	}

	xStep := float64(width) / float64(nx)
	yStep := float64(height) / float64(ny)

	for j := 0; j < ny; j++ {
		y0 := int(math.Round(float64(j) * yStep))
		y1 := int(math.Round(float64(j)*yStep + yStep))
		for i := 0; i < nx; i++ {
			x0 := int(math.Round(float64(i) * xStep))
			x1 := int(math.Round(float64(i)*xStep + xStep))

			k := j*nx + i
			bright := uint8(255)
			if k < nmax {
				bright = exposure.Brightness(exposures[k], m.ExpMax)
				m.Rects[k] = geometry.NewRect(x0, y0, x1-x0, y1-y0)
				m.Cells[k] = make([]uint8, width*height)
			}

			for y := y0; y < y1; y++ {
				row := y * width
				for x := x0; x < x1; x++ {
					m.Brightness[row+x] = bright
					if k < nmax {
						m.Cells[k][row+x] = 255
					}
				}
			}
		}
	}

	return m, nil
}

// CellIndex returns the linear cell index owning the given pixel, or
// -1 if the pixel belongs to an unassigned cell.
func (m *Masks) CellIndex(p geometry.Point) int {
	for k, r := range m.Rects {
		if r.Contains(p) {
			return k
		}
	}
	return -1
}
