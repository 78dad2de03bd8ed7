package plot

// canvas is a grid of braille cells, each holding a 2x4 block of dots.
type canvas struct {
	cells [][]uint8
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return &canvas{cells: cells}
}

func (c *canvas) dotRows() int {
	return len(c.cells) * 4
}

func (c *canvas) dotCols() int {
	if len(c.cells) == 0 {
		return 0
	}
	return len(c.cells[0]) * 2
}

// set lights the dot at (x, y). Dots outside the canvas are ignored.
func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 || y >= c.dotRows() || x >= c.dotCols() {
		return
	}
	c.cells[y/4][x/2] |= dotBit(x%2, y%4)
}

// line draws a Bresenham segment between two dots.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Dot numbering follows the Unicode braille block:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func dotBit(col, row int) uint8 {
	return dotBits[col][row]
}

func braille(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
