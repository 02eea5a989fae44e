package detection

import (
	"image"
	"math"
	"sort"
)

// point is a pixel position.
type point struct {
	X, Y int
}

// contour is one outer outline of a connected group of edge pixels.
type contour struct {
	// bounds is the bounding rectangle of the component, exclusive max.
	bounds image.Rectangle

	// outline is the traced outer boundary, clockwise from the top-left pixel.
	outline []point

	// area is the polygon area enclosed by outline (pixel centres as
	// vertices), so a filled w×h block has area (w-1)*(h-1).
	area float64

	// pixels is the number of edge pixels in the component.
	pixels int
}

// mooreOffsets lists the 8 neighbours clockwise starting at west, in image
// coordinates (y grows downward).
var mooreOffsets = [8]point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// mooreIndex maps a (dx+1, dy+1) offset back to its position in mooreOffsets.
var mooreIndex = [3][3]int{
	// dy = -1, 0, 1 for dx = -1
	{1, 0, 7},
	// dx = 0
	{2, -1, 6},
	// dx = 1
	{3, 4, 5},
}

// findExternalContours finds the outermost contours of a binary edge image.
//
// Edge pixels (non-zero) are grouped into 8-connected components with an
// iterative flood fill. A component is external when it touches the image
// border or borders background that is 4-connected to the border; components
// sitting inside the hole of another component are dropped.
//
// For each external component the outer boundary is traced with Moore
// neighbour tracing and its enclosed area computed with the shoelace formula.
// Contours are returned in raster order of their top-left pixel.
func findExternalContours(edges *image.Gray) []contour {
	bounds := edges.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	set := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := edges.Pix[edges.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			set[y*width+x] = row[x] != 0
		}
	}

	outside := outsideBackground(set, width, height)
	labels := make([]int32, width*height)
	contours := make([]contour, 0)

	var label int32
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !set[i] || labels[i] != 0 {
				continue
			}
			label++
			c, external := labelComponent(set, outside, labels, label, x, y, width, height)
			if !external {
				continue
			}
			c.outline = traceBoundary(labels, label, point{X: x, Y: y}, width, height, c.pixels)
			c.area = polygonArea(c.outline)
			contours = append(contours, c)
		}
	}

	return contours
}

// largestContours sorts contours by enclosed area, largest first, and keeps
// at most limit of them. Equal areas keep their raster order.
func largestContours(contours []contour, limit int) []contour {
	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].area > contours[j].area
	})
	if limit > 0 && len(contours) > limit {
		contours = contours[:limit]
	}
	return contours
}

// outsideBackground marks background pixels reachable from the image border
// through 4-connected background.
func outsideBackground(set []bool, width, height int) []bool {
	outside := make([]bool, width*height)
	stack := make([]int, 0, 2*(width+height))

	push := func(x, y int) {
		i := y*width + x
		if set[i] || outside[i] {
			return
		}
		outside[i] = true
		stack = append(stack, i)
	}

	for x := 0; x < width; x++ {
		push(x, 0)
		push(x, height-1)
	}
	for y := 0; y < height; y++ {
		push(0, y)
		push(width-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		if x > 0 {
			push(x-1, y)
		}
		if x < width-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < height-1 {
			push(x, y+1)
		}
	}

	return outside
}

// labelComponent performs an iterative 8-connected flood fill from (startX,
// startY), writing label into labels. It reports the component's bounding
// box and pixel count, and whether the component is external.
func labelComponent(set, outside []bool, labels []int32, label int32, startX, startY, width, height int) (contour, bool) {
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	pixels := 0
	external := false

	stack := []point{{X: startX, Y: startY}}
	labels[startY*width+startX] = label

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pixels++

		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}

		if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
			external = true
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if !set[j] {
					// Only 4-neighbours count as touching the outside background
					if (dx == 0 || dy == 0) && outside[j] {
						external = true
					}
					continue
				}
				if labels[j] != 0 {
					continue
				}
				labels[j] = label
				stack = append(stack, point{X: nx, Y: ny})
			}
		}
	}

	return contour{
		bounds: image.Rect(minX, minY, maxX+1, maxY+1),
		pixels: pixels,
	}, external
}

// traceBoundary walks the outer boundary of the component carrying label,
// starting at its raster-first pixel. The west neighbour of that pixel is
// never part of the component, so it serves as the initial backtrack.
//
// Tracing stops when the walk is about to repeat its first move from the
// start pixel (Jacob's stopping criterion), or after a safety bound
// proportional to the component size.
func traceBoundary(labels []int32, label int32, start point, width, height, pixels int) []point {
	inside := func(p point) bool {
		if p.X < 0 || p.Y < 0 || p.X >= width || p.Y >= height {
			return false
		}
		return labels[p.Y*width+p.X] == label
	}

	outline := []point{start}
	cur := start
	back := 0 // west
	var second point
	moved := false
	maxSteps := 4*pixels + 8

	for step := 0; step < maxSteps; step++ {
		next, nextBack, ok := mooreStep(cur, back, inside)
		if !ok {
			break // isolated pixel
		}
		if !moved {
			second = next
			moved = true
		} else if cur == start && next == second {
			break
		}
		cur, back = next, nextBack
		outline = append(outline, cur)
	}

	if len(outline) > 1 && outline[len(outline)-1] == start {
		outline = outline[:len(outline)-1]
	}
	return outline
}

// mooreStep scans the neighbours of cur clockwise, starting just after the
// backtrack direction, and returns the first one inside the component along
// with the new backtrack direction relative to it.
func mooreStep(cur point, back int, inside func(point) bool) (point, int, bool) {
	for k := 1; k <= 8; k++ {
		d := (back + k) % 8
		n := point{X: cur.X + mooreOffsets[d].X, Y: cur.Y + mooreOffsets[d].Y}
		if !inside(n) {
			continue
		}
		prev := mooreOffsets[(back+k-1)%8]
		// prev relative to n
		dx := cur.X + prev.X - n.X
		dy := cur.Y + prev.Y - n.Y
		return n, mooreIndex[dx+1][dy+1], true
	}
	return cur, back, false
}

// polygonArea returns the absolute shoelace area of a closed polygon.
func polygonArea(pts []point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += float64(pts[i].X*pts[j].Y - pts[j].X*pts[i].Y)
	}
	return math.Abs(sum) / 2
}
