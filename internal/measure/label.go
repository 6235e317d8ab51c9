package measure

import "image"

// Labels is a label image: 0 is background, 1..Count are components.
type Labels struct {
	Width  int
	Height int
	Pix    []int
	Count  int
}

func (l *Labels) at(x, y int) int {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0
	}
	return l.Pix[y*l.Width+x]
}

// Label assigns a label to every 8-connected foreground component of m.
// Components are numbered in raster order of their first pixel.
func Label(m *Mask) *Labels {
	labels := &Labels{
		Width:  m.Width,
		Height: m.Height,
		Pix:    make([]int, len(m.Pix)),
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if m.Pix[i] && labels.Pix[i] == 0 {
				labels.Count++
				floodFill(m, labels, x, y, labels.Count)
			}
		}
	}

	return labels
}

// wholeMask labels every foreground pixel of m with 1, regardless of connectivity.
func wholeMask(m *Mask) *Labels {
	labels := &Labels{
		Width:  m.Width,
		Height: m.Height,
		Pix:    make([]int, len(m.Pix)),
	}
	for i, v := range m.Pix {
		if v {
			labels.Pix[i] = 1
			labels.Count = 1
		}
	}
	return labels
}

// floodFill writes label into every pixel reachable from (startX, startY).
func floodFill(m *Mask, labels *Labels, startX, startY, label int) {
	stack := []image.Point{{X: startX, Y: startY}}
	labels.Pix[startY*m.Width+startX] = label

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				x, y := p.X+dx, p.Y+dy
				if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
					continue
				}
				i := y*m.Width + x
				if !m.Pix[i] || labels.Pix[i] != 0 {
					continue
				}
				labels.Pix[i] = label
				stack = append(stack, image.Point{X: x, Y: y})
			}
		}
	}
}
