package model

import (
	"image"

	"mitoseg/internal/measure"
)

// Instance is one object predicted by a segmentation model.
type Instance struct {
	ClassID   int
	ClassName string
	Score     float64
	Box       image.Rectangle
	Mask      *measure.Mask
}

// Segmentation is the inference output for one image.
type Segmentation struct {
	Width      int
	Height     int
	ClassNames []string
	Instances  []Instance
}

// ClassName resolves a class index against the model's class list.
func (s *Segmentation) ClassName(id int) string {
	if id >= 0 && id < len(s.ClassNames) {
		return s.ClassNames[id]
	}
	return UnknownClass
}

// UnknownClass labels objects whose class cannot be resolved.
const UnknownClass = "Unknown"
