// Package preprocess letterboxes video frames into square model input and
// reports the transform needed to map detections back.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/okian/coinsum/internal/domain/model"
)

// padValue is the grey used for letterbox borders, as a [0,1] intensity.
const padValue = 114.0 / 255.0

// ErrInvalidImage is returned for empty images or non-positive sizes.
var ErrInvalidImage = errors.New("invalid image")

// Result is a letterboxed frame ready for inference.
type Result struct {
	// Tensor is CHW, RGB, values in [0,1].
	Tensor    []float32
	Shape     model.Shape
	Transform model.LetterboxTransform
}

// ComputeTransform returns the scale and padding that fit a w x h frame into
// a size x size square while preserving aspect ratio.
func ComputeTransform(w, h, size int) (model.LetterboxTransform, error) {
	if w <= 0 || h <= 0 || size <= 0 {
		return model.LetterboxTransform{}, fmt.Errorf("%w: %dx%d into %d", ErrInvalidImage, w, h, size)
	}
	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	newW, newH := scaled(w, scale), scaled(h, scale)
	// Pads are whole pixels: an odd remainder goes to the right and bottom.
	return model.LetterboxTransform{
		Scale: scale,
		PadX:  float64((size - newW) / 2),
		PadY:  float64((size - newH) / 2),
	}, nil
}

func scaled(v int, scale float64) int {
	return int(math.Round(float64(v) * scale))
}

// Letterbox resizes img into a square of size aligned up to stride.
func Letterbox(img image.Image, size, stride int) (Result, error) {
	if img == nil {
		return Result{}, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if stride <= 0 {
		return Result{}, fmt.Errorf("%w: stride %d", ErrInvalidImage, stride)
	}
	size = alignUp(size, stride)

	b := img.Bounds()
	t, err := ComputeTransform(b.Dx(), b.Dy(), size)
	if err != nil {
		return Result{}, err
	}
	newW, newH := scaled(b.Dx(), t.Scale), scaled(b.Dy(), t.Scale)
	resized := resize.Resize(uint(newW), uint(newH), img, resize.Bilinear)

	plane := size * size
	tensor := make([]float32, 3*plane)
	for i := range tensor {
		tensor[i] = padValue
	}

	left, top := int(t.PadX), int(t.PadY)
	rb := resized.Bounds()
	for y := 0; y < rb.Dy(); y++ {
		for x := 0; x < rb.Dx(); x++ {
			r, g, bl, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			off := (top+y)*size + left + x
			tensor[off] = float32(r) / 0xffff
			tensor[plane+off] = float32(g) / 0xffff
			tensor[2*plane+off] = float32(bl) / 0xffff
		}
	}

	return Result{
		Tensor:    tensor,
		Shape:     model.Shape{Batch: 1, Height: size, Width: size},
		Transform: t,
	}, nil
}

// Frame letterboxes img and wraps it as a pipeline frame.
func Frame(id string, img image.Image, size, stride int) (model.Frame, error) {
	res, err := Letterbox(img, size, stride)
	if err != nil {
		return model.Frame{}, err
	}
	b := img.Bounds()
	t := res.Transform
	return model.Frame{
		ID:        id,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Shape:     res.Shape,
		Tensor:    res.Tensor,
		Transform: &t,
	}, nil
}

func alignUp(size, stride int) int {
	return int(math.Ceil(float64(size)/float64(stride))) * stride
}
