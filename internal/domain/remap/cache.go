package remap

import (
	"fmt"

	"github.com/okian/coinsum/internal/domain/model"
)

// Cache holds the letterbox transform of the last frame so that a constant
// input resolution does not have to resend it with every frame. It is owned
// by a single stream and is not safe for concurrent use.
type Cache struct {
	transform model.LetterboxTransform
	width     int
	height    int
	valid     bool
}

// Resolve returns the transform to use for a frame of the given size.
// A reported transform replaces the cached one. Without a report, the cached
// transform is reused only when the frame size is unchanged.
func (c *Cache) Resolve(reported *model.LetterboxTransform, width, height int) (model.LetterboxTransform, error) {
	if reported != nil {
		if err := Validate(*reported); err != nil {
			c.Reset()
			return model.LetterboxTransform{}, err
		}
		c.transform, c.width, c.height, c.valid = *reported, width, height, true
		return c.transform, nil
	}
	if !c.valid {
		return model.LetterboxTransform{}, fmt.Errorf("%w: no transform reported and none cached", ErrInvalidTransform)
	}
	if c.width != width || c.height != height {
		c.Reset()
		return model.LetterboxTransform{}, fmt.Errorf("%w: frame size changed to %dx%d without a new transform", ErrInvalidTransform, width, height)
	}
	return c.transform, nil
}

// Reset drops the cached transform.
func (c *Cache) Reset() {
	*c = Cache{}
}

// Cached reports whether a transform is currently held.
func (c *Cache) Cached() bool {
	return c.valid
}
