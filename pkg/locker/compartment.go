package locker

import (
	"fmt"
)

// compartment is the inner size of a locker slot in centimetres.
type compartment struct {
	size SizeCode
	dims Dimensions
}

// compartments are ordered smallest first.
var compartments = []compartment{
	{size: SizeSmall, dims: Dimensions{Length: 60, Width: 45, Height: 8}},
	{size: SizeMedium, dims: Dimensions{Length: 60, Width: 45, Height: 17}},
	{size: SizeLarge, dims: Dimensions{Length: 60, Width: 45, Height: 36}},
}

// SizeFor returns the smallest compartment a product fits in. Each axis is
// compared independently and inclusively. Products without any dimensions
// are assumed to be medium.
func SizeFor(d Dimensions) (SizeCode, error) {
	if d.Length == 0 && d.Width == 0 && d.Height == 0 {
		return SizeMedium, nil
	}

	for _, c := range compartments {
		if d.Length <= c.dims.Length && d.Width <= c.dims.Width && d.Height <= c.dims.Height {
			return c.size, nil
		}
	}

	return 0, NewValidationError("INVALID_DIMENSIONS", ErrInvalidDimensions).
		WithMessage(fmt.Sprintf("%gx%gx%g cm exceeds the largest compartment", d.Length, d.Width, d.Height))
}
