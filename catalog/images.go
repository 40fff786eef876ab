package catalog

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
)

// LoadImage decodes a galaxy cutout, converts it to greyscale in
// [0, 1] and resizes it to size x size with nearest-neighbour
// sampling. Augmentation policy is out of scope here; crops and flips
// belong to the pipeline that produced the cutouts.
func LoadImage(path string, size int) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode image %s", path)
	}

	bounds := img.Bounds()
	out := make([]float64, size*size)
	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/size
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			// Rec. 601 luma, 16-bit channels.
			grey := (299.0*float64(r) + 587.0*float64(g) + 114.0*float64(b)) / 1000.0
			out[y*size+x] = grey / 65535.0
		}
	}
	return out, nil
}

// LoadImages decodes every galaxy's cutout into a per-example input
// slice, in catalog order.
func LoadImages(c *Catalog, size int) ([][]float64, error) {
	inputs := make([][]float64, c.Len())
	for i, g := range c.Galaxies {
		img, err := LoadImage(g.FileLoc, size)
		if err != nil {
			return nil, errors.Wrapf(err, "galaxy %s", g.ID)
		}
		inputs[i] = img
	}
	return inputs, nil
}
