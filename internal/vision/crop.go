package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const jpegQuality = 90

// maxCropDim caps the pixel size of persisted crops so a face close to a
// high-resolution camera does not bloat the catalog.
const maxCropDim = 1024

// CropWithPadding extracts the face region from a frame with extra context
// around it, clamped to the frame bounds.
func CropWithPadding(frame image.Image, r Region, padding int) image.Image {
	bounds := frame.Bounds()

	left := max(bounds.Min.X, r.Left-padding)
	top := max(bounds.Min.Y, r.Top-padding)
	right := min(bounds.Max.X, r.Right+padding)
	bottom := min(bounds.Max.Y, r.Bottom+padding)
	if right <= left || bottom <= top {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	rect := image.Rect(left, top, right, bottom)
	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), frame, rect.Min, draw.Src)
	return crop
}

// EncodeCrop crops the face with padding, downscales oversized results, and
// encodes to JPEG, producing the bytes handed to the catalog store.
func EncodeCrop(frame image.Image, r Region, padding int) ([]byte, error) {
	crop := CropWithPadding(frame, r, padding)
	if crop.Bounds().Empty() {
		return nil, fmt.Errorf("face region %+v lies outside the frame", r)
	}
	return EncodeJPEG(scaleDown(crop, maxCropDim))
}

// EncodeJPEG renders an image to JPEG bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleDown shrinks img so its longer side is at most maxDim, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func scaleDown(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(max(w, h))
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
