// Copyright 2025 Jason Sherman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package media

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// ThumbnailMaxDimension bounds both edges of a compressed thumbnail.
	ThumbnailMaxDimension = 320
	// ThumbnailJPEGQuality is the encode quality for compressed thumbnails.
	ThumbnailJPEGQuality = 60
)

// CompressImage re-encodes the image at srcPath as a JPEG scaled to fit
// within ThumbnailMaxDimension on both axes, writing the result to
// dstPath. Images already within bounds are re-encoded without scaling.
func CompressImage(srcPath string, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", srcPath, err)
	}
	defer func() { _ = src.Close() }()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", srcPath, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > ThumbnailMaxDimension || height > ThumbnailMaxDimension {
		scale := float64(ThumbnailMaxDimension) / float64(width)
		if height > width {
			scale = float64(ThumbnailMaxDimension) / float64(height)
		}
		newWidth := int(float64(width) * scale)
		newHeight := int(float64(height) * scale)
		scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	defer func() { _ = dst.Close() }()

	if err := jpeg.Encode(dst, img, &jpeg.Options{Quality: ThumbnailJPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}
