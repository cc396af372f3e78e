package tryon

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	compressMaxEdge = 2048
	compressQuality = 85
)

// compressImage 将超长边的图片等比缩小并重编码为 JPEG
// 任何失败都回退到原图,压缩只是节省上传带宽的优化
func compressImage(file *ImageFile) *ImageFile {
	src, _, err := image.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return file
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= compressMaxEdge && height <= compressMaxEdge {
		return file
	}

	scale := float64(compressMaxEdge) / float64(width)
	if height > width {
		scale = float64(compressMaxEdge) / float64(height)
	}
	dstW := int(float64(width) * scale)
	dstH := int(float64(height) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, dst, &jpeg.Options{Quality: compressQuality}); err != nil {
		return file
	}
	if buf.Len() >= len(file.Data) {
		return file
	}

	return &ImageFile{
		Name:        file.Name,
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}
}
