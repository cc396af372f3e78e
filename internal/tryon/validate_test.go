package tryon

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

// pngImage 生成带噪点的真实 PNG,便于走完尺寸与压缩逻辑
func pngImage(t *testing.T, name string, width, height int) *ImageFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	seed := uint32(2463534242)
	for i := range img.Pix {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		img.Pix[i] = byte(seed)
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &ImageFile{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}

func jpegStub(name string, size int) *ImageFile {
	return &ImageFile{Name: name, ContentType: "image/jpeg", Data: bytes.Repeat([]byte{0xAB}, size)}
}

func TestValidateInputs(t *testing.T) {
	goodGarment := jpegStub("shirt.jpg", 2048)

	tests := []struct {
		name       string
		subject    SubjectInput
		garment    *ImageFile
		background BackgroundInput
		online     bool
		wantSub    string
	}{
		{
			name:    "图片加描述齐备则通过",
			subject: SubjectPrompt("young woman in casual style"),
			garment: goodGarment,
			online:  true,
			wantSub: "",
		},
		{
			name:    "离线直接拒绝",
			subject: SubjectPrompt("young woman"),
			garment: goodGarment,
			online:  false,
			wantSub: "offline",
		},
		{
			name:    "缺模特输入",
			garment: goodGarment,
			online:  true,
			wantSub: "model image or avatar description",
		},
		{
			name:    "缺服装图片",
			subject: SubjectPrompt("young woman"),
			online:  true,
			wantSub: "clothing image",
		},
		{
			name:    "文件类型不允许",
			subject: SubjectPrompt("young woman"),
			garment: &ImageFile{Name: "shirt.tiff", ContentType: "image/tiff", Data: bytes.Repeat([]byte{1}, 2048)},
			online:  true,
			wantSub: "Invalid file type",
		},
		{
			name:    "文件太小",
			subject: SubjectPrompt("young woman"),
			garment: jpegStub("tiny.jpg", 100),
			online:  true,
			wantSub: "too small. Minimum size is 1KB",
		},
		{
			name:    "描述太短",
			subject: SubjectPrompt("ab"),
			garment: goodGarment,
			online:  true,
			wantSub: "valid description",
		},
		{
			name:       "背景描述超长",
			subject:    SubjectPrompt("young woman"),
			garment:    goodGarment,
			background: BackgroundPrompt(strings.Repeat("x", 501)),
			online:     true,
			wantSub:    "Maximum 500 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateInputs(tt.subject, tt.garment, tt.background, tt.online)
			if tt.wantSub == "" {
				if got != "" {
					t.Fatalf("expected no violation, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.wantSub) {
				t.Fatalf("violation %q does not mention %q", got, tt.wantSub)
			}
		})
	}
}

func TestValidateInputsJoinsViolations(t *testing.T) {
	got := validateInputs(SubjectInput{}, nil, BackgroundAuto(), true)
	if !strings.Contains(got, "model image") || !strings.Contains(got, "clothing image") {
		t.Fatalf("expected both violations in %q", got)
	}
}

func TestValidateFileDimensions(t *testing.T) {
	small := pngImage(t, "small.png", 64, 64)
	// padding keeps it above the minimum byte size so only dimensions fail
	small.Data = append(small.Data, bytes.Repeat([]byte{0}, 2048)...)
	if msg := validateFile(small); !strings.Contains(msg, "Minimum dimensions") {
		t.Fatalf("expected dimension violation, got %q", msg)
	}

	ok := pngImage(t, "ok.png", 300, 300)
	if len(ok.Data) < minFileSize {
		ok.Data = append(ok.Data, bytes.Repeat([]byte{0}, minFileSize)...)
	}
	if msg := validateFile(ok); msg != "" {
		t.Fatalf("expected pass, got %q", msg)
	}
}

func TestValidateFileUndecodableDimensionsAreNonFatal(t *testing.T) {
	// 字节并不是合法 JPEG,尺寸无法解析时不应判失败
	if msg := validateFile(jpegStub("opaque.jpg", 4096)); msg != "" {
		t.Fatalf("expected pass for undecodable image, got %q", msg)
	}
}
