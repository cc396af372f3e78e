package tryon

import (
	"strings"

	"stylesync/internal/utils"
)

// ImageFile 内存中的一张输入图片,由调用方提供
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size 图片字节数
func (f *ImageFile) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.Data))
}

const labelLimit = 40

// SubjectInput 模特输入,图片和文字描述二选一
// 零值表示尚未选择
type SubjectInput struct {
	image  *ImageFile
	prompt string
}

func SubjectImage(file *ImageFile) SubjectInput {
	return SubjectInput{image: file}
}

func SubjectPrompt(text string) SubjectInput {
	return SubjectInput{prompt: strings.TrimSpace(text)}
}

func (s SubjectInput) IsZero() bool {
	return s.image == nil && s.prompt == ""
}

func (s SubjectInput) Image() (*ImageFile, bool) {
	return s.image, s.image != nil
}

func (s SubjectInput) Prompt() (string, bool) {
	return s.prompt, s.image == nil && s.prompt != ""
}

// Label 用于历史记录展示的简短描述
func (s SubjectInput) Label() string {
	if s.image != nil {
		return s.image.Name
	}
	return utils.TruncateLabel(s.prompt, labelLimit)
}

// BackgroundInput 背景输入,图片、文字描述或保持原图(零值)
type BackgroundInput struct {
	image  *ImageFile
	prompt string
}

func BackgroundImage(file *ImageFile) BackgroundInput {
	return BackgroundInput{image: file}
}

func BackgroundPrompt(text string) BackgroundInput {
	return BackgroundInput{prompt: strings.TrimSpace(text)}
}

// BackgroundAuto 保持模特图原背景
func BackgroundAuto() BackgroundInput {
	return BackgroundInput{}
}

func (b BackgroundInput) IsAuto() bool {
	return b.image == nil && b.prompt == ""
}

func (b BackgroundInput) Image() (*ImageFile, bool) {
	return b.image, b.image != nil
}

func (b BackgroundInput) Prompt() (string, bool) {
	return b.prompt, b.image == nil && b.prompt != ""
}

func (b BackgroundInput) Label() string {
	if b.image != nil {
		return b.image.Name
	}
	if b.prompt != "" {
		return utils.TruncateLabel(b.prompt, labelLimit)
	}
	return ""
}
