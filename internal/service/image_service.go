package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/model"
)

// styleVariations is the fixed prompt matrix: three curated looks per gender.
var styleVariations = map[string]string{
	"male0":    "Fresh and Natural Style Hair: A neat, short haircut in a natural color. The front is kept down slightly to create a light, effortless feel. Use minimal wax to maintain the hair's natural flow. Makeup: Focus on grooming. Tidy the eyebrows and use lip balm to prevent dryness. Avoid foundation and keep the skin tone even for a healthy appearance.",
	"male1":    "Sophisticated and Conservative Style Hair: Dark, short hair with a sleek side part or slicked-back style. A glossy finish adds a polished, intelligent impression. Makeup: Fill in sparse areas of the eyebrows for a defined shape. Use a translucent powder to control shine and maintain a clean look.",
	"male2":    "Soft and Casual Style Hair: A light mushroom cut or a slightly longer wolf cut. Ash or beige hair colors will soften the overall look. Makeup: Use an eyebrow pencil to match the hair color and a light BB cream to even out the skin. A tinted lip balm adds a healthy flush of color.",
	"female0":  "Elegant and Feminine Style Hair: A sleek, glossy long hairstyle or a soft, inward-curling bob. The bangs can be swept to the side or kept as a see-through fringe for a lighter feel. Makeup: A dewy, translucent base. Use soft, skin-tone eyeshadows like beige or pale pink. A glossy finish on the lips gives a natural, fresh look.",
	"female1":  "Cool and Professional Style Hair: A sharp chin-length bob or a medium-length style with swept-back bangs. Dark hair colors create a sophisticated and composed impression. Makeup: A matte foundation. A sharp winged eyeliner adds a cool edge, while nude or deep-colored lipstick enhances the mature, elegant vibe.",
	"female2":  "Cute and Doll-like Style Hair: A cute outward or inward-curling bob with straight-across bangs. Adding highlights can create a fun, dimensional look. Makeup: Use glittery eyeshadows and highlight the undereye bags (aegyo sal) for a sparkling effect. Pink or coral blush on the apples of the cheeks and a cute-colored lipstick complete the youthful look.",
	"neutral0": "Natural and Androgynous Style Hair: A versatile mushroom short cut or a short style that exposes the ears. Dark hair colors contribute to a cool and neutral look. Makeup: Focus on skin prep and grooming. Use moisturizers on dry areas to create a healthy glow, and simply groom the eyebrows for a clean finish.",
	"neutral1": "Cool and Edgy Style Hair: A wet-look short cut or a two-block undercut with shaved sides. These styles are distinct yet cohesive. Makeup: A matte base and a sharp contour to define the face. A slightly winged eyeliner and a matte lip color that subdues natural tones will enhance a sleek, modern look.",
	"neutral2": "Soft and Feminine Style Hair: A soft perm or a slightly longer wolf cut. Lighter hair colors create a gentle and relaxed atmosphere. Makeup: A dewy foundation with soft, sheer eyeshadows and blush in pink or orange tones. A glossy lip adds a touch of femininity and warmth.",
}

var genderText = map[model.Gender]string{
	model.GenderMale:    "male/men's",
	model.GenderFemale:  "female/women's",
	model.GenderNeutral: "gender-neutral/unisex",
}

const stylePromptTemplate = `Generate a realistic image of the given face photo with a perfect %s hairstyle and makeup style.
STYLE: %s
Please make the style natural and in line with current trends. Avoid anything too bizarre or extreme.
Keep the facial features and identity unchanged, only modify the hairstyle and makeup.
Provide a brief description of the style and steps to achieve this look and you must generate the image.`

const stepImagePromptTemplate = `Generate completed face image with these changes to the provided face image.
The image is the previous step's result.
Create a natural progression towards the final style with the only following description. (Do not change other than the following description.)
%s: %s
Ensure the changes are appropriate for this specific step while maintaining consistency with the overall transformation.`

const localizePromptTemplate = `以下の英語のスタイル説明を日本語に翻訳し、魅力的なタイトル（10文字以内）と説明文（30文字以内）を生成してください。
タイトルはキャッチーで覚えやすいものにしてください。
説明文は簡潔でわかりやすくしてください。

英語の説明:
%s`

var localizedInfoSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"}
  },
  "required": ["title", "description"]
}`)

const imageMaxAttempts = 3

// placeholderPNG is a 1x1 transparent PNG served by the mock fallbacks.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// StyleImage is one generated look plus the model's English description of it.
type StyleImage struct {
	Data           []byte
	MimeType       string
	RawDescription string
}

// ImageService wraps the image generation model with retry handling and mock
// fallbacks for unconfigured deployments.
type ImageService struct {
	gen        client.ContentGenerator
	imageModel string
	subModel   string
}

func NewImageService(gen client.ContentGenerator, cfg *config.GeminiConfig) *ImageService {
	return &ImageService{
		gen:        gen,
		imageModel: cfg.ImageModel,
		subModel:   cfg.SubModel,
	}
}

func (s *ImageService) isConfigured() bool {
	if c, ok := s.gen.(configurable); ok {
		return c.IsConfigured()
	}
	return s.gen != nil
}

// GenerateStyleImage reimagines the user's photo with one of the fixed style
// variations. styleIndex selects within the gender's variation set (0-2).
func (s *ImageService) GenerateStyleImage(ctx context.Context, photo []byte, mimeType string, gender model.Gender, styleIndex int, customText string) (*StyleImage, error) {
	key := fmt.Sprintf("%s%d", gender, styleIndex)
	variation, ok := styleVariations[key]
	if !ok {
		return nil, fmt.Errorf("no style variation for %q", key)
	}

	if !s.isConfigured() {
		return &StyleImage{
			Data:           placeholderPNG,
			MimeType:       "image/png",
			RawDescription: variation,
		}, nil
	}

	prompt := fmt.Sprintf(stylePromptTemplate, genderText[gender], variation)
	if customText != "" {
		prompt += fmt.Sprintf("\n\nAdditional request: %s", customText)
	}

	result, err := s.generateWithRetry(ctx, prompt, photo, mimeType)
	if err != nil {
		return nil, err
	}

	raw := result.Text
	if raw == "" {
		raw = variation
	}

	return &StyleImage{
		Data:           result.Data,
		MimeType:       result.MimeType,
		RawDescription: raw,
	}, nil
}

// GenerateCompletedLook renders the face as it should appear after one
// tutorial step, starting from the previous step's output.
func (s *ImageService) GenerateCompletedLook(ctx context.Context, previousImage []byte, mimeType, stepTitle, stepDescription string) ([]byte, error) {
	if !s.isConfigured() {
		return placeholderPNG, nil
	}

	prompt := fmt.Sprintf(stepImagePromptTemplate, stepTitle, stepDescription)
	result, err := s.generateWithRetry(ctx, prompt, previousImage, mimeType)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// LocalizedInfo carries the short Japanese title and description for a style.
type LocalizedInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LocalizeStyleInfo turns the model's English style description into a short
// Japanese title and description. Failures fall back to a truncation so style
// generation never fails on localization alone.
func (s *ImageService) LocalizeStyleInfo(ctx context.Context, rawDescription string) *LocalizedInfo {
	fallback := &LocalizedInfo{
		Title:       truncateRunes(rawDescription, 10),
		Description: truncateRunes(rawDescription, 30),
	}
	if !s.isConfigured() {
		return fallback
	}

	prompt := fmt.Sprintf(localizePromptTemplate, rawDescription)
	raw, err := s.gen.GenerateStructured(ctx, s.subModel, prompt, localizedInfoSchema)
	if err != nil {
		log.Warn().Err(err).Msg("style localization failed, using truncated description")
		return fallback
	}

	var info LocalizedInfo
	if err := json.Unmarshal(raw, &info); err != nil || info.Title == "" {
		log.Warn().Err(err).Msg("invalid localization response, using truncated description")
		return fallback
	}
	return &info
}

// generateWithRetry applies the bounded retry policy shared by all image
// calls. Content rejections are never retried.
func (s *ImageService) generateWithRetry(ctx context.Context, prompt string, image []byte, mimeType string) (*client.ImageResult, error) {
	var result *client.ImageResult
	operation := func() error {
		var err error
		result, err = s.gen.GenerateImage(ctx, s.imageModel, prompt, image, mimeType)
		if err != nil {
			var imgErr *model.ImageGenerationError
			if errors.As(err, &imgErr) && !imgErr.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newExpBackoff(), imageMaxAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		var imgErr *model.ImageGenerationError
		if errors.As(err, &imgErr) {
			return nil, err
		}
		return nil, &model.ImageGenerationError{Kind: model.ImageFailureUnknown, Err: err}
	}
	return result, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
