package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/model"
)

// MaxTutorialSteps caps the structured output. The prompt also states the cap
// so the model rarely exceeds it.
const MaxTutorialSteps = 5

// maxTotalDurationMin rejects procedures the model padded out unrealistically.
const maxTotalDurationMin = 120

// Procedure is the validated result of structuring a raw style description.
type Procedure struct {
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	TotalDurationMin int              `json:"total_duration_minutes"`
	Difficulty       model.Difficulty `json:"difficulty_level"`
	Steps            []ProcedureStep  `json:"steps"`
	RequiredTools    []ProcedureTool  `json:"required_tools"`
}

type ProcedureStep struct {
	StepNumber    int      `json:"step_number"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	TitleEN       string   `json:"title_en"`
	DescriptionEN string   `json:"description_en"`
	DurationSec   int      `json:"duration_seconds"`
	ToolsNeeded   []string `json:"tools_needed"`
}

type ProcedureTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// procedureSchema is the response schema sent with the structuring request.
var procedureSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "total_duration_minutes": {"type": "integer"},
    "difficulty_level": {"type": "string", "enum": ["beginner", "intermediate", "advanced"]},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "step_number": {"type": "integer"},
          "title": {"type": "string"},
          "description": {"type": "string"},
          "title_en": {"type": "string"},
          "description_en": {"type": "string"},
          "duration_seconds": {"type": "integer"},
          "tools_needed": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["step_number", "title", "description", "title_en", "description_en"]
      }
    },
    "required_tools": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"}
        },
        "required": ["name", "description"]
      }
    }
  },
  "required": ["title", "description", "total_duration_minutes", "difficulty_level", "steps", "required_tools"]
}`)

const structurePromptTemplate = `以下のスタイルを実現するための、詳細な段階別メイクアップとヘアスタイリングのチュートリアルを作成してください。

# スタイル説明
%s
%s
以下の要素を含む完全なチュートリアルを提供してください。
- 明確なタイトルと説明
- 特定のテクニックを含む段階的な手順
- 各ステップの所要時間の目安
- 必要な道具と製品

**重要**: 各ステップには以下のフィールドを必ず含めてください：
   - title: 日本語のステップタイトル
   - description: 日本語の詳細な説明
   - title_en: 英語のステップタイトル（必須）
   - description_en: 英語の詳細な説明（必須）

ステップ数は**最大%dステップまで**にしてください。
このスタイルを学んでいる人にとって、明確でわかりやすい指示にしてください。`

// StructureService turns a free-text style description into an ordered
// tutorial procedure using schema-constrained model output.
type StructureService struct {
	gen       client.ContentGenerator
	textModel string
}

func NewStructureService(gen client.ContentGenerator, cfg *config.GeminiConfig) *StructureService {
	return &StructureService{
		gen:       gen,
		textModel: cfg.TextModel,
	}
}

type configurable interface {
	IsConfigured() bool
}

func (s *StructureService) isConfigured() bool {
	if c, ok := s.gen.(configurable); ok {
		return c.IsConfigured()
	}
	return s.gen != nil
}

// StructureTutorial produces a validated procedure for the given style text.
// Any failure here is fatal to the tutorial request as a whole.
func (s *StructureService) StructureTutorial(ctx context.Context, styleDescription, customization string) (*Procedure, error) {
	if !s.isConfigured() {
		log.Warn().Msg("content generator not configured, using sample procedure")
		return sampleProcedure(), nil
	}

	prompt := buildStructurePrompt(styleDescription, customization)

	var raw json.RawMessage
	operation := func() error {
		var err error
		raw, err = s.gen.GenerateStructured(ctx, s.textModel, prompt, procedureSchema)
		if err != nil {
			var imgErr *model.ImageGenerationError
			if errors.As(err, &imgErr) && !imgErr.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newExpBackoff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &model.StructuringError{Err: err}
	}

	var proc Procedure
	if err := json.Unmarshal(raw, &proc); err != nil {
		return nil, &model.StructuringError{Err: fmt.Errorf("invalid structured output: %w", err)}
	}

	if err := validateProcedure(&proc); err != nil {
		return nil, &model.StructuringError{Err: err}
	}

	if len(proc.Steps) > MaxTutorialSteps {
		proc.Steps = proc.Steps[:MaxTutorialSteps]
	}

	return &proc, nil
}

func buildStructurePrompt(styleDescription, customization string) string {
	complement := "\n"
	if customization != "" {
		complement = fmt.Sprintf("\n# 追加の要望\n%s\n", customization)
	}
	return fmt.Sprintf(structurePromptTemplate, styleDescription, complement, MaxTutorialSteps)
}

func validateProcedure(proc *Procedure) error {
	if strings.TrimSpace(proc.Title) == "" {
		return fmt.Errorf("procedure has no title")
	}
	if len(proc.Steps) == 0 {
		return fmt.Errorf("procedure has no steps")
	}
	for i, step := range proc.Steps {
		if step.StepNumber != i+1 {
			return fmt.Errorf("step numbers are not contiguous: got %d at position %d", step.StepNumber, i+1)
		}
		if strings.TrimSpace(step.Title) == "" || strings.TrimSpace(step.Description) == "" {
			return fmt.Errorf("step %d is missing title or description", step.StepNumber)
		}
	}
	switch proc.Difficulty {
	case model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced:
	default:
		return fmt.Errorf("invalid difficulty level %q", proc.Difficulty)
	}
	if proc.TotalDurationMin > maxTotalDurationMin {
		return fmt.Errorf("total duration %d minutes exceeds limit", proc.TotalDurationMin)
	}
	return nil
}

func newExpBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 20 * time.Second
	return b
}

// sampleProcedure backs demo deployments that run without API keys.
func sampleProcedure() *Procedure {
	return &Procedure{
		Title:            "ナチュラルメイクアップ",
		Description:      "自然な仕上がりの基本メイクと簡単なヘアセット",
		TotalDurationMin: 15,
		Difficulty:       model.DifficultyBeginner,
		Steps: []ProcedureStep{
			{
				StepNumber:    1,
				Title:         "ベースメイク",
				Description:   "化粧下地を顔全体に薄くのばし、ファンデーションを少量ずつ重ねます。",
				TitleEN:       "Base makeup",
				DescriptionEN: "Apply a thin layer of primer, then build foundation in light layers.",
				DurationSec:   120,
				ToolsNeeded:   []string{"化粧下地", "ファンデーション", "スポンジ"},
			},
			{
				StepNumber:    2,
				Title:         "アイブロウ",
				Description:   "眉の形を整え、足りない部分をペンシルで描き足します。",
				TitleEN:       "Eyebrows",
				DescriptionEN: "Shape the brows and fill sparse areas with a pencil.",
				DurationSec:   90,
				ToolsNeeded:   []string{"アイブロウペンシル", "スクリューブラシ"},
			},
			{
				StepNumber:    3,
				Title:         "リップと仕上げ",
				Description:   "リップを塗り、フェイスパウダーで全体を軽く押さえます。",
				TitleEN:       "Lips and finish",
				DescriptionEN: "Apply lip color and set the look with a light dusting of powder.",
				DurationSec:   90,
				ToolsNeeded:   []string{"リップ", "フェイスパウダー"},
			},
		},
		RequiredTools: []ProcedureTool{
			{Name: "ファンデーション", Description: "肌色を均一に整えるベースアイテム"},
			{Name: "アイブロウペンシル", Description: "眉を描き足すためのペンシル"},
			{Name: "リップ", Description: "仕上げの口紅またはティント"},
		},
	}
}
