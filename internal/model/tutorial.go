package model

import (
	"fmt"
	"time"
)

// MaxDescriptionLength caps the free-text style description on tutorial requests.
const MaxDescriptionLength = 5000

// Tutorial is the orchestrator-owned record for one generated tutorial.
// It is written once, before the generation response is returned; only the
// video delegate writes anything afterwards, and it writes storage objects,
// not this record.
type Tutorial struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	TotalSteps       int            `json:"totalSteps"`
	Status           TutorialStatus `json:"status"`
	Steps            []Step         `json:"steps"`
	OriginalImageURL string         `json:"originalImageUrl"`
	RawDescription   string         `json:"rawDescription"`
	Difficulty       Difficulty     `json:"difficulty,omitempty"`
	DurationMinutes  int            `json:"durationMinutes,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// Step is one ordered unit of a tutorial. Step numbers are 1-based and
// contiguous. The image input for step n is step n-1's completed-look image
// (the original photo for step 1).
type Step struct {
	StepNumber  int        `json:"stepNumber"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tools       []string   `json:"tools"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	VideoURL    *string    `json:"videoUrl"`
	Status      StepStatus `json:"status"`
	DurationSec int        `json:"durationSec,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// TutorialGenerateRequest is the body of POST /api/tutorials/generate.
type TutorialGenerateRequest struct {
	RawDescription   string `json:"rawDescription" validate:"required,max=5000"`
	OriginalImageURL string `json:"originalImageUrl" validate:"required,url"`
	StyleID          string `json:"styleId,omitempty"`
	Customization    string `json:"customization,omitempty" validate:"max=1000"`
}

// TutorialStatusResponse is the read-only progress view served by
// GET /api/tutorials/:tutorialId/status.
type TutorialStatusResponse struct {
	TutorialID string           `json:"tutorialId"`
	Status     TutorialStatus   `json:"status"`
	Progress   int              `json:"progress"` // 0-100, video completion share
	Steps      []StepStatusInfo `json:"steps"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

type StepStatusInfo struct {
	StepNumber int        `json:"stepNumber"`
	Status     StepStatus `json:"status"`
	VideoURL   *string    `json:"videoUrl"`
	Error      string     `json:"error,omitempty"`
}

// StepFailure is the terminal failure marker the video worker writes to
// storage so the status endpoint can tell "failed" apart from "still running".
type StepFailure struct {
	StepNumber int       `json:"stepNumber"`
	Status     string    `json:"status"` // always "failed"
	Error      string    `json:"error"`
	FailedAt   time.Time `json:"failedAt"`
}

// Storage layout: tutorials/{id}/metadata.json, tutorials/{id}/original.jpg,
// tutorials/{id}/step_{n}/{image.jpg,video.mp4,status.json}.

func TutorialMetadataKey(tutorialID string) string {
	return fmt.Sprintf("tutorials/%s/metadata.json", tutorialID)
}

func TutorialOriginalKey(tutorialID string) string {
	return fmt.Sprintf("tutorials/%s/original.jpg", tutorialID)
}

func StepImageKey(tutorialID string, stepNumber int) string {
	return fmt.Sprintf("tutorials/%s/step_%d/image.jpg", tutorialID, stepNumber)
}

func StepVideoKey(tutorialID string, stepNumber int) string {
	return fmt.Sprintf("tutorials/%s/step_%d/video.mp4", tutorialID, stepNumber)
}

func StepStatusKey(tutorialID string, stepNumber int) string {
	return fmt.Sprintf("tutorials/%s/step_%d/status.json", tutorialID, stepNumber)
}

func StepMetadataKey(tutorialID string, stepNumber int) string {
	return fmt.Sprintf("tutorials/%s/step_%d/metadata.json", tutorialID, stepNumber)
}
