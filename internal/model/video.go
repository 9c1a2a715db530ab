package model

// VideoTaskPayload is the work item enqueued per successful step. It carries
// everything the worker needs; the worker never reads the tutorial record.
type VideoTaskPayload struct {
	TutorialID  string `json:"tutorialId"`
	StepNumber  int    `json:"stepNumber"`
	ImageURL    string `json:"imageUrl"`
	Instruction string `json:"instruction"`
	TargetKey   string `json:"targetKey"`
}

// VideoFunctionRequest is the wire contract of the video generation function.
type VideoFunctionRequest struct {
	ImageURL   string `json:"image_url" validate:"required,url"`
	Prompt     string `json:"prompt" validate:"required"`
	StepNumber int    `json:"step_number,omitempty"`
	TargetPath string `json:"target_path" validate:"required"`
}

// VideoFunctionResponse mirrors the function's JSON reply.
type VideoFunctionResponse struct {
	Status   string `json:"status"` // "success" or "failed"
	VideoURL string `json:"video_url,omitempty"`
	Duration int    `json:"duration,omitempty"` // seconds spent generating
	Error    string `json:"error,omitempty"`
}

const (
	VideoFunctionStatusSuccess = "success"
	VideoFunctionStatusFailed  = "failed"
)
