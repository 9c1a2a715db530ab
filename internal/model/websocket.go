package model

// WebSocket message types for tutorial progress push
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage is the minimal envelope used for ping/pong
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage notifies subscribers that one step's video finished.
type WSProgressMessage struct {
	Type       string         `json:"type"`
	TutorialID string         `json:"tutorialId"`
	StepNumber int            `json:"stepNumber"`
	Status     TutorialStatus `json:"status"`
	Progress   int            `json:"progress"`
	VideoURL   string         `json:"videoUrl,omitempty"`
}

// WSCompleteMessage is sent when every step's video is present.
type WSCompleteMessage struct {
	Type       string `json:"type"`
	TutorialID string `json:"tutorialId"`
}

// WSErrorMessage reports a terminal per-step failure.
type WSErrorMessage struct {
	Type       string  `json:"type"`
	TutorialID string  `json:"tutorialId"`
	StepNumber int     `json:"stepNumber"`
	Error      WSError `json:"error"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
