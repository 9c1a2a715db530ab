package model

// Gender preference for style generation
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
)

var ValidGenders = []Gender{GenderMale, GenderFemale, GenderNeutral}

// Tutorial status
type TutorialStatus string

const (
	TutorialStatusPending    TutorialStatus = "pending"
	TutorialStatusProcessing TutorialStatus = "processing"
	TutorialStatusCompleted  TutorialStatus = "completed"
	TutorialStatusFailed     TutorialStatus = "failed"
)

// Step status
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// Difficulty levels reported by the structuring model
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var ValidDifficulties = []Difficulty{
	DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced,
}
