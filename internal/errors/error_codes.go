package errors

// Error codes. Each appears as the prefix token of the failure message
// recorded on the job row, so the queue can expose a machine-readable
// reason without a schema change.
const (
	CodeConfig        = "CONFIG_ERROR"
	CodeAuth          = "AUTH_ERROR"
	CodeRateLimited   = "RATE_LIMITED"
	CodeQuota         = "QUOTA_EXCEEDED"
	CodeAI            = "AI_ERROR"
	CodeAITimeout     = "AI_TIMEOUT"
	CodeJSONParse     = "JSON_PARSE_ERROR"
	CodeValidation    = "VALIDATION_FAILED"
	CodeDB            = "DB_ERROR"
	CodeGeneration    = "GENERATION_ERROR"
	CodeWorkoutRedo   = "WORKOUT_REDO_FAILED"
	CodeNutritionRedo = "NUTRITION_REDO_FAILED"
	CodeRedo          = "REDO_FAILED"
	CodeUnexpected    = "UNEXPECTED_ERROR"
)
