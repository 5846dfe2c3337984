package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and converts failures into an ErrorResponse
func validateStruct(code string, s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ErrorResponse{Code: code, Message: err.Error()}
	}
	details := make([]ValidationErrorDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, ValidationErrorDetail{
			Field:  fe.Field(),
			Reason: describeTag(fe),
		})
	}
	return &ErrorResponse{
		Code:    code,
		Message: details[0].Field + " " + details[0].Reason,
		Details: details,
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// QuestionRequest asks for the next interview question. An empty SessionID starts a new session.
type QuestionRequest struct {
	Role       string `json:"role" validate:"required,max=120"`
	Experience string `json:"experience"`
	TechStack  string `json:"tech_stack" validate:"max=500"`
	Difficulty string `json:"difficulty"`
	SessionID  string `json:"session_id" validate:"omitempty,max=64"`
}

// implements the Validator interface
func (r *QuestionRequest) Validate() error {
	r.Role = strings.TrimSpace(r.Role)
	r.TechStack = strings.TrimSpace(r.TechStack)
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.Experience = strings.ToLower(strings.TrimSpace(r.Experience))
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))

	if err := validateStruct("invalid_question_request", r); err != nil {
		return err
	}

	if r.Experience == "" {
		r.Experience = DefaultExperienceLevel
	}
	if !ValidExperienceLevels[r.Experience] {
		return &ErrorResponse{
			Code:    "invalid_experience",
			Message: "Experience must be one of: " + strings.Join(ValidExperienceLevelsList(), ", "),
		}
	}

	if r.Difficulty == "" {
		r.Difficulty = DefaultDifficulty
	}
	if !ValidDifficulties[r.Difficulty] {
		return &ErrorResponse{
			Code:    "invalid_difficulty",
			Message: "Difficulty must be one of: " + strings.Join(ValidDifficultiesList(), ", "),
		}
	}
	return nil
}

// FeedbackRequest submits a candidate answer. InteractionID pins the turn being answered;
// when omitted the most recent interaction of the session is used.
type FeedbackRequest struct {
	SessionID     string `json:"session_id" validate:"required,max=64"`
	InteractionID *uint  `json:"interaction_id" validate:"omitempty,gt=0"`
	Answer        string `json:"answer" validate:"required,max=20000"`
}

func (r *FeedbackRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.Answer = strings.TrimSpace(r.Answer)
	return validateStruct("invalid_feedback_request", r)
}
