package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	// ErrEmptyTitle is returned when a task title is blank after trimming
	ErrEmptyTitle = errors.New("title is required")
	// ErrPastDueDate is returned when a new task is due before today
	ErrPastDueDate = errors.New("due date cannot be in the past")
)

// MaxTitleLength bounds task titles after sanitising
const MaxTitleLength = 200

func init() {
	Validate = validator.New()

	// Register custom validators for the scheduling wire formats
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("isodate", validateISODate); err != nil {
		panic(fmt.Sprintf("failed to register isodate validator: %v", err))
	}
	if err := Validate.RegisterValidation("hhmm", validateHHMM); err != nil {
		panic(fmt.Sprintf("failed to register hhmm validator: %v", err))
	}
}

// validatePriority accepts High, Medium or Low in any case
func validatePriority(fl validator.FieldLevel) bool {
	_, err := models.ParsePriority(fl.Field().String())
	return err == nil
}

// validateISODate accepts YYYY-MM-DD
func validateISODate(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDate(fl.Field().String())
	return err == nil
}

// validateHHMM accepts 24-hour HH:mm
func validateHHMM(fl validator.FieldLevel) bool {
	_, err := calendar.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTitle sanitises a title and rejects blank or oversized values
func ValidateTitle(title string) (string, error) {
	clean := SanitizeText(title)
	if clean == "" {
		return "", ErrEmptyTitle
	}
	if len([]rune(clean)) > MaxTitleLength {
		return "", fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	}
	return clean, nil
}

// ValidateNewTask checks the creation rules: a non-empty title and a due
// date no earlier than the calendar day of now. Today is allowed.
func ValidateNewTask(title string, dueDate calendar.Date, now time.Time) (string, error) {
	clean, err := ValidateTitle(title)
	if err != nil {
		return "", err
	}
	if dueDate.IsZero() {
		return "", fmt.Errorf("due_date is required")
	}
	if calendar.IsPast(dueDate, now) {
		return "", ErrPastDueDate
	}
	return clean, nil
}
