package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/benvon/catalog-proxy/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("catalog_category", validateCategory); err != nil {
		panic(fmt.Sprintf("failed to register catalog_category validator: %v", err))
	}
	if err := Validate.RegisterValidation("catalog_sort", validateSort); err != nil {
		panic(fmt.Sprintf("failed to register catalog_sort validator: %v", err))
	}
}

func validateCategory(fl validator.FieldLevel) bool {
	_, ok := models.CategoryID(fl.Field().String())
	return ok
}

func validateSort(fl validator.FieldLevel) bool {
	_, ok := models.SortType(fl.Field().String())
	return ok
}

// SearchQuery holds the raw query string parameters of a search request.
type SearchQuery struct {
	Query     string `validate:"max=200"`
	Category  string `validate:"omitempty,catalog_category"`
	Sort      string `validate:"omitempty,catalog_sort"`
	Limit     string `validate:"omitempty,numeric"`
	Cursor    string `validate:"max=512"`
	Paginated string `validate:"omitempty,boolean"`
}

// ListingQuery holds the raw parameters of popular and category listings.
type ListingQuery struct {
	Category string `validate:"omitempty,catalog_category"`
	Limit    string `validate:"omitempty,numeric"`
}

// FieldError describes the first failing field of a struct validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Struct validates s and converts the first failure into a FieldError.
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		field := lowerFirst(fe.Field())
		return &FieldError{Field: field, Message: fieldMessage(field, fe)}
	}
	return &FieldError{Message: "Validation failed"}
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "catalog_category":
		return fmt.Sprintf("Unknown category %q", fe.Value())
	case "catalog_sort":
		return fmt.Sprintf("Unknown sort order %q", fe.Value())
	case "numeric":
		return fmt.Sprintf("%s must be a number", field)
	case "boolean":
		return fmt.Sprintf("%s must be true or false", field)
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ParseAssetID accepts only a well-formed positive decimal integer.
func ParseAssetID(raw string) (int64, error) {
	if raw == "" {
		return 0, &FieldError{Field: "assetId", Message: "assetId is required"}
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, &FieldError{Field: "assetId", Message: "assetId must be a positive integer"}
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &FieldError{Field: "assetId", Message: "assetId must be a positive integer"}
	}
	return id, nil
}

// SanitizeText trims whitespace and removes control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
