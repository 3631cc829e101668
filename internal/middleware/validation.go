package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apierrors "retailbonds/internal/errors"
	"retailbonds/pkg/contracts/domain"
)

// Validation rules for the path parameters of the bond routes.
const (
	InstrumentIDRule = `required,printascii,max=32,excludesall=/\`
	SaleDateRule     = "required,isodate"
)

// ParamValidator checks chi URL parameters against validator tags.
type ParamValidator struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewParamValidator creates a validator with the bond specific tags registered.
func NewParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ParamValidator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// isodate accepts what domain.ParseDate accepts
	_ = v.RegisterValidation("isodate", isISODate)

	return &ParamValidator{
		validator:    v,
		logger:       logger.With(slog.String("component", "param_validator")),
		errorHandler: errorHandler,
	}
}

// URLParams returns middleware validating the named URL parameters. It must
// be attached to routes (chi With) so the parameters are already resolved.
func (pv *ParamValidator) URLParams(rules map[string]string) func(next http.Handler) http.Handler {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var problems []apierrors.ValidationError
			for _, name := range names {
				value := chi.URLParam(r, name)
				if err := pv.validator.Var(value, rules[name]); err != nil {
					problems = append(problems, fieldErrors(name, err)...)
				}
			}
			if len(problems) > 0 {
				pv.logger.DebugContext(r.Context(), "rejected path parameters",
					slog.String("path", r.URL.Path),
					slog.Int("problems", len(problems)))
				pv.errorHandler.HandleError(w, r, apierrors.NewValidationErrors(problems))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func fieldErrors(name string, err error) []apierrors.ValidationError {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apierrors.ValidationError{{Field: name, Message: err.Error()}}
	}
	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{Field: name, Message: formatValidationError(name, fe)})
	}
	return out
}

// formatValidationError formats validation error messages
func formatValidationError(field string, err validator.FieldError) string {
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "printascii":
		return fmt.Sprintf("%s must contain printable ASCII characters only", field)
	case "excludesall":
		return fmt.Sprintf("%s must not contain any of %q", field, param)
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := domain.ParseDate(fl.Field().String())
	return err == nil
}
