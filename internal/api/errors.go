package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"meal-prep-planner/internal/apperror"
	"meal-prep-planner/internal/auth"
	"meal-prep-planner/internal/chat"
	"meal-prep-planner/internal/clipper"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// toAppError maps domain errors to API errors. fallback is the message used for unexpected failures.
func toAppError(err error, fallback string) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	// Clipper errors may also wrap recipe.ErrInvalid, so they go first.
	case errors.Is(err, clipper.ErrUnavailable):
		return apperror.NewUnavailableError(sentence(clipper.ErrUnavailable.Error()))
	case errors.Is(err, clipper.ErrInvalidURL):
		return apperror.NewValidationError("Url must be an http or https address").WithCause(err)
	case errors.Is(err, clipper.ErrFetch):
		return apperror.NewUpstreamError(sentence(clipper.ErrFetch.Error()), err)
	case errors.Is(err, clipper.ErrExtraction):
		return apperror.NewUpstreamError(sentence(clipper.ErrExtraction.Error()), err)

	case errors.Is(err, recipe.ErrInvalid):
		return apperror.NewValidationError(clientMessage(err, recipe.ErrInvalid)).WithCause(err)
	case errors.Is(err, user.ErrMissingFields):
		return apperror.NewValidationError(clientMessage(err, user.ErrMissingFields)).WithCause(err)
	case errors.Is(err, user.ErrInvalidDietType):
		return apperror.NewValidationError(clientMessage(err, user.ErrInvalidDietType)).WithCause(err)
	case errors.Is(err, planner.ErrInvalidRequest):
		return apperror.NewValidationError(clientMessage(err, planner.ErrInvalidRequest)).WithCause(err)
	case errors.Is(err, chat.ErrEmptyMessage):
		return apperror.NewValidationError(sentence(chat.ErrEmptyMessage.Error())).WithCause(err)

	case errors.Is(err, user.ErrInvalidCredentials):
		return apperror.NewUnauthorizedError(sentence(user.ErrInvalidCredentials.Error())).WithCause(err)
	case errors.Is(err, auth.ErrInvalidToken):
		return apperror.NewUnauthorizedError("Invalid or expired token").WithCause(err)

	case errors.Is(err, recipe.ErrNotFound):
		return apperror.NewNotFoundError(sentence(recipe.ErrNotFound.Error())).WithCause(err)
	case errors.Is(err, user.ErrNotFound):
		return apperror.NewNotFoundError(sentence(user.ErrNotFound.Error())).WithCause(err)
	case errors.Is(err, planner.ErrNoAlternative):
		return apperror.NewNotFoundError(sentence(planner.ErrNoAlternative.Error())).WithCause(err)

	case errors.Is(err, user.ErrEmailTaken):
		return apperror.NewConflictError(sentence(user.ErrEmailTaken.Error())).WithCause(err)

	case errors.Is(err, recipe.ErrStorageUnavailable):
		return apperror.NewStorageError(fallback, err)
	}
	return apperror.NewInternalError(fallback, err)
}

// bindError turns gin binding failures into a validation error naming the first offending field.
func bindError(err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.NewValidationError(fieldMessage(verrs[0])).WithCause(err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return apperror.NewValidationError("Request body is required").WithCause(err)
	case errors.As(err, &typeErr):
		return apperror.NewValidationError(fmt.Sprintf("%s has the wrong type", sentence(typeErr.Field))).WithCause(err)
	case errors.As(err, &syntaxErr):
		return apperror.NewValidationError("Request body is not valid JSON").WithCause(err)
	}
	return apperror.NewValidationError("Invalid request body").WithCause(err)
}

func fieldMessage(fe validator.FieldError) string {
	name := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return name + " must be a valid URL"
	}
	return name + " is invalid"
}

// fail aborts the request with the mapped error.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	h.abort(c, toAppError(err, fallback))
}

func (h *Handler) abort(c *gin.Context, appErr *apperror.AppError) {
	if cause := appErr.Unwrap(); cause != nil {
		_ = c.Error(cause)
	} else {
		_ = c.Error(appErr)
	}
	if appErr.StatusCode() >= 500 {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr.Cause),
		)
	}
	c.AbortWithStatusJSON(appErr.StatusCode(), appErr)
}

// clientMessage returns the detail a domain package attached after sentinel, or the sentinel text.
func clientMessage(err, sentinel error) string {
	msg := sentinel.Error()
	if rest, ok := strings.CutPrefix(err.Error(), msg+": "); ok && rest != "" {
		msg = rest
	}
	return sentence(msg)
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// humanize turns a Go field name such as StartDate into "Start date".
func humanize(field string) string {
	var words []string
	start := 0
	runes := []rune(field)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))

	for i := 1; i < len(words); i++ {
		if strings.ToUpper(words[i]) != words[i] {
			words[i] = strings.ToLower(words[i])
		}
	}
	return strings.Join(words, " ")
}
