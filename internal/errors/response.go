package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/oggyb/sloi/internal/logger"
)

// Respond writes the uniform {"error": message} body for err.
// Storage and internal failures are logged and their details hidden.
func Respond(c *gin.Context, err error) {
	svcErr, ok := Map(err).(*Error)
	if !ok {
		svcErr = &Error{Kind: KindInternal, Message: "internal error", Err: err}
	}

	status := svcErr.Status()
	body := gin.H{"error": svcErr.Message}
	if svcErr.Kind == KindLimitExceeded {
		body["limitExceeded"] = true
	}

	if status >= 500 {
		logger.FromContext(c.Request.Context(), nil).Error("request failed",
			"path", c.FullPath(), "err", svcErr.Unwrap())
	}

	c.AbortWithStatusJSON(status, body)
}

// FromBinding turns gin binding/validator failures into a validation error
// naming the offending fields.
func FromBinding(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return InvalidArgument("invalid request body")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return InvalidArgument(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, toSnake(fe.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (s[i-1] < 'A' || s[i-1] > 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
