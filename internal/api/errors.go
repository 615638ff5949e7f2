package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

const problemContentType = "application/problem+json"

// Problem is an RFC 7807 response body.
type Problem struct {
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func writeProblem(c *gin.Context, p Problem) {
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(p.Status, p)
}

// problemFor maps an error to its response. Unknown errors become a 500
// whose detail is only shown in development.
func problemFor(err error, development bool) Problem {
	var (
		ve  *domain.ValidationError
		nf  *domain.NotFoundError
		br  *domain.BadRequestError
		ce  *domain.ConflictError
		ue  *domain.UnauthorizedError
		fes validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ve):
		return Problem{Title: ve.Title, Status: http.StatusBadRequest, Errors: ve.ByField()}
	case errors.As(err, &fes):
		return Problem{Title: "One or more validation errors occurred.", Status: http.StatusBadRequest, Errors: fieldErrors(fes)}
	case errors.As(err, &nf):
		return Problem{Title: "Not Found", Status: http.StatusNotFound, Detail: nf.Error()}
	case errors.As(err, &br):
		return Problem{Title: br.Title, Status: http.StatusBadRequest}
	case errors.As(err, &ce):
		return Problem{Title: ce.Title, Status: http.StatusConflict}
	case errors.As(err, &ue):
		return Problem{Title: "Unauthorized", Status: http.StatusUnauthorized}
	}

	var be bindError
	if errors.As(err, &be) {
		return Problem{Title: "Invalid request", Status: http.StatusBadRequest, Detail: be.Error()}
	}

	p := Problem{Title: "Server Error", Status: http.StatusInternalServerError}
	if development {
		p.Detail = err.Error()
	}
	return p
}

// bindError marks request decoding failures that are not field validation.
type bindError struct{ err error }

func (e bindError) Error() string { return e.err.Error() }
func (e bindError) Unwrap() error { return e.err }

// bind runs fn and tags decode failures so they render as 400s.
func bind(fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if errors.As(err, &fes) {
		return err
	}
	return bindError{err}
}

func fieldErrors(fes validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(fes))
	for _, fe := range fes {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("The %s field is required.", fe.Field())
		case "email":
			msg = fmt.Sprintf("The %s field is not a valid e-mail address.", fe.Field())
		case "min", "gte":
			msg = fmt.Sprintf("The %s field must be at least %s.", fe.Field(), fe.Param())
		default:
			msg = fmt.Sprintf("The %s field failed the '%s' rule.", fe.Field(), fe.Tag())
		}
		out[fe.Field()] = append(out[fe.Field()], msg)
	}
	return out
}

// useJSONFieldNames makes validator report fields by their json or form name.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// errorHandler renders the first error a handler attached with c.Error.
func errorHandler(log *slog.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors[0].Err
		p := problemFor(err, development)
		if p.Status >= http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		}
		writeProblem(c, p)
	}
}

func recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("panic", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", recovered)
		writeProblem(c, Problem{Title: "Server Error", Status: http.StatusInternalServerError})
	})
}
