package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/pkg/logger"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func init() {
	// report binding errors under JSON field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindJSON decodes the request body into obj. An empty body is treated as {}
// and still goes through struct validation.
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
	}
	if err == nil {
		return nil
	}
	return translateBindError(err)
}

func translateBindError(err error) error {
	fields := apperr.FieldErrors{}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				fields.Add(fe.Field(), "This field is required.")
			} else {
				fields.Add(fe.Field(), "Invalid value.")
			}
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "non_field_errors"
		}
		fields.Add(field, "Expected a value of type "+typeErr.Type.String()+", got "+typeErr.Value+".")
	case errors.As(err, &syntaxErr):
		fields.Add("non_field_errors", "JSON parse error at offset "+strconv.FormatInt(syntaxErr.Offset, 10)+".")
	default:
		fields.Add("non_field_errors", "Invalid request body.")
	}
	return fields.Err()
}

// writeError renders err. Unknown errors are logged and hidden behind a 500.
func writeError(c *gin.Context, err error) {
	if ae := apperr.As(err); ae != nil {
		c.JSON(ae.Status(), ae.Body())
		return
	}

	_ = c.Error(err)
	logger.Log.Error("Unhandled error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
}

// pathID parses a numeric path parameter. Anything else is a 404, like an unknown id.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return id, true
}
