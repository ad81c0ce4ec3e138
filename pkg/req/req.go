package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/knowtix/billing-service/pkg/res"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads a JSON document of type T from body.
func Decode[T any](body io.Reader) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid runs the `validate` struct tags of payload.
func IsValid[T any](payload T) error {
	return validate.Struct(payload)
}

// MissingFields lists the JSON names of the fields that failed validation.
func MissingFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// HandleBody decodes and validates the request body. On failure it writes a
// 400 response and returns the error; callers just return.
func HandleBody[T any](w http.ResponseWriter, r *http.Request, log *logger.Logger) (*T, error) {
	body, err := Decode[T](r.Body)
	if err != nil {
		res.JsonErrorResponse(w, res.ErrorResponse{Error: "Invalid request body"}, http.StatusBadRequest, err, log)
		return nil, err
	}

	if err := IsValid(body); err != nil {
		res.JsonErrorResponse(w, res.ErrorResponse{
			Error:   "Missing required fields",
			Details: MissingFields(err),
		}, http.StatusBadRequest, err, log)
		return nil, err
	}
	return &body, nil
}
