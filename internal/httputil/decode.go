package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxJSONBodyBytes = 16 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSON reads r's body into dst and runs struct validation. On failure it writes the
// 400 response itself and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body too large")
		case errors.Is(err, io.EOF):
			WriteBadRequest(w, "Request body is empty")
		default:
			WriteBadRequest(w, "Invalid request body")
		}
		return false
	}

	if err := Validate(dst); err != nil {
		WriteBadRequestWithCode(w, ErrCodeValidation, err.Error())
		return false
	}
	return true
}

// Validate runs struct validation and flattens the first failure into a readable message.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		first := vErrs[0]
		field := strings.ToLower(first.Field())
		if first.Param() != "" {
			return fmt.Errorf("field %s failed rule %s=%s", field, first.Tag(), first.Param())
		}
		return fmt.Errorf("field %s failed rule %s", field, first.Tag())
	}
	return err
}
