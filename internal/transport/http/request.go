package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		// Registration only fails for an empty tag or a nil func.
		_ = v.RegisterValidation("nonnegative_amount", func(fl validator.FieldLevel) bool {
			str := fl.Field().String()
			if str == "" {
				return true
			}
			d, err := decimal.NewFromString(str)
			return err == nil && !d.IsNegative()
		})
		validate = v
	})
	return validate
}

// decodeJSON decodes a strict JSON body into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}

	err := requestValidator().Struct(dst)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, fmt.Sprintf("%s is required", fe.Field()))
	case "nonnegative_amount":
		writeError(w, http.StatusBadRequest, codeInvalidPrice, fmt.Sprintf("%s must be a non-negative amount", fe.Field()))
	default:
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return false
}
