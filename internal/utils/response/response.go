package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New()

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// WriteError writes err as a GeneralError with the given status.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, GeneralError(err))
}

func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		if err.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s: %s=%s", err.Field(), err.Tag(), err.Param()))
			continue
		}
		messages = append(messages, err.Field()+": "+err.Tag())
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(messages, "; "),
	}
}

func RequestOK(message string, data interface{}) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

// DecodeAndValidate reads a JSON body into dst and runs its validate tags. On failure the 400 response
// has already been written and false is returned.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		WriteError(w, http.StatusBadRequest, err)
		return false
	}
	return Validate(w, dst)
}

// Validate runs the validate tags of v and writes a 400 response when they fail.
func Validate(w http.ResponseWriter, v interface{}) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		WriteJSON(w, http.StatusBadRequest, ValidationError(ve))
		return false
	}
	WriteError(w, http.StatusBadRequest, err)
	return false
}
