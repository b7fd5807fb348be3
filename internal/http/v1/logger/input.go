package logger

import (
	"errors"
	"math"
	"strconv"
)

// errUnsupportedText reports a text value that has no plain string form.
var errUnsupportedText = errors.New("expected string, number or boolean")

// CreateInput is the request body for submitting a message. The body and the
// text field are both optional and open to any JSON value so that a missing
// body, a missing field and a falsy value are all reported as missing text.
// Unknown fields are ignored.
type CreateInput struct {
	Body struct {
		_    struct{} `additionalProperties:"true"`
		Text any      `json:"text,omitempty" doc:"The message text to send to the logger. Numbers and booleans are logged in their JSON form."`
	} `required:"false"`
}

// messageText converts the raw text value into the string that is logged.
// Falsy values (null, false, 0, "") yield "". Objects and arrays are rejected.
func messageText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if !t {
			return "", nil
		}
		return "true", nil
	case float64:
		return formatNumber(t), nil
	case float32:
		return formatNumber(float64(t)), nil
	case int64:
		if t == 0 {
			return "", nil
		}
		return strconv.FormatInt(t, 10), nil
	case uint64:
		if t == 0 {
			return "", nil
		}
		return strconv.FormatUint(t, 10), nil
	case int:
		return messageText(int64(t))
	default:
		return "", errUnsupportedText
	}
}

// formatNumber renders n the way a JSON client would print it, with 0 and NaN
// treated as falsy.
func formatNumber(n float64) string {
	switch {
	case n == 0 || math.IsNaN(n):
		return ""
	case math.Abs(n) >= 1e21:
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}
