package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/piriven/piriven_backend/internal/apperr"
)

// FlexibleID accepts a primary key given as a JSON number or a numeric string.
type FlexibleID uint

// InvalidIDError reports a value that is not a primary key. Received names
// the JSON type that was sent.
type InvalidIDError struct {
	Received string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("Incorrect type. Expected pk value, received %s.", e.Received)
}

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	if id == nil {
		return fmt.Errorf("FlexibleID: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 0)
		if err != nil {
			return &InvalidIDError{Received: "str"}
		}
		*id = FlexibleID(n)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		n, err := strconv.ParseUint(num.String(), 10, 0)
		if err != nil {
			return &InvalidIDError{Received: "int"}
		}
		*id = FlexibleID(n)
		return nil
	}

	received := "object"
	switch trimmed[0] {
	case 't', 'f':
		received = "bool"
	case '[':
		received = "list"
	}
	return &InvalidIDError{Received: received}
}

// idFieldError turns an InvalidIDError raised while decoding field into a
// field error. Other errors pass through.
func idFieldError(err error, field string) error {
	var idErr *InvalidIDError
	if errors.As(err, &idErr) {
		return apperr.Field(field, idErr.Error())
	}
	return err
}

func ids(in []FlexibleID) []uint {
	out := make([]uint, 0, len(in))
	for _, id := range in {
		out = append(out, uint(id))
	}
	return out
}
