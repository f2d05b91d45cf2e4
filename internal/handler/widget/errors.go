package widget

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errInvalidPayload = errors.New("invalid payload")

func errUnsupportedType(t string) error {
	return fmt.Errorf("unsupported message type: %s", t)
}

func unmarshalData(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return errInvalidPayload
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return nil
}
