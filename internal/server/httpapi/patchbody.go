package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/accountd/internal/server/services"
)

// decodeFieldChanges reads a JSON object from r and returns its members as
// an ordered list of field changes. encoding/json maps lose member order,
// so the object is walked token by token; the patch pipeline relies on the
// order fields were enumerated in the request body.
//
// An empty body yields an empty change list: a patch with no body behaves
// like a patch that changes nothing.
func decodeFieldChanges(r io.Reader) ([]services.FieldChange, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("patch body must be a JSON object")
	}

	var changes []services.FieldChange
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in patch body", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		changes = append(changes, services.FieldChange{Name: key, Value: value})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return changes, nil
}
