package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"readersync/internal/model"
)

// ErrMalformedOutput means the last output line was not a JSON object.
var ErrMalformedOutput = errors.New("malformed processor output")

const decodeFailureMessage = "failed to decode processor output"

// LastLine returns the final non-blank-terminated line of output, trimmed.
func LastLine(output string) string {
	trimmed := strings.TrimRight(output, " \t\r\n")
	if i := strings.LastIndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(trimmed)
}

// DecodeLastLine unmarshals the last line of output into v. Keys absent from
// the line leave v's fields untouched.
func DecodeLastLine(output string, v any) error {
	line := LastLine(output)
	if !strings.HasPrefix(line, "{") {
		return fmt.Errorf("%w: last line is not a JSON object", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(line), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func isBusy(r model.Report, marker string) bool {
	return !r.OK() && marker != "" && strings.Contains(r.Text(), marker)
}

func outcomeOf(r model.Report, err error, busyMarker string) string {
	switch {
	case errors.Is(err, ErrProcessorUnavailable):
		return "unavailable"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	case err != nil:
		return "error"
	case isBusy(r, busyMarker):
		return "busy"
	case r.OK():
		return "ok"
	default:
		return "failed"
	}
}
