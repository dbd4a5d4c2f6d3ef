// datatype.go validates and normalizes attribute values against the attribute's
// declared data type. Values are stored as text regardless of type; the data
// type drives validation on write and typed rendering on read.
package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DataTypes lists all value types an attribute may declare
var DataTypes = []string{
	"string",
	"integer",
	"float",
	"boolean",
	"date",
	"datetime",
	"json",
}

// DefaultDataType is applied when a caller omits the data type
const DefaultDataType = "string"

// Layouts accepted for temporal attribute values
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// truthyValues are the spellings accepted as boolean true, compared lowercase
var truthyValues = []string{"true", "1", "yes", "on"}

// ValidDataType checks if the data type is in the supported list
func ValidDataType(dataType string) bool {
	for _, supported := range DataTypes {
		if dataType == supported {
			return true
		}
	}
	return false
}

// ValidateAttributeValue validates that value is acceptable for the given data
// type. An empty value is always acceptable; attributes may exist before they
// are populated.
func ValidateAttributeValue(dataType string, value string) error {
	if !ValidDataType(dataType) {
		return fmt.Errorf("unsupported data type: %s (supported: %v)", dataType, DataTypes)
	}
	if value == "" {
		return nil
	}

	switch dataType {
	case "integer":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("value %q is not a valid integer", value)
		}
	case "float":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("value %q is not a valid decimal number", value)
		}
	case "date":
		if _, err := time.Parse(DateLayout, value); err != nil {
			return fmt.Errorf("value %q is not a valid date (format: YYYY-MM-DD)", value)
		}
	case "datetime":
		if _, err := time.Parse(DateTimeLayout, value); err != nil {
			if _, err := time.Parse(time.RFC3339, value); err != nil {
				return fmt.Errorf("value %q is not a valid datetime (format: YYYY-MM-DD HH:MM:SS or RFC 3339)", value)
			}
		}
	case "json":
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("value is not valid JSON")
		}
	}
	// string and boolean accept any text; boolean spellings are normalized on write
	return nil
}

// NormalizeAttributeValue returns the canonical stored form of value for the
// given data type. Boolean values collapse to "true" or "false" (true, 1, yes
// and on count as true, everything else as false); other types are stored as
// validated.
func NormalizeAttributeValue(dataType string, value string) (string, error) {
	if dataType == "boolean" {
		if TruthyValue(value) {
			return "true", nil
		}
		return "false", nil
	}
	if err := ValidateAttributeValue(dataType, value); err != nil {
		return "", err
	}
	return value, nil
}

// TruthyValue checks if a raw value spells boolean true
func TruthyValue(value string) bool {
	lowered := strings.ToLower(value)
	for _, t := range truthyValues {
		if lowered == t {
			return true
		}
	}
	return false
}

// TypedValue converts a stored value into its natural Go representation for
// JSON rendering: int64, float64, bool, json.RawMessage, or the string itself.
// Empty values map to nil so API responses render them as null.
func TypedValue(dataType string, value string) (interface{}, error) {
	if value == "" {
		return nil, nil
	}

	switch dataType {
	case "integer":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid integer", value)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid decimal number", value)
		}
		return f, nil
	case "boolean":
		return TruthyValue(value), nil
	case "json":
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("value is not valid JSON")
		}
		return json.RawMessage(value), nil
	default:
		// string, date and datetime render as their stored text
		return value, nil
	}
}
