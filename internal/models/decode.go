package models

import (
	"strconv"
	"time"
)

// The helpers below read loosely-typed document fields. A missing or
// malformed value decodes to the zero value instead of failing.

func stringField(doc map[string]interface{}, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case int, int64, float64:
		return strconv.FormatInt(int64Field(doc, key), 10)
	}
	return ""
}

func optionalStringField(doc map[string]interface{}, key string) *string {
	s, ok := doc[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func int64Field(doc map[string]interface{}, key string) int64 {
	switch v := doc[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	}
	return 0
}

func boolField(doc map[string]interface{}, key string) (value, present bool) {
	switch v := doc[key].(type) {
	case bool:
		return v, true
	case int, int64, float64:
		return int64Field(doc, key) != 0, true
	}
	return false, false
}

// timeField accepts native timestamps as well as the RFC 3339 strings
// written by older clients.
func timeField(doc map[string]interface{}, key string) time.Time {
	switch v := doc[key].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
