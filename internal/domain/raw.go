package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// RawPayload holds one upstream catalog record verbatim. The sync engine
// treats it as opaque apart from the external id lookup.
type RawPayload map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
func (p RawPayload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *RawPayload) Scan(value interface{}) error {
	if value == nil {
		*p = RawPayload{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan RawPayload")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, p)
}

// ExternalID extracts the stable upstream product id from a raw record.
// EPREL responses carry it as "productId" or "id"; either may arrive as a
// JSON number or string. Returns "" when the record has no usable id.
func (p RawPayload) ExternalID() string {
	for _, key := range []string{"productId", "id", "eprelRegistrationNumber"} {
		if v, ok := p[key]; ok {
			if s := stringifyID(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// String returns a raw string field, or "" when absent or not a string.
func (p RawPayload) String(keys ...string) string {
	for _, key := range keys {
		if v, ok := p[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Float returns a raw numeric field. JSON numbers decode as float64; string
// encodings are tolerated because EPREL is not consistent about them.
func (p RawPayload) Float(keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := p[key].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Int returns a raw integer field with the same tolerance as Float.
func (p RawPayload) Int(keys ...string) (int, bool) {
	f, ok := p.Float(keys...)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool returns a raw boolean field.
func (p RawPayload) Bool(keys ...string) (bool, bool) {
	for _, key := range keys {
		if v, ok := p[key].(bool); ok {
			return v, true
		}
	}
	return false, false
}

func stringifyID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", id)
	}
}
