// Package resumetoken carries a small allow-listed set of model fields
// across a redirect or a new tab. A token is the base64url encoding of a
// JSON object. Models declare their own allow-list; fields outside it are
// dropped silently when encoding and when decoding.
package resumetoken

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// Fields is a flat set of model attributes.
type Fields map[string]string

// Pick copies the allow-listed entries of attrs. Absent entries stay
// absent.
func Pick(attrs Fields, allow []string) Fields {
	picked := make(Fields, len(allow))
	for _, name := range allow {
		if value, ok := attrs[name]; ok {
			picked[name] = value
		}
	}
	return picked
}

// Encode returns the token for the allow-listed subset of fields.
func Encode(fields Fields, allow []string) string {
	// Marshalling a map[string]string cannot fail.
	raw, _ := json.Marshal(Pick(fields, allow))
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode returns the allow-listed fields carried by token. An empty or
// malformed token yields an empty Fields.
func Decode(token string, allow []string) Fields {
	decoded := make(Fields)
	if token == "" {
		return decoded
	}

	raw, ok := decodeBase64(token)
	if !ok {
		return decoded
	}

	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return decoded
	}

	for _, name := range allow {
		if value, ok := scalarString(values[name]); ok {
			decoded[name] = value
		}
	}
	return decoded
}

// Populate overwrites attrs with the allow-listed fields in token.
func Populate(attrs Fields, token string, allow []string) {
	for name, value := range Decode(token, allow) {
		attrs[name] = value
	}
}

// decodeBase64 accepts the URL-safe and the standard alphabet, padded or
// not.
func decodeBase64(token string) ([]byte, bool) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	for _, encoding := range []*base64.Encoding{base64.RawURLEncoding, base64.RawStdEncoding} {
		if raw, err := encoding.DecodeString(token); err == nil {
			return raw, true
		}
	}
	return nil, false
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}
