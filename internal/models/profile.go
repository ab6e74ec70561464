// Package models defines profile structures persisted by the profile store.
package models

import "encoding/json"

// Profile is the locally stored patient profile. AvatarURI is nil when the
// patient has not picked an avatar.
type Profile struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	AvatarURI *string `json:"avatarUri"`
}

// UnmarshalJSON decodes a persisted profile document, coercing malformed
// fields (non-string values) to their zero/nil defaults instead of failing.
// Stored documents may predate the current schema, so decoding is lenient.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Name = stringField(raw, "name")
	p.Email = stringField(raw, "email")
	p.AvatarURI = nil
	if v, ok := raw["avatarUri"]; ok && string(v) != "null" {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			p.AvatarURI = &s
		}
	}
	return nil
}

// stringField extracts a string field from a raw JSON object, returning the
// empty string when the field is absent or not a string.
func stringField(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}
