package assignment

import (
	"encoding/json"
	"strings"
)

// Older clients and servers used other names for some fields, and free text ("Yes" / "No") for the signed flags.
// The adapter below runs once, when a record crosses the API boundary; the rest of the code only knows the
// canonical schema. Canonical keys win over legacy ones when both are present.
var legacyKeys = map[string]string{
	"_id":        "id",
	"appSigned":  "apSigned",
	"dateSigned": "apDateSigned",
	"assignment": "assignmentType",
	"owner":      "createdBy",
	"userId":     "createdBy",
}

var flagKeys = []string{"apSigned", "iepSigned", "priority"}

// normalizeLegacy rewrites a JSON object to the canonical schema.
func normalizeLegacy(data []byte) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil { // JSON null
		return data, nil
	}

	changed := false
	for legacy, canonical := range legacyKeys {
		val, ok := raw[legacy]
		if !ok {
			continue
		}
		delete(raw, legacy)
		changed = true
		if _, exists := raw[canonical]; !exists {
			raw[canonical] = val
		}
	}
	for _, key := range flagKeys {
		val, ok := raw[key]
		if !ok {
			continue
		}
		if b, converted := legacyFlag(val); converted {
			raw[key] = b
			changed = true
		}
	}
	if val, ok := raw["status"]; ok {
		if st, converted := legacyEnum(val, func(s string) (string, bool) { st, ok := ParseStatus(s); return string(st), ok }); converted {
			raw["status"] = st
			changed = true
		}
	}
	if val, ok := raw["assignmentType"]; ok {
		if typ, converted := legacyEnum(val, func(s string) (string, bool) { typ, ok := ParseType(s); return string(typ), ok }); converted {
			raw["assignmentType"] = typ
			changed = true
		}
	}
	if !changed {
		return data, nil
	}
	return json.Marshal(raw)
}

// legacyFlag converts free-text and null flags to JSON booleans. converted is false for values that are already booleans.
func legacyFlag(val json.RawMessage) (json.RawMessage, bool) {
	var b bool
	if err := json.Unmarshal(val, &b); err == nil && string(val) != "null" {
		return val, false
	}
	var s string
	_ = json.Unmarshal(val, &s)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "signed":
		return json.RawMessage("true"), true
	}
	return json.RawMessage("false"), true
}

// legacyEnum rewrites a loosely spelled enum value ("completed", "in-progress"...) to its canonical spelling.
// Unknown values are left as is for validation to reject.
func legacyEnum(val json.RawMessage, parse func(string) (string, bool)) (json.RawMessage, bool) {
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return val, false
	}
	canonical, ok := parse(s)
	if !ok || canonical == s {
		return val, false
	}
	b, err := json.Marshal(canonical)
	if err != nil {
		return val, false
	}
	return b, true
}

func (a *Assignment) UnmarshalJSON(data []byte) error {
	type alias Assignment
	norm, err := normalizeLegacy(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, (*alias)(a))
}

func (na *NewAssignment) UnmarshalJSON(data []byte) error {
	type alias NewAssignment
	norm, err := normalizeLegacy(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, (*alias)(na))
}

func (ua *UpdateAssignment) UnmarshalJSON(data []byte) error {
	type alias UpdateAssignment
	norm, err := normalizeLegacy(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, (*alias)(ua))
}
