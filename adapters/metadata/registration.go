package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RegistrationType identifies an ERC-8004 registration document
const RegistrationType = "https://eips.ethereum.org/EIPS/eip-8004#registration-v1"

const registrationSchema = `{
	"type": "object",
	"properties": {
		"type": {"const": "https://eips.ethereum.org/EIPS/eip-8004#registration-v1"},
		"name": {"type": "string"},
		"description": {"type": "string"},
		"image": {"type": "string"},
		"active": {"type": "boolean"},
		"endpoints": {"type": "array"},
		"services": {"type": "array"}
	}
}`

var schema = jsonschema.MustCompileString("registration.schema.json", registrationSchema)

// Registration is the subset of the registration document the gatekeeper reads
type Registration struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// Inactive reports an explicit "active": false
func (r Registration) Inactive() bool {
	return r.Active != nil && !*r.Active
}

// Deactivated reports an explicit "active": false in raw. Only the active
// field is decoded, so the answer does not depend on the rest of the document.
func Deactivated(raw []byte) bool {
	var doc struct {
		Active *bool `json:"active"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	return doc.Active != nil && !*doc.Active
}

// ParseRegistration validates raw against the registration schema and decodes it
func ParseRegistration(raw []byte) (Registration, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Registration{}, fmt.Errorf("registration is not json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Registration{}, fmt.Errorf("registration does not match schema: %w", err)
	}

	var reg Registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		return Registration{}, fmt.Errorf("failed to decode registration: %w", err)
	}
	return reg, nil
}
