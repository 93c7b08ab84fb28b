package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// decodeForm reads a JSON form body into a generic map.
func decodeForm(content []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("decode form: %v: %w", err, domain.ErrMalformedInput)
	}
	if m == nil {
		return nil, fmt.Errorf("decode form: body is not an object: %w", domain.ErrMalformedInput)
	}
	return m, nil
}

// BusinessIdentityFromForm converts a business-identity form into its payload.
// Absent fields are left empty for the validator to report.
func BusinessIdentityFromForm(content []byte) (*domain.BusinessIdentity, error) {
	m, err := decodeForm(content)
	if err != nil {
		return nil, err
	}

	bi := &domain.BusinessIdentity{}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"company_name", &bi.CompanyName},
		{"tax_code", &bi.TaxCode},
		{"business_type", &bi.BusinessType},
		{"industry", &bi.Industry},
		{"address", &bi.Address},
		{"established_date", &bi.EstablishedDate},
	} {
		v, err := getOptionalStringField(m, f.key)
		if err != nil {
			return nil, fmt.Errorf("BusinessIdentityFromForm: %v: %w", err, domain.ErrMalformedInput)
		}
		if v != nil {
			*f.dst = *v
		}
	}
	return bi, nil
}

// OwnershipFromForm converts an ownership form ({"owners": [...]}) into its payload.
func OwnershipFromForm(content []byte) (*domain.Ownership, error) {
	m, err := decodeForm(content)
	if err != nil {
		return nil, err
	}

	own := &domain.Ownership{Owners: []domain.Owner{}}
	raw, ok := m["owners"]
	if !ok || raw == nil {
		return own, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("OwnershipFromForm: 'owners' is %T, want array: %w", raw, domain.ErrMalformedInput)
	}

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("OwnershipFromForm: owner %d is %T, want object: %w", i, item, domain.ErrMalformedInput)
		}
		owner, err := ownerFromMap(obj)
		if err != nil {
			return nil, fmt.Errorf("OwnershipFromForm: owner %d: %v: %w", i, err, domain.ErrMalformedInput)
		}
		own.Owners = append(own.Owners, owner)
	}
	return own, nil
}

func ownerFromMap(obj map[string]interface{}) (domain.Owner, error) {
	var owner domain.Owner

	name, err := getStringField(obj, "name", false)
	if err != nil {
		return owner, err
	}
	owner.Name = strings.TrimSpace(name)

	share, err := getFloat64Field(obj, "share_percent", false)
	if err != nil {
		return owner, err
	}
	owner.SharePercent = share

	role, err := getOptionalStringField(obj, "role")
	if err != nil {
		return owner, err
	}
	if role != nil {
		owner.Role = *role
	}
	id, err := getOptionalStringField(obj, "national_id")
	if err != nil {
		return owner, err
	}
	if id != nil {
		owner.NationalID = *id
	}
	return owner, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	case float64:
		// Tax codes and IDs are sometimes sent as bare numbers.
		s := strings.TrimSpace(fmt.Sprintf("%.0f", val))
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
