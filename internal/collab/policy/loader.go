package policy

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed policies/room_roles.json
var policiesFS embed.FS

// Loader loads policy configurations from embedded JSON files
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// LoadRolePolicy loads the room role table
func (l *Loader) LoadRolePolicy() (*RolePolicy, error) {
	data, err := policiesFS.ReadFile("policies/room_roles.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read room_roles.json: %w", err)
	}
	return ParseRolePolicy(data)
}

// ParseRolePolicy decodes and sanity-checks a role table.
func ParseRolePolicy(data []byte) (*RolePolicy, error) {
	var rp RolePolicy
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, fmt.Errorf("failed to parse role policy: %w", err)
	}

	for op, p := range rp.Operations {
		if p == nil {
			return nil, fmt.Errorf("operation %s has no policy", op)
		}
		if len(p.AllowedRoles) == 0 && p.GlobalRole == "" {
			return nil, fmt.Errorf("operation %s allows no caller", op)
		}
		if p.DenyCode == "" {
			return nil, fmt.Errorf("operation %s has no deny_code", op)
		}
		for _, role := range p.AllowedRoles {
			if !role.Valid() {
				return nil, fmt.Errorf("operation %s: unknown role %s", op, role)
			}
		}
	}
	for op, table := range rp.Transitions {
		if _, ok := rp.Operations[op]; !ok {
			return nil, fmt.Errorf("transitions for unknown operation %s", op)
		}
		for from, targets := range table {
			if from != RoleNone && !from.Valid() {
				return nil, fmt.Errorf("operation %s: unknown role %s", op, from)
			}
			for _, to := range targets {
				if to != RoleNone && !to.Valid() {
					return nil, fmt.Errorf("operation %s: unknown role %s", op, to)
				}
			}
		}
	}

	return &rp, nil
}
