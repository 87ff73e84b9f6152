// Package authz builds the RBAC enforcer guarding admin endpoints.
//
// Policies are CSV lines in the casbin format, usually read from the
// casbin.policies config key:
//
//	p, role:admin, otp, read
//	g, 42, role:admin
package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/samber/lo"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// ErrInvalidPolicy is returned for a line that is neither a p nor a g rule.
var ErrInvalidPolicy = errors.New("authz: invalid policy line")

// NewEnforcer returns an in-memory enforcer loaded with lines.
func NewEnforcer(lines []string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		if err := addLine(e, line); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func addLine(e *casbin.Enforcer, line string) error {
	fields := lo.Compact(lo.Map(strings.Split(line, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	if len(fields) == 0 {
		return nil
	}

	var err error
	switch {
	case fields[0] == "p" && len(fields) == 4:
		_, err = e.AddPolicy(fields[1], fields[2], fields[3])
	case fields[0] == "g" && len(fields) == 3:
		_, err = e.AddGroupingPolicy(fields[1], fields[2])
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, line)
	}

	return err
}
