package rbac

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"phishnet/core/store"
)

// Objects and actions checked by the handlers.
const (
	ObjReports      = "reports"
	ObjEvidence     = "evidence"
	ObjRecycleBin   = "recyclebin"
	ObjPerpetrators = "perpetrators"
	ObjVictims      = "victims"
	ObjAttackTypes  = "attacktypes"
	ObjAuditLog     = "auditlog"

	ActReview   = "review"
	ActRestore  = "restore"
	ActEscalate = "escalate"
	ActFlag     = "flag"
	ActRead     = "read"
	ActManage   = "manage"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// policies maps each role to what it may do. Managers inherit everything
// reviewers can do through the grouping rule below.
var policies = [][]string{
	{store.RoleReviewer, ObjReports, ActReview},
	{store.RoleReviewer, ObjEvidence, ActReview},
	{store.RoleReviewer, ObjVictims, ActRead},
	{store.RoleReviewer, ObjAuditLog, ActRead},
	{store.RoleManager, ObjRecycleBin, ActRestore},
	{store.RoleManager, ObjPerpetrators, ActEscalate},
	{store.RoleManager, ObjVictims, ActFlag},
	{store.RoleManager, ObjReports, ActManage},
	{store.RoleManager, ObjAttackTypes, ActManage},
}

type Enforcer struct {
	e *casbin.Enforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}
	if _, err := e.AddGroupingPolicy(store.RoleManager, store.RoleReviewer); err != nil {
		return nil, err
	}
	return &Enforcer{e: e}, nil
}

// Can reports whether a role may perform act on obj.
func (r *Enforcer) Can(role, obj, act string) bool {
	ok, err := r.e.Enforce(role, obj, act)
	if err != nil {
		return false
	}
	return ok
}

// Require returns an error naming the missing permission; handlers turn
// it into a 403.
func (r *Enforcer) Require(role, obj, act string) error {
	if !r.Can(role, obj, act) {
		return fmt.Errorf("role %q may not %s %s", role, act, obj)
	}
	return nil
}
