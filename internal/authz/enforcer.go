package authz

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/jmoiron/sqlx"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
	"github.com/sirupsen/logrus"
)

// rbacModel is a plain RBAC model. Only the g section is used today: role
// assignments are grouping rules from a user subject to a role name.
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
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// PolicyTable is the table the sqlx adapter keeps Casbin rules in.
const PolicyTable = "casbin_rule"

// RoleStore resolves and assigns the roles attached to users. It wraps a
// Casbin enforcer so role assignments can live next to future policies.
type RoleStore struct {
	enforcer *casbin.Enforcer
	logger   *logrus.Logger
	mu       sync.RWMutex
}

// NewSQLXAdapter returns a Casbin adapter persisting rules in PolicyTable on db.
func NewSQLXAdapter(db *sql.DB) persist.Adapter {
	return sqlxadapter.NewAdapterFromOptions(&sqlxadapter.AdapterOptions{
		DB:        sqlx.NewDb(db, "postgres"),
		TableName: PolicyTable,
	})
}

// NewRoleStore creates a role store backed by adapter. A nil adapter keeps
// every rule in memory, which is what the memory user store and tests use.
func NewRoleStore(adapter persist.Adapter, logger *logrus.Logger) (*RoleStore, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load Casbin model: %w", err)
	}

	var enforcer *casbin.Enforcer
	if adapter == nil {
		enforcer, err = casbin.NewEnforcer(m)
	} else {
		enforcer, err = casbin.NewEnforcer(m, adapter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(adapter != nil)

	logger.WithField("persistent", adapter != nil).Info("Role store initialized successfully")

	return &RoleStore{
		enforcer: enforcer,
		logger:   logger,
	}, nil
}

func subject(userID string) string {
	return "user:" + userID
}

// AssignRole grants role to the user. Assigning a role twice is a no-op.
func (s *RoleStore) AssignRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.enforcer.AddRoleForUser(subject(userID), role)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"role":    role,
			"error":   err.Error(),
		}).Error("Failed to add role for user")
		return fmt.Errorf("failed to add role for user: %w", err)
	}

	if added {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"role":    role,
		}).Info("Role added for user successfully")
	} else {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"role":    role,
		}).Debug("Role already exists for user")
	}

	return nil
}

// GetRoles returns the role names directly assigned to the user, sorted.
func (s *RoleStore) GetRoles(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles, err := s.enforcer.GetRolesForUser(subject(userID))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Error("Failed to get roles for user")
		return nil, fmt.Errorf("failed to get roles for user: %w", err)
	}

	sort.Strings(roles)
	return roles, nil
}
