package auth

import (
	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

type CasbinService struct{ E *casbin.Enforcer }

func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	E, err := casbin.NewEnforcer(modelPath, adp)
	if err != nil {
		return nil, err
	}
	if err := E.LoadPolicy(); err != nil {
		return nil, err
	}
	return &CasbinService{E}, nil
}

// SeedPolicies installs the default role permissions when the policy
// table is empty. Idempotent: AddPolicy skips rules that already exist.
func (c *CasbinService) SeedPolicies() error {
	rules := [][]string{
		{"patient", "/api/location/*", "GET"},
		{"patient", "/api/location/*", "POST"},
		{"receptionist", "/api/location/*", "GET"},
		{"receptionist", "/api/location/*", "POST"},
		{"admin", "/api/*", "GET"},
		{"admin", "/api/*", "POST"},
		{"admin", "/api/*", "PUT"},
		{"admin", "/api/*", "DELETE"},
	}
	for _, r := range rules {
		if _, err := c.E.AddPolicy(r[0], r[1], r[2]); err != nil {
			return err
		}
	}
	return c.E.SavePolicy()
}
