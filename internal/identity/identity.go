// Package identity resolves the owner whose data a command works on.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// OwnerKey is the viper key holding the owner id. PROFITFIRST_OWNER_ID sets
// it from the environment.
const OwnerKey = "owner.id"

// Provider returns the authenticated owner id. An empty id with a nil error
// means nobody is signed in.
type Provider interface {
	Owner(ctx context.Context) (string, error)
}

// ConfigProvider reads the owner id from configuration.
type ConfigProvider struct {
	v *viper.Viper
}

// NewConfigProvider reads from v, or from the global viper when v is nil.
func NewConfigProvider(v *viper.Viper) *ConfigProvider {
	if v == nil {
		v = viper.GetViper()
	}
	return &ConfigProvider{v: v}
}

// Owner implements Provider.
func (p *ConfigProvider) Owner(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	owner := strings.TrimSpace(p.v.GetString(OwnerKey))
	if strings.ContainsAny(owner, " \t\n") {
		return "", fmt.Errorf("owner id %q must not contain whitespace", owner)
	}
	return owner, nil
}

// Static is a fixed identity.
type Static struct {
	ID  string
	Err error
}

// Owner implements Provider.
func (s Static) Owner(_ context.Context) (string, error) {
	return s.ID, s.Err
}
