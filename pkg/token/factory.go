package token

import (
	"fmt"
	"strings"

	"github.com/meridianpay/subvault/pkg/config"
)

// FromConfig builds the token backend named by configuration. The dev
// ledger is the only in-tree backend; production deployments swap in an
// adapter for the real token service.
func FromConfig(cfg config.VaultConfig) (Client, error) {
	switch strings.ToLower(cfg.TokenBackend) {
	case "", "devledger":
		return NewDevLedger(), nil
	default:
		return nil, fmt.Errorf("unknown token backend %q", cfg.TokenBackend)
	}
}
