package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/port"
)

// RegistrationAgent announces this node to the HUB.
type RegistrationAgent struct {
	directory port.Directory
	self      domain.NodeIdentity
	timeout   time.Duration
	logger    *zap.Logger
}

func NewRegistrationAgent(directory port.Directory, self domain.NodeIdentity, timeout time.Duration, logger *zap.Logger) *RegistrationAgent {
	return &RegistrationAgent{directory: directory, self: self, timeout: timeout, logger: logger}
}

// Register sends one registration. Failures are logged and returned; the node
// keeps serving either way.
func (a *RegistrationAgent) Register(ctx context.Context) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.directory.Register(ctx, a.self); err != nil {
		a.logger.Warn("registration with hub failed",
			zap.String("name", a.self.Name),
			zap.String("address", a.self.Address),
			zap.Error(err),
		)
		return err
	}

	a.logger.Info("registered with hub", zap.String("name", a.self.Name), zap.String("address", a.self.Address))
	return nil
}
