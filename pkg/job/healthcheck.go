package job

import (
	"context"
	"errors"
)

var (
	errManagerNil        = errors.New("manager is nil")
	errManagerNotStarted = errors.New("manager not started")
)

// Healthcheck reports whether the manager runs and River's database answers.
// Compatible with health.CheckFunc.
func Healthcheck(m *Manager) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := m.running(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if err := m.pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func (m *Manager) running() error {
	if m == nil {
		return errManagerNil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return errManagerNotStarted
	}
	return nil
}
