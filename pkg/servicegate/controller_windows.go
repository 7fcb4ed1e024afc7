//go:build windows
// +build windows

package servicegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

type scmController struct {
	slogger     *slog.Logger
	serviceName string
}

func NewController(slogger *slog.Logger, serviceName string) *scmController {
	return &scmController{
		slogger:     slogger.With("component", "scm_controller", "service_name", serviceName),
		serviceName: serviceName,
	}
}

// withService connects to the SCM fresh for every call.
func (c *scmController) withService(fn func(*mgr.Service) error) error {
	serviceManager, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to service control manager: %w", err)
	}
	defer serviceManager.Disconnect()

	service, err := serviceManager.OpenService(c.serviceName)
	if err != nil {
		return fmt.Errorf("opening service %s: %w", c.serviceName, err)
	}
	defer service.Close()

	return fn(service)
}

func (c *scmController) State(_ context.Context) (RunState, error) {
	state := StateUnknown
	err := c.withService(func(s *mgr.Service) error {
		status, err := s.Query()
		if err != nil {
			return fmt.Errorf("querying service status: %w", err)
		}

		switch status.State {
		case svc.Running:
			state = StateRunning
		case svc.Stopped:
			state = StateStopped
		case svc.StartPending, svc.StopPending, svc.ContinuePending, svc.PausePending, svc.Paused:
			state = StatePending
		}

		return nil
	})

	return state, err
}

func (c *scmController) SetStartMode(_ context.Context, mode StartMode) error {
	startType := uint32(mgr.StartAutomatic)
	if mode == StartDisabled {
		startType = mgr.StartDisabled
	}

	return c.withService(func(s *mgr.Service) error {
		cfg, err := s.Config()
		if err != nil {
			return fmt.Errorf("reading service config: %w", err)
		}

		if cfg.StartType == startType {
			return nil
		}

		cfg.StartType = startType
		if err := s.UpdateConfig(cfg); err != nil {
			return fmt.Errorf("updating service start type: %w", err)
		}

		return nil
	})
}

func (c *scmController) Start(_ context.Context) error {
	return c.withService(func(s *mgr.Service) error {
		if err := s.Start(); err != nil && !errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING) {
			return fmt.Errorf("starting service: %w", err)
		}
		return nil
	})
}

func (c *scmController) Stop(_ context.Context) error {
	return c.withService(func(s *mgr.Service) error {
		if _, err := s.Control(svc.Stop); err != nil && !errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return fmt.Errorf("stopping service: %w", err)
		}
		return nil
	})
}
