package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flemzord/sbot/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts app.RunContext to the service manager's Start/Stop calls.
type program struct {
	params app.Params
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		err := app.RunContext(ctx, p.params)
		if err != nil {
			if l, lerr := s.Logger(nil); lerr == nil {
				_ = l.Error(err)
			}
		}
		p.done <- err
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the sbot system service. The service re-invokes
// this binary with "service run" and the resolved configuration path.
func serviceConfig(p app.Params) (*service.Config, error) {
	args := []string{"service", "run"}
	if p.ConfigPath != "" {
		abs, err := filepath.Abs(p.ConfigPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if p.DataDir != "" {
		abs, err := filepath.Abs(p.DataDir)
		if err != nil {
			return nil, err
		}
		args = append(args, "--data-dir", abs)
	}
	return &service.Config{
		Name:        "sbot",
		DisplayName: "sbot chat bot",
		Description: "Runs the sbot chat bot with its configured channels.",
		Arguments:   args,
	}, nil
}

func newService(p app.Params) (service.Service, *program, error) {
	cfg, err := serviceConfig(p)
	if err != nil {
		return nil, nil, err
	}
	prg := &program{params: p}
	s, err := service.New(prg, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating service: %w", err)
	}
	return s, prg, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage sbot as a system service",
	}

	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the sbot service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				p := runParams(cmd)
				if action == "install" && p.ConfigPath == "" {
					path, err := app.ResolveConfigPath()
					if err != nil {
						return err
					}
					p.ConfigPath = path
				}
				s, _, err := newService(p)
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService(runParams(cmd))
			if err != nil {
				return err
			}
			return s.Run()
		},
	})
	return cmd
}
