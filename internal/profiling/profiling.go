package profiling

import (
	"context"

	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"
)

// Service pushes continuous CPU and memory profiles to a Pyroscope server
type Service struct {
	cfg      config.ProfilingConfig
	logger   *logger.Logger
	profiler *pyroscope.Profiler
}

// Module provides the profiler and ties it to the app lifecycle
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewService),
		fx.Invoke(RegisterHooks),
	)
}

func NewService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{cfg: cfg.Profiling, logger: logger}
}

// RegisterHooks starts profiling on app start when enabled
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start()
		},
		OnStop: func(ctx context.Context) error {
			return svc.Stop()
		},
	})
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		s.logger.Debugw("profiling disabled")
		return nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   s.cfg.ApplicationName,
		ServerAddress:     s.cfg.ServerAddress,
		BasicAuthUser:     s.cfg.BasicAuthUser,
		BasicAuthPassword: s.cfg.BasicAuthPass,
		SampleRate:        s.cfg.SampleRate,
		Logger:            s,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		s.logger.Errorw("failed to start profiler", "error", err)
		return err
	}
	s.profiler = profiler
	s.logger.Infow("profiling started",
		"application_name", s.cfg.ApplicationName,
		"server_address", s.cfg.ServerAddress,
	)
	return nil
}

func (s *Service) Stop() error {
	if s.profiler == nil {
		return nil
	}
	s.logger.Info("stopping profiler")
	return s.profiler.Stop()
}

// Debugf, Infof and Errorf route profiler logs through the app logger
func (s *Service) Debugf(format string, args ...interface{}) {
	s.logger.Debugf("[pyroscope] "+format, args...)
}

func (s *Service) Infof(format string, args ...interface{}) {
	s.logger.Debugf("[pyroscope] "+format, args...)
}

func (s *Service) Errorf(format string, args ...interface{}) {
	s.logger.Errorf("[pyroscope] "+format, args...)
}
