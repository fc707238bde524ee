package telemetry

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// Profile names accepted in ProfilerConfig.Profiles
const (
	ProfileCPU           = "cpu"
	ProfileAllocObjects  = "alloc_objects"
	ProfileAllocSpace    = "alloc_space"
	ProfileInuseObjects  = "inuse_objects"
	ProfileInuseSpace    = "inuse_space"
	ProfileGoroutines    = "goroutines"
	ProfileMutexCount    = "mutex_count"
	ProfileMutexDuration = "mutex_duration"
	ProfileBlockCount    = "block_count"
	ProfileBlockDuration = "block_duration"
)

var profileTypes = map[string]pyroscope.ProfileType{
	ProfileCPU:           pyroscope.ProfileCPU,
	ProfileAllocObjects:  pyroscope.ProfileAllocObjects,
	ProfileAllocSpace:    pyroscope.ProfileAllocSpace,
	ProfileInuseObjects:  pyroscope.ProfileInuseObjects,
	ProfileInuseSpace:    pyroscope.ProfileInuseSpace,
	ProfileGoroutines:    pyroscope.ProfileGoroutines,
	ProfileMutexCount:    pyroscope.ProfileMutexCount,
	ProfileMutexDuration: pyroscope.ProfileMutexDuration,
	ProfileBlockCount:    pyroscope.ProfileBlockCount,
	ProfileBlockDuration: pyroscope.ProfileBlockDuration,
}

// DefaultProfiles is what the server collects unless configured otherwise
var DefaultProfiles = []string{
	ProfileCPU, ProfileAllocObjects, ProfileAllocSpace,
	ProfileInuseObjects, ProfileInuseSpace, ProfileGoroutines,
}

// ProfilerConfig configures continuous profiling with Pyroscope
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	// Profiles lists profile names; empty means DefaultProfiles
	Profiles []string
	// SampleRate applies to mutex and block profiles. Zero means 5.
	SampleRate int
}

// Profiler pushes profiles to Pyroscope until stopped
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger

	mu      sync.Mutex
	stopped bool
}

// NewProfiler starts profiling. A disabled config yields a profiler that does nothing.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		logger.Info("profiling disabled")
		return p, nil
	}
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("profiler: server address is required")
	}
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler: application name is required")
	}

	types, err := resolveProfiles(cfg.Profiles)
	if err != nil {
		return nil, err
	}
	enableRuntimeSampling(types, cfg.SampleRate)

	tags := map[string]string{}
	if host := os.Getenv("HOSTNAME"); host != "" {
		tags["hostname"] = host
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		tags["pod"] = pod
	}

	started, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            logger.Named("pyroscope").Sugar(),
		Tags:              tags,
		ProfileTypes:      types,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	p.profiler = started

	logger.Info("profiling enabled",
		zap.String("server_address", cfg.ServerAddress),
		zap.Int("profile_types", len(types)))
	return p, nil
}

func resolveProfiles(names []string) ([]pyroscope.ProfileType, error) {
	if len(names) == 0 {
		names = DefaultProfiles
	}
	types := make([]pyroscope.ProfileType, 0, len(names))
	for _, name := range names {
		t, ok := profileTypes[name]
		if !ok {
			return nil, fmt.Errorf("profiler: unknown profile %q", name)
		}
		types = append(types, t)
	}
	return types, nil
}

// enableRuntimeSampling turns on the runtime hooks mutex and block profiles read from
func enableRuntimeSampling(types []pyroscope.ProfileType, rate int) {
	if rate <= 0 {
		rate = 5
	}
	var mutex, block bool
	for _, t := range types {
		switch t {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			mutex = true
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			block = true
		}
	}
	if mutex {
		runtime.SetMutexProfileFraction(rate)
	}
	if block {
		runtime.SetBlockProfileRate(rate)
	}
}

// Stop flushes pending profiles. Only the first call has any effect.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.profiler == nil {
		p.stopped = true
		return nil
	}
	p.stopped = true

	if err := p.profiler.Stop(); err != nil {
		return fmt.Errorf("stop pyroscope: %w", err)
	}
	p.logger.Info("profiling stopped")
	return nil
}

// IsEnabled reports whether profiles are being pushed
func (p *Profiler) IsEnabled() bool {
	return p.profiler != nil
}
