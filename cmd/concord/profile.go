package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/logger"
)

// profile starts the CPU profile named by --cpuprofile and returns the
// function that stops it and writes the heap profile named by --memprofile.
func profile(cmd *cobra.Command) (func(), error) {
	cpuPath, _ := cmd.Flags().GetString("cpuprofile")
	memPath, _ := cmd.Flags().GetString("memprofile")

	var cpu *os.File
	if cpuPath != "" {
		f, err := os.Create(cpuPath) //nolint:gosec // G304: path comes from a flag
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create CPU profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profile")
		}
		cpu = f
	}

	return func() {
		log := logger.Get()
		if cpu != nil {
			pprof.StopCPUProfile()
			if err := cpu.Close(); err != nil {
				log.Warn("failed to close CPU profile", zap.Error(err))
			}
		}
		if memPath == "" {
			return
		}
		f, err := os.Create(memPath) //nolint:gosec // G304: path comes from a flag
		if err != nil {
			log.Warn("failed to create memory profile", zap.Error(err))
			return
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Warn("failed to write memory profile", zap.Error(err))
		}
	}, nil
}
