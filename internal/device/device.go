// Package device probes compute capabilities for the accelerated path.
package device

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Device describes the compute placement selected for a run.
type Device struct {
	Name        string
	Accelerated bool
	Workers     int
	Features    []string
}

// Detect resolves an acceleration request against what the host actually
// supports. A request on unsupported hardware degrades to the plain CPU
// device rather than failing; callers log the outcome.
func Detect(requestAccel bool) Device {
	features := probeFeatures()
	available := cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3)

	d := Device{
		Name:        "cpu",
		Accelerated: requestAccel && available,
		Workers:     1,
		Features:    features,
	}
	if d.Accelerated {
		d.Name = "cpu-accel"
		d.Workers = runtime.NumCPU()
	}
	return d
}

func probeFeatures() []string {
	var features []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
	} {
		if cpuid.CPU.Supports(f.id) {
			features = append(features, f.name)
		}
	}
	return features
}

// String renders the device for log lines.
func (d Device) String() string {
	return fmt.Sprintf("%s (workers=%d, features=%v)", d.Name, d.Workers, d.Features)
}
