package cpu

import (
	"runtime"
	"strings"
	"unsafe"

	"github.com/klauspost/cpuid/v2"
	xcpu "golang.org/x/sys/cpu"
)

// CapabilityReport describes the host CPU as seen by the backend.
type CapabilityReport struct {
	Arch          string
	Brand         string // Empty when the CPU does not report one
	NumCPU        int
	PhysicalCores int
	CacheLineSize int
	L1D, L2, L3   int // Cache sizes in bytes, 0 if unknown
	AVX2          bool
	AVX512F       bool
	FMA           bool
	NEON          bool
}

// Capabilities reports the instruction-set extensions of the host.
// Kernels are portable Go; the report documents what the compiler may use.
func Capabilities() CapabilityReport {
	line := cpuid.CPU.CacheLine
	if line <= 0 {
		line = int(unsafe.Sizeof(xcpu.CacheLinePad{}))
	}
	return CapabilityReport{
		Arch:          runtime.GOARCH,
		Brand:         strings.TrimSpace(cpuid.CPU.BrandName),
		NumCPU:        runtime.NumCPU(),
		PhysicalCores: max(cpuid.CPU.PhysicalCores, 0),
		CacheLineSize: line,
		L1D:           max(cpuid.CPU.Cache.L1D, 0),
		L2:            max(cpuid.CPU.Cache.L2, 0),
		L3:            max(cpuid.CPU.Cache.L3, 0),
		AVX2:          xcpu.X86.HasAVX2,
		AVX512F:       xcpu.X86.HasAVX512F,
		FMA:           xcpu.X86.HasFMA,
		NEON:          xcpu.ARM64.HasASIMD,
	}
}

// Features returns the detected extensions as a comma-separated list.
func (r CapabilityReport) Features() string {
	var f []string
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"avx2", r.AVX2},
		{"avx512f", r.AVX512F},
		{"fma", r.FMA},
		{"neon", r.NEON},
	} {
		if c.ok {
			f = append(f, c.name)
		}
	}
	if len(f) == 0 {
		return "none"
	}
	return strings.Join(f, ",")
}
