package simd

import "golang.org/x/sys/cpu"

// ImplDesc returns a description of the vector extensions available on this
// machine, for bench logging.
func ImplDesc() string {
	switch {
	case cpu.X86.HasAVX512F:
		return "AVX-512"
	case cpu.X86.HasAVX2:
		return "AVX2"
	case cpu.X86.HasSSE41:
		return "SSE4"
	case cpu.ARM64.HasASIMD:
		return "NEON"
	}
	return "generic"
}
