//go:build !linux && !windows

package prowler

import "dolphinmem/pkg/memory"

func attach(pid int) (*handle, error) {
	return nil, memory.ErrPlatformUnsupported
}
