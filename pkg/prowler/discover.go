package prowler

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/process"

	"dolphinmem/utils"
)

// findProcess returns the pid of the first running process whose name starts
// with one of names.
func findProcess(names []string) (int, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil || !utils.PrefixIn(name, names) {
			continue
		}

		running, err := p.IsRunning()
		if err != nil || !running {
			continue
		}

		return int(p.Pid), nil
	}

	return 0, ErrProcessNotFound
}
