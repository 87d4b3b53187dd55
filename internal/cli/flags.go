package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
)

// minInterval matches the config validator's floor for sampling intervals.
const minInterval = 100 * time.Millisecond

// ParseInterval parses a sampling interval flag.
func ParseInterval(flag string) (time.Duration, error) {
	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 500ms, 2s, or 1m.")
	}
	if d < minInterval {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %s is too short", d),
			"Use 100ms or more so sampling doesn't swamp the machine.")
	}
	return d, nil
}
