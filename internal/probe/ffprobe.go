// Package probe reads media properties with the ffprobe binary
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrNoDuration is returned when ffprobe reports no usable duration
var ErrNoDuration = errors.New("media has no duration")

// FFProbe probes media files with ffprobe
type FFProbe struct {
	binary string
	logger *zap.Logger
}

// NewFFProbe creates a prober.
//
// "binary" is the ffprobe executable name or path; empty means "ffprobe" from PATH.
func NewFFProbe(binary string, logger *zap.Logger) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{
		binary: binary,
		logger: logger,
	}
}

// AssertReady checks that the ffprobe binary can be found
func (p *FFProbe) AssertReady() error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("missing required binary %q: %w", p.binary, err)
	}
	return nil
}

// ProbeDuration returns the container duration of the file at "path" in seconds
func (p *FFProbe) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if path == "" {
		return 0, fmt.Errorf("path required")
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	seconds, err := parseDuration(string(out))
	if err != nil {
		return 0, err
	}
	p.logger.Debug("media probed", zap.String("path", path), zap.Float64("seconds", seconds))
	return seconds, nil
}

// parseDuration reads the first numeric line of ffprobe output.
// ffprobe prints "N/A" for streams without a known duration.
func parseDuration(out string) (float64, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "N/A" {
			continue
		}
		seconds, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, fmt.Errorf("unexpected ffprobe output %q: %w", line, err)
		}
		if seconds <= 0 {
			return 0, ErrNoDuration
		}
		return seconds, nil
	}
	return 0, ErrNoDuration
}
