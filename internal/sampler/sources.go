package sampler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type StaticLocator struct {
	Latitude       float64
	Longitude      float64
	IsMockLocation bool
}

func (l StaticLocator) Locate(ctx context.Context, _ LocateOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{Latitude: l.Latitude, Longitude: l.Longitude, IsMockLocation: l.IsMockLocation}, nil
}

// FileLocator reads "lat,lng[,mock]" from the first non-empty line of Path.
// A GPS daemon or test harness rewrites the file.
type FileLocator struct {
	Path string
}

func (l FileLocator) Locate(ctx context.Context, _ LocateOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}

	f, err := os.Open(l.Path)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return Position{}, fmt.Errorf("%w: %s", ErrPermissionDenied, l.Path)
	case err != nil:
		return Position{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return parsePosition(line)
	}
	if err := scanner.Err(); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	return Position{}, fmt.Errorf("%w: %s is empty", ErrPositionUnavailable, l.Path)
}

func parsePosition(line string) (Position, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return Position{}, fmt.Errorf("%w: malformed fix %q", ErrPositionUnavailable, line)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("%w: bad latitude %q", ErrPositionUnavailable, parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("%w: bad longitude %q", ErrPositionUnavailable, parts[1])
	}

	pos := Position{Latitude: lat, Longitude: lng}
	if len(parts) == 3 {
		mock, err := strconv.ParseBool(strings.TrimSpace(parts[2]))
		if err != nil {
			return Position{}, fmt.Errorf("%w: bad mock flag %q", ErrPositionUnavailable, parts[2])
		}
		pos.IsMockLocation = mock
	}
	return pos, nil
}

// SysfsBattery reads the first capacity file matching Glob, e.g.
// /sys/class/power_supply/*/capacity.
type SysfsBattery struct {
	Glob string
}

func (b SysfsBattery) Level() (int, error) {
	matches, err := filepath.Glob(b.Glob)
	if err != nil {
		return 0, err
	}
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			continue
		}
		return level, nil
	}
	return 0, fmt.Errorf("no battery capacity under %s", b.Glob)
}
