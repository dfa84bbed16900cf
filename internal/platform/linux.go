//go:build linux

package platform

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/measurement"
	"github.com/prometheus/procfs/sysfs"
	"golang.org/x/sys/unix"
)

// Linux reads attributes from sysfs.
type Linux struct {
	root  string
	uname func() (string, error)
}

// Option configures a Linux source.
type Option func(*Linux)

// WithSysfs sets the sysfs mount point.
func WithSysfs(root string) Option {
	return func(l *Linux) {
		l.root = root
	}
}

// WithMachine replaces the uname machine lookup.
func WithMachine(fn func() (string, error)) Option {
	return func(l *Linux) {
		l.uname = fn
	}
}

// NewLinux returns a Source reading the running host.
func NewLinux(opts ...Option) *Linux {
	l := &Linux{
		root:  sysfs.DefaultMountPoint,
		uname: unameMachine,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Linux) fs() (sysfs.FS, error) {
	fs, err := sysfs.NewFS(l.root)
	if err != nil {
		return sysfs.FS{}, errFactory.Wrap(ErrAccessor, err)
	}

	return fs, nil
}

// CPUs lists every logical CPU with its frequency and the SoC temperature.
// Thermal zones are not per core, so each CPU carries the CPU zone reading.
// An attribute that fails to parse is left unset and its error returned
// alongside the remaining attributes.
func (l *Linux) CPUs() ([]CPU, error) {
	fs, err := l.fs()
	if err != nil {
		return nil, err
	}

	paths, err := fs.CPUs()
	if err != nil {
		return nil, errFactory.Wrap(ErrAccessor, err)
	}

	temp, hasTemp, tempErr := cpuTemperature(fs)
	freqs, freqErr := frequencies(fs)

	cpus := make([]CPU, 0, len(paths))
	for _, p := range paths {
		id := p.Number()
		cpu := CPU{ID: id, Temperature: temp, HasTemperature: hasTemp}
		if f, ok := freqs[id]; ok {
			cpu.Frequency = f
			cpu.HasFrequency = true
		}
		cpus = append(cpus, cpu)
	}

	sort.Slice(cpus, func(i, j int) bool {
		a, _ := strconv.Atoi(cpus[i].ID)
		b, _ := strconv.Atoi(cpus[j].ID)
		return a < b
	})

	return cpus, errors.Join(tempErr, freqErr)
}

func cpuTemperature(fs sysfs.FS) (float64, bool, error) {
	zones, err := fs.ClassThermalZoneStats()
	if err != nil {
		if IsUnavailable(err) {
			return 0, false, nil
		}
		return 0, false, errFactory.Wrap(ErrAccessor, err)
	}
	if len(zones) == 0 {
		return 0, false, nil
	}

	zone := zones[0]
	for _, z := range zones {
		t := strings.ToLower(z.Type)
		if strings.Contains(t, "cpu") || strings.Contains(t, "soc") || t == "x86_pkg_temp" {
			zone = z
			break
		}
	}

	return float64(zone.Temp) / 1000, true, nil
}

// frequencies returns the current frequency in Hz keyed by CPU number.
func frequencies(fs sysfs.FS) (map[string]float64, error) {
	stats, err := fs.SystemCpufreq()
	if err != nil {
		if IsUnavailable(err) {
			return nil, nil
		}
		return nil, errFactory.Wrap(ErrAccessor, err)
	}

	out := make(map[string]float64, len(stats))
	for _, s := range stats {
		if s.Name == "" {
			continue
		}

		khz := s.ScalingCurrentFrequency
		if khz == nil {
			khz = s.CpuinfoCurrentFrequency
		}
		if khz != nil {
			out[s.Name] = float64(*khz) * 1000
		}
	}

	return out, nil
}

// DeviceInfo returns cpu_frequency, board_id, board_name and
// nvm_bytes_count, omitting any the host does not expose.
func (l *Linux) DeviceInfo() (measurement.Labels, error) {
	var labels measurement.Labels

	fs, err := l.fs()
	if err != nil {
		return nil, err
	}

	freqs, err := frequencies(fs)
	if err != nil {
		return nil, err
	}
	if f, ok := freqs["0"]; ok {
		labels = labels.With(measurement.LabelCPUFrequency, strconv.FormatFloat(f, 'f', 0, 64))
	}

	machine, err := l.uname()
	switch {
	case err == nil && machine != "":
		labels = labels.With(measurement.LabelBoardID, machine)
	case err != nil && !IsUnavailable(err):
		return nil, errFactory.Wrap(ErrAccessor, err)
	}

	name, err := l.boardName()
	switch {
	case err == nil:
		labels = labels.With(measurement.LabelBoardName, name)
	case !IsUnavailable(err):
		return nil, errFactory.Wrap(ErrAccessor, err)
	}

	nvm, err := l.nvmBytes()
	switch {
	case err == nil:
		labels = labels.With(measurement.LabelNVMBytes, strconv.FormatInt(nvm, 10))
	case !IsUnavailable(err):
		return nil, errFactory.Wrap(ErrAccessor, err)
	}

	return labels, nil
}

func (l *Linux) boardName() (string, error) {
	for _, rel := range []string{
		"firmware/devicetree/base/model",
		"class/dmi/id/product_name",
	} {
		b, err := os.ReadFile(filepath.Join(l.root, rel))
		if err != nil {
			if IsUnavailable(err) {
				continue
			}
			return "", err
		}

		if name := strings.TrimSpace(string(bytes.TrimRight(b, "\x00"))); name != "" {
			return name, nil
		}
	}

	return "", errFactory.New(ErrUnavailable)
}

func (l *Linux) nvmBytes() (int64, error) {
	matches, err := filepath.Glob(filepath.Join(l.root, "bus/nvmem/devices/*/nvmem"))
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, errFactory.New(ErrUnavailable)
	}

	var total int64
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			if IsUnavailable(err) {
				continue
			}
			return 0, err
		}
		total += fi.Size()
	}

	return total, nil
}

func unameMachine() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", err
	}

	return unix.ByteSliceToString(u.Machine[:]), nil
}
