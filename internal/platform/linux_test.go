//go:build linux

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/envmon/internal/measurement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func cpufreq(t *testing.T, root, cpu, khz string) {
	t.Helper()

	dir := filepath.Join("devices/system/cpu", "cpu"+cpu, "cpufreq")
	writeFile(t, root, filepath.Join(dir, "scaling_cur_freq"), khz+"\n")
	for _, f := range []string{"scaling_available_governors", "scaling_driver", "scaling_governor", "related_cpus", "scaling_setspeed"} {
		writeFile(t, root, filepath.Join(dir, f), "x\n")
	}
}

func fakeSysfs(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "devices/system/cpu/offline", "\n")
	cpufreq(t, root, "0", "1500000")
	cpufreq(t, root, "1", "600000")
	cpufreq(t, root, "10", "700000")
	cpufreq(t, root, "2", "800000")

	writeFile(t, root, "class/thermal/thermal_zone0/type", "cpu-thermal\n")
	writeFile(t, root, "class/thermal/thermal_zone0/policy", "step_wise\n")
	writeFile(t, root, "class/thermal/thermal_zone0/temp", "48312\n")

	writeFile(t, root, "firmware/devicetree/base/model", "Raspberry Pi 4 Model B Rev 1.4\x00")
	writeFile(t, root, "bus/nvmem/devices/rmem0/nvmem", "0123456789")
	writeFile(t, root, "bus/nvmem/devices/rmem1/nvmem", "01234")

	return root
}

func aarch64() (string, error) {
	return "aarch64", nil
}

func TestCPUs(t *testing.T) {
	l := NewLinux(WithSysfs(fakeSysfs(t)), WithMachine(aarch64))

	cpus, err := l.CPUs()
	require.NoError(t, err)
	require.Len(t, cpus, 4)

	ids := []string{cpus[0].ID, cpus[1].ID, cpus[2].ID, cpus[3].ID}
	assert.Equal(t, []string{"0", "1", "2", "10"}, ids, "ordered numerically")

	assert.Equal(t, CPU{ID: "0", Temperature: 48.312, HasTemperature: true, Frequency: 1.5e9, HasFrequency: true}, cpus[0])
	assert.Equal(t, 8e8, cpus[2].Frequency)
}

func TestCPUsWithoutCpufreqOrThermal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "devices/system/cpu/cpu0"), 0o755))

	cpus, err := NewLinux(WithSysfs(root)).CPUs()
	require.NoError(t, err)
	require.Len(t, cpus, 1)
	assert.False(t, cpus[0].HasFrequency)
	assert.False(t, cpus[0].HasTemperature)
}

func TestDeviceInfo(t *testing.T) {
	l := NewLinux(WithSysfs(fakeSysfs(t)), WithMachine(aarch64))

	labels, err := l.DeviceInfo()
	require.NoError(t, err)
	assert.Equal(t, measurement.Pairs(
		"cpu_frequency", "1500000000",
		"board_id", "aarch64",
		"board_name", "Raspberry Pi 4 Model B Rev 1.4",
		"nvm_bytes_count", "15",
	), labels)
}

func TestDeviceInfoOmitsUnavailable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "class/dmi/id/product_name", "Generic PC\n")

	l := NewLinux(WithSysfs(root), WithMachine(func() (string, error) {
		return "", os.ErrNotExist
	}))

	labels, err := l.DeviceInfo()
	require.NoError(t, err)
	assert.Equal(t, measurement.Pairs("board_name", "Generic PC"), labels)
}

func TestDeviceInfoUnexpectedFault(t *testing.T) {
	l := NewLinux(WithSysfs(fakeSysfs(t)), WithMachine(func() (string, error) {
		return "", errors.New("uname: bad address")
	}))

	_, err := l.DeviceInfo()
	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
	assert.ErrorContains(t, err, "bad address")
}

func TestMissingSysfs(t *testing.T) {
	_, err := NewLinux(WithSysfs(filepath.Join(t.TempDir(), "nope"))).CPUs()
	assert.Error(t, err)
}

func TestCPUsKeepFrequencyOnThermalFault(t *testing.T) {
	root := fakeSysfs(t)
	writeFile(t, root, "class/thermal/thermal_zone0/temp", "garbage\n")

	cpus, err := NewLinux(WithSysfs(root), WithMachine(aarch64)).CPUs()
	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
	require.Len(t, cpus, 4)
	assert.False(t, cpus[0].HasTemperature)
	assert.True(t, cpus[0].HasFrequency)
	assert.Equal(t, 1.5e9, cpus[0].Frequency)
}
