// Package pid guards against two agents sharing the sensor bus.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/envmon/internal/errors"
	"golang.org/x/sys/unix"
)

const (
	ErrPIDFile = errors.ErrorCode("pid_file_failed")
)

// File is a held PID file.
type File struct {
	path string
}

// Acquire writes the current process ID to path. It fails with
// errors.ErrAlreadyRunning when path names a live process other than this
// one; a stale or unreadable file is replaced.
func Acquire(path string) (*File, error) {
	errFactory := errors.New()

	if running, ok := readPID(path); ok && running != os.Getpid() && alive(running) {
		return nil, errFactory.WithData(errors.ErrAlreadyRunning, struct {
			Path string
			PID  int
		}{
			Path: path,
			PID:  running,
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errFactory.Wrap(ErrPIDFile, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return nil, errFactory.Wrap(ErrPIDFile, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, errFactory.Wrap(ErrPIDFile, err)
	}

	return &File{path: path}, nil
}

// Path returns the file's location.
func (f *File) Path() string {
	return f.path
}

// Release removes the PID file if it still names this process.
func (f *File) Release() error {
	if running, ok := readPID(f.path); !ok || running != os.Getpid() {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(ErrPIDFile, err)
	}

	return nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

// alive reports whether pid exists. EPERM means it exists under another
// user.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
