// Package persist stores the one bit "synthetic volume enabled" flag.
//
// The flag behaves like the erased flash word it replaces: it starts out enabled
// and clearing it is what the trigger write does. Setting it back is an explicit
// maintenance action.
package persist

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/logging"
	"github.com/spf13/afero"
)

var ErrFlagCorrupt = errors.New("flag file is corrupt")

// disabled is the content of a flag file which holds a cleared flag.
const disabled = 0x00

// FileFlag keeps the flag in a one byte file. A missing file reads as enabled.
// It is safe for concurrent use.
type FileFlag struct {
	fs   afero.Fs
	path string

	lock   sync.Mutex
	loaded bool
	value  bool
	writes int
}

func NewFileFlag(fs afero.Fs, path string) *FileFlag {
	return &FileFlag{fs: fs, path: path}
}

// State reads the flag. A file with any other content than a single zero byte is ErrFlagCorrupt.
func (f *FileFlag) State() (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.load()
}

func (f *FileFlag) load() (bool, error) {
	if f.loaded {
		return f.value, nil
	}

	data, err := afero.ReadFile(f.fs, f.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f.value = true
	case err != nil:
		return false, checkpoint.From(err)
	case len(data) == 1 && data[0] == disabled:
		f.value = false
	default:
		return false, checkpoint.Wrap(ErrFlagCorrupt, fmt.Errorf("%v: % X", f.path, data))
	}

	f.loaded = true
	return f.value, nil
}

// Enabled reports the flag. An unreadable flag counts as disabled, so a broken store
// never brings the synthetic volume back.
func (f *FileFlag) Enabled() bool {
	enabled, err := f.State()
	if err != nil {
		logging.Warn(logging.ComponentPersist, "could not read the enabled flag", "path", f.path, "error", err)
		return false
	}
	return enabled
}

// SetPersistentFlag stores enabled. Storing the current value does not touch the file.
func (f *FileFlag) SetPersistentFlag(enabled bool) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	current, err := f.load()
	if err == nil && current == enabled {
		return nil
	}
	if err != nil && !errors.Is(err, ErrFlagCorrupt) {
		return err
	}

	if enabled {
		err = f.fs.Remove(f.path)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	} else {
		err = afero.WriteFile(f.fs, f.path, []byte{disabled}, 0644)
	}
	if err != nil {
		return checkpoint.From(err)
	}

	f.value = enabled
	f.loaded = true
	f.writes++
	logging.Info(logging.ComponentPersist, "enabled flag written", "path", f.path, "enabled", enabled)
	return nil
}

// Writes counts how often the file was changed.
func (f *FileFlag) Writes() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.writes
}

// MemoryFlag is a FileFlag without storage. The zero value is disabled, use NewMemoryFlag.
type MemoryFlag struct {
	lock    sync.Mutex
	enabled bool
	writes  int
}

func NewMemoryFlag(enabled bool) *MemoryFlag {
	return &MemoryFlag{enabled: enabled}
}

func (m *MemoryFlag) Enabled() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.enabled
}

func (m *MemoryFlag) SetPersistentFlag(enabled bool) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.enabled != enabled {
		m.enabled = enabled
		m.writes++
	}
	return nil
}

func (m *MemoryFlag) Writes() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.writes
}
