package persist

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

const flagPath = "/var/lib/romfat/enabled"

func TestFileFlag_State(t *testing.T) {
	tests := []struct {
		name        string
		content     []byte
		missing     bool
		want        bool
		wantEnabled bool
		wantErr     error
	}{
		{name: "missing file is enabled", missing: true, want: true, wantEnabled: true},
		{name: "zero byte is disabled", content: []byte{0x00}, want: false, wantEnabled: false},
		{name: "erased byte is corrupt", content: []byte{0xFF}, wantErr: ErrFlagCorrupt},
		{name: "empty file is corrupt", content: []byte{}, wantErr: ErrFlagCorrupt},
		{name: "too long is corrupt", content: []byte{0x00, 0x00}, wantErr: ErrFlagCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if !tt.missing {
				if err := afero.WriteFile(fs, flagPath, tt.content, 0644); err != nil {
					t.Fatal(err)
				}
			}

			flag := NewFileFlag(fs, flagPath)
			got, err := flag.State()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FileFlag.State() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && got != tt.want {
				t.Errorf("FileFlag.State() = %v, want %v", got, tt.want)
			}
			if flag.Enabled() != tt.wantEnabled {
				t.Errorf("FileFlag.Enabled() = %v, want %v", flag.Enabled(), tt.wantEnabled)
			}
		})
	}
}

func TestFileFlag_SetPersistentFlag(t *testing.T) {
	tests := []struct {
		name       string
		content    []byte
		missing    bool
		set        []bool
		wantFile   []byte
		wantExists bool
		wantWrites int
	}{
		{
			name:       "clear once",
			missing:    true,
			set:        []bool{false},
			wantFile:   []byte{0x00},
			wantExists: true,
			wantWrites: 1,
		},
		{
			name:       "clearing twice writes once",
			missing:    true,
			set:        []bool{false, false},
			wantFile:   []byte{0x00},
			wantExists: true,
			wantWrites: 1,
		},
		{
			name:       "enabling an enabled flag does nothing",
			missing:    true,
			set:        []bool{true},
			wantWrites: 0,
		},
		{
			name:       "enable again removes the file",
			content:    []byte{0x00},
			set:        []bool{true},
			wantWrites: 1,
		},
		{
			name:       "clear and enable",
			missing:    true,
			set:        []bool{false, true},
			wantWrites: 2,
		},
		{
			name:       "a corrupt file is repaired",
			content:    []byte{0x12, 0x34},
			set:        []bool{false},
			wantFile:   []byte{0x00},
			wantExists: true,
			wantWrites: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if !tt.missing {
				if err := afero.WriteFile(fs, flagPath, tt.content, 0644); err != nil {
					t.Fatal(err)
				}
			}

			flag := NewFileFlag(fs, flagPath)
			for _, v := range tt.set {
				if err := flag.SetPersistentFlag(v); err != nil {
					t.Fatalf("FileFlag.SetPersistentFlag(%v) error = %v", v, err)
				}
			}

			if flag.Writes() != tt.wantWrites {
				t.Errorf("FileFlag.Writes() = %v, want %v", flag.Writes(), tt.wantWrites)
			}

			data, err := afero.ReadFile(fs, flagPath)
			if exists := !errors.Is(err, os.ErrNotExist); exists != tt.wantExists {
				t.Fatalf("flag file exists = %v, want %v", exists, tt.wantExists)
			}
			if tt.wantExists {
				if diff := cmp.Diff(tt.wantFile, data); diff != "" {
					t.Errorf("flag file mismatch (-want +got):\n%s", diff)
				}
			}

			// A new instance reads the same state back.
			want := tt.set[len(tt.set)-1]
			if got := NewFileFlag(fs, flagPath).Enabled(); got != want {
				t.Errorf("FileFlag.Enabled() after reopening = %v, want %v", got, want)
			}
		})
	}
}

func TestFileFlag_readOnlyFs(t *testing.T) {
	flag := NewFileFlag(afero.NewReadOnlyFs(afero.NewMemMapFs()), flagPath)

	if err := flag.SetPersistentFlag(false); err == nil {
		t.Errorf("FileFlag.SetPersistentFlag() on a read-only fs should fail")
	}
	if !flag.Enabled() {
		t.Errorf("FileFlag.Enabled() = false, a failed write must not change the state")
	}
	if flag.Writes() != 0 {
		t.Errorf("FileFlag.Writes() = %v, want 0", flag.Writes())
	}
}

func TestFileFlag_concurrent(t *testing.T) {
	flag := NewFileFlag(afero.NewMemMapFs(), flagPath)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = flag.Enabled()
			_ = flag.SetPersistentFlag(false)
		}()
	}
	wg.Wait()

	if flag.Enabled() {
		t.Errorf("FileFlag.Enabled() = true, want false")
	}
	if flag.Writes() != 1 {
		t.Errorf("FileFlag.Writes() = %v, want 1", flag.Writes())
	}
}

func TestMemoryFlag(t *testing.T) {
	tests := []struct {
		name        string
		initial     bool
		set         []bool
		wantEnabled bool
		wantWrites  int
	}{
		{name: "clear", initial: true, set: []bool{false}, wantEnabled: false, wantWrites: 1},
		{name: "clear twice", initial: true, set: []bool{false, false}, wantEnabled: false, wantWrites: 1},
		{name: "already disabled", initial: false, set: []bool{false}, wantEnabled: false, wantWrites: 0},
		{name: "toggle", initial: true, set: []bool{false, true}, wantEnabled: true, wantWrites: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := NewMemoryFlag(tt.initial)
			for _, v := range tt.set {
				if err := flag.SetPersistentFlag(v); err != nil {
					t.Fatalf("MemoryFlag.SetPersistentFlag() error = %v", err)
				}
			}
			if flag.Enabled() != tt.wantEnabled {
				t.Errorf("MemoryFlag.Enabled() = %v, want %v", flag.Enabled(), tt.wantEnabled)
			}
			if flag.Writes() != tt.wantWrites {
				t.Errorf("MemoryFlag.Writes() = %v, want %v", flag.Writes(), tt.wantWrites)
			}
		})
	}
}
