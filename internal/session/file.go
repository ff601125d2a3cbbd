package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// File persists the session as JSON in a single file, readable only by
// the owner.  Other processes writing the same file are picked up by
// Watch.
type File struct {
	cell
	path string
	log  zerolog.Logger

	wmu     sync.Mutex // serialises writes and reloads
	modTime time.Time
	stop    context.CancelFunc
	done    chan struct{}
}

// OpenFile loads path if it exists.  A missing file is an empty session; a
// corrupt one is logged and treated as empty.
func OpenFile(path string, log zerolog.Logger) (*File, error) {
	f := &File{path: path, log: log}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) reload() error {
	f.wmu.Lock()
	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.modTime = time.Time{}
		f.wmu.Unlock()
		f.replace(model.AuthState{}, false)
		return nil
	}
	if err != nil {
		f.wmu.Unlock()
		return fmt.Errorf("session: stat %s: %w", f.path, err)
	}
	if info.ModTime().Equal(f.modTime) {
		f.wmu.Unlock()
		return nil
	}
	f.modTime = info.ModTime()
	b, err := os.ReadFile(f.path)
	f.wmu.Unlock()
	if err != nil {
		return fmt.Errorf("session: read %s: %w", f.path, err)
	}
	var st model.AuthState
	if err := json.Unmarshal(b, &st); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("ignoring unreadable session file")
		f.replace(model.AuthState{}, false)
		return nil
	}
	f.replace(st, st.User.ID != 0)
	return nil
}

// Save writes st atomically (temp file then rename).
func (f *File) Save(_ context.Context, st model.AuthState) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	f.wmu.Lock()
	err = f.write(b)
	f.wmu.Unlock()
	if err != nil {
		return err
	}
	f.replace(st, true)
	return nil
}

func (f *File) write(b []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".auth-*.json")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("session: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	if info, err := os.Stat(f.path); err == nil {
		f.modTime = info.ModTime()
	}
	return nil
}

// Clear removes the file.
func (f *File) Clear(_ context.Context) error {
	f.wmu.Lock()
	err := os.Remove(f.path)
	f.modTime = time.Time{}
	f.wmu.Unlock()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", f.path, err)
	}
	f.replace(model.AuthState{}, false)
	return nil
}

// Watch polls the file every interval and notifies subscribers of changes
// made by other processes.  It runs until Close.
func (f *File) Watch(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	f.wmu.Lock()
	if f.stop != nil {
		f.wmu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.stop = cancel
	f.done = make(chan struct{})
	f.wmu.Unlock()

	go func() {
		defer close(f.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := f.reload(); err != nil {
					f.log.Warn().Err(err).Msg("session file reload failed")
				}
			}
		}
	}()
}

// Close stops Watch.
func (f *File) Close() error {
	f.wmu.Lock()
	stop, done := f.stop, f.done
	f.stop = nil
	f.wmu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
	return nil
}
