// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package engine

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-core-stack/throttle/errors"
)

type memoryFile struct {
	File
	content []byte
}

type memoryFolder struct {
	Folder
	files map[string]*memoryFile
}

// Memory is an engine keeping folders and files in process memory,
// used for tests and as a reference of the Engine semantics. Every
// change bumps the revision of the file and of its folder.
type Memory struct {
	mu       sync.RWMutex
	folders  map[string]*memoryFolder
	revision uint64
	used     int64
	total    int64
}

// NewMemory creates an empty engine, total bytes <= 0 means no quota.
func NewMemory(total int64) *Memory {
	if total <= 0 {
		total = -1
	}
	return &Memory{
		folders: map[string]*memoryFolder{},
		total:   total,
	}
}

func (m *Memory) folder(name string) (*memoryFolder, error) {
	f, ok := m.folders[name]
	if !ok {
		return nil, errors.Wrapf(errors.NotFound, "folder %s not found", name)
	}
	return f, nil
}

// ListFolders implements Engine.
func (m *Memory) ListFolders(ctx context.Context) ([]Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := []Folder{}
	for _, name := range slices.Sorted(maps.Keys(m.folders)) {
		list = append(list, m.folders[name].Folder)
	}
	return list, nil
}

// DiffFolders implements Engine.
func (m *Memory) DiffFolders(ctx context.Context, known []Folder) (*FolderDiff, error) {
	current, err := m.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	diff := &FolderDiff{}
	seen := map[string]uint64{}
	for _, f := range known {
		seen[f.Name] = f.Revision
	}
	for _, f := range current {
		rev, ok := seen[f.Name]
		switch {
		case !ok:
			diff.Added = append(diff.Added, f)
		case rev != f.Revision:
			diff.Modified = append(diff.Modified, f)
		}
		delete(seen, f.Name)
	}
	diff.Removed = slices.Sorted(maps.Keys(seen))
	return diff, nil
}

// ListFiles implements Engine.
func (m *Memory) ListFiles(ctx context.Context, folder string) ([]File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, err := m.folder(folder)
	if err != nil {
		return nil, err
	}
	list := []File{}
	for _, name := range slices.Sorted(maps.Keys(f.files)) {
		list = append(list, f.files[name].File)
	}
	return list, nil
}

// DiffFiles implements Engine.
func (m *Memory) DiffFiles(ctx context.Context, folder string, known []File) (*FileDiff, error) {
	current, err := m.ListFiles(ctx, folder)
	if err != nil {
		return nil, err
	}
	diff := &FileDiff{}
	seen := map[string]uint64{}
	for _, f := range known {
		seen[f.Name] = f.Revision
	}
	for _, f := range current {
		rev, ok := seen[f.Name]
		switch {
		case !ok:
			diff.Added = append(diff.Added, f)
		case rev != f.Revision:
			diff.Modified = append(diff.Modified, f)
		}
		delete(seen, f.Name)
	}
	diff.Removed = slices.Sorted(maps.Keys(seen))
	return diff, nil
}

// Quota implements Engine.
func (m *Memory) Quota(ctx context.Context) (*Quota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Quota{Used: m.used, Total: m.total}, nil
}

// Metadata implements Engine.
func (m *Memory) Metadata(ctx context.Context, folder, name string) (*File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, err := m.folder(folder)
	if err != nil {
		return nil, err
	}
	file, ok := f.files[name]
	if !ok {
		return nil, errors.Wrapf(errors.NotFound, "file %s/%s not found", folder, name)
	}
	info := file.File
	return &info, nil
}

// Upload implements Engine.
func (m *Memory) Upload(ctx context.Context, folder, name string, r io.Reader) (*File, error) {
	if folder == "" || name == "" {
		return nil, errors.Wrap(errors.InvalidArgument, "folder and file name are required")
	}
	// read outside of the lock, the reader may be throttled
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.folders[folder]
	if !ok {
		f = &memoryFolder{
			Folder: Folder{Name: folder},
			files:  map[string]*memoryFile{},
		}
	}
	var previous int64
	if old, ok := f.files[name]; ok {
		previous = old.Size
	}
	used := m.used - previous + int64(len(content))
	if m.total > 0 && used > m.total {
		return nil, errors.Wrapf(errors.InvalidArgument, "quota of %d bytes exceeded", m.total)
	}

	m.revision++
	m.used = used
	file := &memoryFile{
		File: File{
			Folder:   folder,
			Name:     name,
			Revision: m.revision,
			Size:     int64(len(content)),
			Modified: time.Now(),
		},
		content: content,
	}
	f.files[name] = file
	f.Revision = m.revision
	m.folders[folder] = f
	info := file.File
	return &info, nil
}

// Download implements Engine.
func (m *Memory) Download(ctx context.Context, folder, name string) (io.ReadCloser, *File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, err := m.folder(folder)
	if err != nil {
		return nil, nil, err
	}
	file, ok := f.files[name]
	if !ok {
		return nil, nil, errors.Wrapf(errors.NotFound, "file %s/%s not found", folder, name)
	}
	info := file.File
	// content is never modified in place, uploads replace it
	return io.NopCloser(bytes.NewReader(file.content)), &info, nil
}
