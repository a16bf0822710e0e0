// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package engine defines the file synchronization engine served to
// the sync clients and the throttled facade guarding it.
package engine

import (
	"context"
	"io"
	"time"
)

// Folder state as known to the engine
type Folder struct {
	Name     string
	Revision uint64
}

// File state as known to the engine
type File struct {
	Folder   string
	Name     string
	Revision uint64
	Size     int64
	Modified time.Time
}

// FolderDiff lists the folders that changed compared to the state
// known by a client
type FolderDiff struct {
	Added    []Folder
	Modified []Folder
	Removed  []string
}

// FileDiff lists the files of a folder that changed compared to the
// state known by a client
type FileDiff struct {
	Added    []File
	Modified []File
	Removed  []string
}

// Quota of the storage backing the engine, Total is -1 when the
// storage is not bounded
type Quota struct {
	Used  int64
	Total int64
}

// Engine is the synchronization engine. The listing, comparing,
// quota and metadata operations are bounded work, uploads and
// downloads stream file content of arbitrary size.
type Engine interface {
	ListFolders(ctx context.Context) ([]Folder, error)
	DiffFolders(ctx context.Context, known []Folder) (*FolderDiff, error)
	ListFiles(ctx context.Context, folder string) ([]File, error)
	DiffFiles(ctx context.Context, folder string, known []File) (*FileDiff, error)
	Quota(ctx context.Context) (*Quota, error)
	Metadata(ctx context.Context, folder, name string) (*File, error)

	// Upload stores the content read from r as the file, creating
	// the folder if needed
	Upload(ctx context.Context, folder, name string, r io.Reader) (*File, error)

	// Download opens the content of the file, the caller closes it
	Download(ctx context.Context, folder, name string) (io.ReadCloser, *File, error)
}
