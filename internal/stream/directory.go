package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"kinetic/internal/media"
	"kinetic/internal/objectstore"
)

// TypeDirectory streams media files from a local folder. File bytes are
// ingested into the object store during the scan, so record identifiers
// are content hashes and downstream creator steps can load them without a
// URL.
const TypeDirectory = "directory"

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".tiff": {},
	".bmp":  {},
}

type directoryParams struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive,omitempty"`
}

type directoryStream struct {
	id      int64
	params  directoryParams
	objects *objectstore.Store

	scanned bool
	files   []string
	next    int
}

func newDirectoryFromParams(id int64, raw json.RawMessage, deps Deps) (Stream, error) {
	var params directoryParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Path) == "" {
		return nil, errors.New("directory stream requires a path")
	}
	if deps.Objects == nil {
		return nil, errors.New("directory stream requires an object store")
	}
	return &directoryStream{id: id, params: params, objects: deps.Objects}, nil
}

func (s *directoryStream) Next(ctx context.Context) (*media.Record, error) {
	if !s.scanned {
		if err := s.scan(); err != nil {
			return nil, err
		}
		s.scanned = true
	}
	for s.next < len(s.files) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := s.files[s.next]
		s.next++
		record, err := s.toRecord(path)
		if err != nil {
			return nil, fmt.Errorf("read media file %s: %w", path, err)
		}
		return record, nil
	}
	return nil, io.EOF
}

func (s *directoryStream) scan() error {
	var files []string
	err := filepath.WalkDir(s.params.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !s.params.Recursive && path != s.params.Path {
				return fs.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, isVideo := videoExtensions[ext]; isVideo {
			files = append(files, path)
			return nil
		}
		if _, isImage := imageExtensions[ext]; isImage {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan directory %s: %w", s.params.Path, err)
	}
	sort.Strings(files)
	s.files = files
	return nil
}

func (s *directoryStream) toRecord(path string) (*media.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	hash, err := s.objects.Put(data)
	if err != nil {
		return nil, fmt.Errorf("ingest into object store: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	_, isVideo := videoExtensions[ext]

	metadata := map[string]any{
		"filename": filepath.Base(path),
	}
	if !isVideo {
		if img, decodeErr := imaging.Open(path); decodeErr == nil {
			bounds := img.Bounds()
			metadata["width"] = bounds.Dx()
			metadata["height"] = bounds.Dy()
		}
	}

	return &media.Record{
		Identifier: hash,
		StreamID:   s.id,
		IsVideo:    isVideo,
		CreatedAt:  info.ModTime(),
		Metadata:   metadata,
	}, nil
}
