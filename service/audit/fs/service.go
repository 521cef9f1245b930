package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/taskgate/service/audit"
)

// Service is a filesystem-backed audit log.  Every entry is an individual
// immutable file under basePath/<taskID>/<seq>.json, so an append is a
// single atomic file creation and nothing is ever rewritten.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.Mutex
	lastSeq  map[string]int
}

var _ audit.Service = (*Service)(nil)

// Append adds an entry, enforcing strict per-task sequence ordering.
func (s *Service) Append(ctx context.Context, entry *audit.Entry) error {
	if entry == nil || entry.TaskID == "" {
		return audit.ErrBrokenChain
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.lastSequence(ctx, entry.TaskID)
	if err != nil {
		return err
	}
	if entry.Seq != last+1 {
		return audit.ErrOutOfOrder
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	location := s.entryPath(entry.TaskID, entry.Seq)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to append audit entry %s: %w", location, err)
	}
	s.lastSeq[entry.TaskID] = entry.Seq
	return nil
}

// List returns the ordered chain for a task.
func (s *Service) List(ctx context.Context, taskID string) ([]*audit.Entry, error) {
	entries, err := s.load(ctx, path.Join(s.basePath, taskID))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	return entries, nil
}

// Since returns entries recorded at or after the given instant, across tasks.
func (s *Service) Since(ctx context.Context, since time.Time) ([]*audit.Entry, error) {
	entries, err := s.load(ctx, s.basePath)
	if err != nil {
		return nil, err
	}
	var out []*audit.Entry
	for _, entry := range entries {
		if !entry.Timestamp.Before(since) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *Service) load(ctx context.Context, location string) ([]*audit.Entry, error) {
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check audit location: %w", err)
	}
	if !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, location, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	var entries []*audit.Entry
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("error reading audit entry %s: %v", object.URL(), err)
			continue
		}
		var entry audit.Entry
		if err = json.Unmarshal(data, &entry); err != nil {
			log.Printf("error unmarshaling audit entry %s: %v", object.URL(), err)
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// lastSequence returns the highest sequence recorded for a task, consulting
// the filesystem on first use so restarts keep the chain contiguous.
func (s *Service) lastSequence(ctx context.Context, taskID string) (int, error) {
	if last, ok := s.lastSeq[taskID]; ok {
		return last, nil
	}
	entries, err := s.load(ctx, path.Join(s.basePath, taskID))
	if err != nil {
		return 0, err
	}
	last := 0
	for _, entry := range entries {
		if entry.Seq > last {
			last = entry.Seq
		}
	}
	s.lastSeq[taskID] = last
	return last, nil
}

func (s *Service) entryPath(taskID string, seq int) string {
	return path.Join(s.basePath, taskID, fmt.Sprintf("%09d.json", seq))
}

// New creates a new filesystem audit log rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	return &Service{basePath: basePath, fs: fs, lastSeq: make(map[string]int)}, nil
}
