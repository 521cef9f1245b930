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

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/dao/criteria"
)

// Service implements a filesystem-backed task store.  Each task is a single
// JSON document; saves replace the whole document so a task update is an
// atomic file write.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

// Ensure Service implements dao.Service
var _ dao.Service[string, task.Task] = (*Service)(nil)

// Save persists a task to the filesystem.
func (s *Service) Save(ctx context.Context, aTask *task.Task) error {
	if aTask == nil {
		return dao.ErrNilEntity
	}
	if aTask.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(aTask)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	location := s.taskPath(aTask.ID)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save task to file %s: %w", location, err)
	}
	return nil
}

// Load retrieves a task from the filesystem.
func (s *Service) Load(ctx context.Context, id string) (*task.Task, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	location := s.taskPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check if task exists: %w", err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}

	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var aTask task.Task
	if err = json.Unmarshal(data, &aTask); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task data: %w", err)
	}
	return &aTask, nil
}

// Delete removes a task file.  The engine never deletes live tasks – this
// exists for administrative archival only.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.taskPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check if task exists: %w", err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err = s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete task file: %w", err)
	}
	return nil
}

// List returns tasks matching the supplied filters, ordered by ID.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list task files: %w", err)
	}

	var tasks []*task.Task
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("error reading task file %s: %v", object.URL(), err)
			continue
		}
		var aTask task.Task
		if err = json.Unmarshal(data, &aTask); err != nil {
			log.Printf("error unmarshaling task from %s: %v", object.URL(), err)
			continue
		}
		if criteria.Match(parameters, fieldOf(&aTask)) {
			tasks = append(tasks, &aTask)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func fieldOf(t *task.Task) func(name string) string {
	return func(name string) string {
		switch name {
		case "State":
			return string(t.State)
		case "SourceRef":
			return t.SourceRef
		case "Type":
			return string(t.Type)
		}
		return ""
	}
}

// taskPath returns the file path for a task
func (s *Service) taskPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// New creates a new filesystem task store rooted at basePath.
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
	return &Service{basePath: basePath, fs: fs}, nil
}
