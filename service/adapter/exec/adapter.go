// Package exec provides the command execution adapter backing file
// operation tasks.  Commands run locally or over SSH through a pooled
// session per host.
package exec

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/adapter"
)

// Config represents the exec adapter configuration.
type Config struct {
	Host         *Host             `json:"host,omitempty" yaml:"host,omitempty"`
	Workdir      string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Env          map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Commands     []string          `json:"commands,omitempty" yaml:"commands,omitempty"`
	TimeoutMs    int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	AbortOnError *bool             `json:"abortOnError,omitempty" yaml:"abortOnError,omitempty"`
}

func (c *Config) init() {
	if c.Host == nil {
		c.Host = &Host{}
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = int(time.Minute / time.Millisecond)
	}
}

// Adapter executes the configured commands when a task is dispatched.  Task
// attributes are exposed to the commands through TASK_* environment
// variables.
type Adapter struct {
	config   Config
	sessions map[string]*gosh.Service
	mux      sync.Mutex
}

// New creates an exec adapter.
func New(config Config) *Adapter {
	config.init()
	return &Adapter{
		config:   config,
		sessions: make(map[string]*gosh.Service),
	}
}

func (a *Adapter) Name() string { return "exec" }

// ConfigType exposes the adapter configuration type to the registry.
func (a *Adapter) ConfigType() reflect.Type { return reflect.TypeOf(Config{}) }

// Dispatch runs the configured commands, returning a failed result when the
// final exit status is non zero.
func (a *Adapter) Dispatch(ctx context.Context, aTask *task.Task) (*adapter.Result, error) {
	session, err := a.session(ctx, aTask)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	if a.config.Workdir != "" {
		if _, _, err = session.Run(ctx, "cd "+a.config.Workdir); err != nil {
			return nil, fmt.Errorf("failed to change directory: %w", err)
		}
	}
	abortOnError := true
	if a.config.AbortOnError != nil {
		abortOnError = *a.config.AbortOnError
	}

	var combined strings.Builder
	var lastStatus int
	for _, command := range a.config.Commands {
		stdout, status, err := session.Run(ctx, command, runner.WithTimeout(a.config.TimeoutMs))
		if err != nil && stdout == "" {
			stdout = err.Error()
		}
		if stdout != "" {
			combined.WriteString(stdout)
			combined.WriteString("\n")
		}
		lastStatus = status
		if abortOnError && status != 0 {
			break
		}
	}
	result := &adapter.Result{
		Success: lastStatus == 0,
		Detail:  strings.TrimSpace(combined.String()),
	}
	return result, nil
}

// session returns a pooled session for the configured host, creating it on
// first use with the task's attributes in the environment.
func (a *Adapter) session(ctx context.Context, aTask *task.Task) (*gosh.Service, error) {
	host := a.config.Host
	a.mux.Lock()
	defer a.mux.Unlock()
	if session, ok := a.sessions[host.URL]; ok {
		return session, nil
	}

	env := map[string]string{
		"TASK_ID":         aTask.ID,
		"TASK_TYPE":       string(aTask.Type),
		"TASK_SOURCE_REF": aTask.SourceRef,
	}
	for k, v := range a.config.Env {
		env[k] = v
	}
	options := []runner.Option{runner.WithEnvironment(env)}

	var session *gosh.Service
	var err error
	if host.IsLocal() {
		session, err = gosh.New(ctx, local.New(options...))
	} else {
		sshConfig, cfgErr := host.SSHConfig(ctx)
		if cfgErr != nil {
			return nil, fmt.Errorf("failed to resolve SSH config: %w", cfgErr)
		}
		session, err = gosh.New(ctx, rssh.New(host.Address(), sshConfig, options...))
	}
	if err != nil {
		return nil, err
	}
	a.sessions[host.URL] = session
	return session, nil
}

// Close releases all pooled sessions.
func (a *Adapter) Close() error {
	a.mux.Lock()
	defer a.mux.Unlock()
	var errs []string
	for id, session := range a.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("failed to close session %s: %v", id, err))
		}
	}
	a.sessions = make(map[string]*gosh.Service)
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
