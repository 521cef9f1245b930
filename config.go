package taskgate

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/taskgate/classifier"
	"github.com/viant/taskgate/service/dispatcher"
	"github.com/viant/taskgate/service/machine"
	"github.com/viant/taskgate/service/scheduler"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON, YAML, environment driven loaders, etc. The
// zero-value is useful – all nested fields inherit their package defaults.
type Config struct {
	Classifier classifier.Config `json:"classifier" yaml:"classifier"`
	Machine    machine.Config    `json:"machine" yaml:"machine"`
	Scheduler  scheduler.Config  `json:"scheduler" yaml:"scheduler"`
	Dispatcher dispatcher.Config `json:"dispatcher" yaml:"dispatcher"`
}

// DefaultConfig returns a Config populated with each package's defaults.
// Callers may modify the returned struct before passing it to New.
func DefaultConfig() *Config {
	return &Config{
		Classifier: classifier.DefaultConfig(),
		Machine:    machine.DefaultConfig(),
		Scheduler:  scheduler.DefaultConfig(),
		Dispatcher: dispatcher.DefaultConfig(),
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Dispatcher.WorkerCount <= 0 {
		return fmt.Errorf("dispatcher.workerCount must be > 0")
	}
	if c.Scheduler.PollingInterval <= 0 {
		return fmt.Errorf("scheduler.pollingInterval must be > 0")
	}
	if c.Classifier.FinancialThreshold < 0 {
		return fmt.Errorf("classifier.financialThreshold must not be negative")
	}
	return nil
}

// LoadConfig reads a YAML configuration from the supplied location.  Fields
// absent from the document keep their defaults.
func LoadConfig(ctx context.Context, location string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", location, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", location, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
