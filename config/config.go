// Package config loads the YAML configuration file describing a pool's
// storage location, its configured remotes, and the scheduler's worker
// bound and poll interval. Unlike the single flat key=value file this
// module's ancestor codebase reads, the surface here needs real
// nesting (each remote has its own method-specific fields and an
// optional schedule section), so it is expressed as a gopkg.in/yaml.v3
// document instead.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultBaseDirectoryPath is where commands store configuration and
// data by default. It defaults to $SATCHEL_BASE if set, otherwise
// $HOME/lib/satchel.
var DefaultBaseDirectoryPath string

func init() {
	if base := os.Getenv("SATCHEL_BASE"); base != "" {
		DefaultBaseDirectoryPath = base
	} else {
		DefaultBaseDirectoryPath = os.ExpandEnv("$HOME/lib/satchel")
	}
}

// C is the parsed configuration.
type C struct {
	Storage   StorageConfig           `yaml:"storage"`
	Remotes   map[string]RemoteConfig `yaml:"remotes"`
	Scheduler SchedulerConfig         `yaml:"scheduler"`
}

// StorageConfig configures the pool location.
type StorageConfig struct {
	Type     string `yaml:"type"`
	Location string `yaml:"location"`
	// Index, when non-empty, enables the bbolt side cache at this path.
	Index string `yaml:"index"`
}

// ScheduleConfig is a remote's optional periodic-backup configuration.
type ScheduleConfig struct {
	Enabled  bool  `yaml:"enabled"`
	Interval int64 `yaml:"interval"` // minutes, default 1440
}

// RemoteConfig is the method-agnostic configuration surface for a single
// remote, plus the fields specific methods (local/ssh/s3) consume.
type RemoteConfig struct {
	Method   string         `yaml:"method"`
	Includes []string       `yaml:"includes"`
	Excludes []string       `yaml:"excludes"`
	Schedule ScheduleConfig `yaml:"schedule"`

	Root string `yaml:"root"`

	Server   string `yaml:"server"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	SSHKey   string `yaml:"ssh_key"`

	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

// SchedulerConfig bounds the scheduler's concurrency and poll interval.
type SchedulerConfig struct {
	Workers      int `yaml:"workers"`
	LoopInterval int `yaml:"loop_interval"` // seconds
}

const (
	defaultScheduleInterval = 1440
	defaultWorkers          = 1
	defaultLoopInterval     = 60
)

// Load reads and parses the configuration file at path, applying the
// defaults documented on ScheduleConfig and SchedulerConfig fields.
func Load(path string) (*C, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %q", path)
	}
	var c C
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %q", path)
	}
	applyDefaults(&c)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyDefaults(c *C) {
	if c.Scheduler.Workers < 1 {
		c.Scheduler.Workers = defaultWorkers
	}
	if c.Scheduler.LoopInterval < 1 {
		c.Scheduler.LoopInterval = defaultLoopInterval
	}
	for name, r := range c.Remotes {
		if r.Schedule.Interval < 1 {
			r.Schedule.Interval = defaultScheduleInterval
			c.Remotes[name] = r
		}
	}
}

func (c *C) validate() error {
	if c.Storage.Location == "" {
		return errors.New("config: storage.location is required")
	}
	for name, r := range c.Remotes {
		if r.Method == "" {
			return errors.Errorf("config: remote %q: method is required", name)
		}
	}
	return nil
}

// Initialize writes a minimal starter configuration at path, refusing to
// overwrite an existing file.
func Initialize(path string, location string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("config: %q already exists", path)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "config: checking %q", path)
	}
	c := C{
		Storage:   StorageConfig{Type: "disk", Location: location},
		Remotes:   map[string]RemoteConfig{},
		Scheduler: SchedulerConfig{Workers: defaultWorkers, LoopInterval: defaultLoopInterval},
	}
	data, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "config: marshaling starter configuration")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, "config: writing %q", path)
	}
	return nil
}
