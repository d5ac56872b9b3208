/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultConfigName = "bridge-config"
	DefaultConfigPath = "/etc/numaflow-bridge"

	DefaultMaxMessageSize    = 1024 * 1024 * 64
	DefaultMetricsPort       = 2469
	DefaultSideInputSchedule = "@every 30s"
	DefaultSideInputDir      = "/var/numaflow/side-inputs"
)

// GlobalConfig is the bridge configuration, populated from an optional YAML
// file and reloaded when the file changes.
type GlobalConfig struct {
	conf *config
	lock *sync.RWMutex
}

type config struct {
	LogLevel  string           `json:"logLevel"`
	Host      *HostConfig      `json:"host"`
	Server    *ServerConfig    `json:"server"`
	Metrics   *MetricsConfig   `json:"metrics"`
	SideInput *SideInputConfig `json:"sideInput"`
}

type HostConfig struct {
	// MaxPendingCalls bounds scheduled plus running callbacks, 0 means unbounded.
	MaxPendingCalls int64 `json:"maxPendingCalls"`
}

type ServerConfig struct {
	SockAddr       string `json:"sockAddr"`
	ServerInfoFile string `json:"serverInfoFile"`
	MaxMessageSize int    `json:"maxMessageSize"`
}

type MetricsConfig struct {
	Disabled bool `json:"disabled"`
	Port     int  `json:"port"`
}

type SideInputConfig struct {
	Schedule string `json:"schedule"`
	DirPath  string `json:"dirPath"`
}

func (g *GlobalConfig) GetLogLevel() string {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.conf.LogLevel
}

func (g *GlobalConfig) GetHostConfig() HostConfig {
	g.lock.RLock()
	defer g.lock.RUnlock()
	if g.conf.Host != nil {
		return *g.conf.Host
	}
	return HostConfig{}
}

func (g *GlobalConfig) GetServerConfig() ServerConfig {
	g.lock.RLock()
	defer g.lock.RUnlock()
	c := ServerConfig{}
	if g.conf.Server != nil {
		c = *g.conf.Server
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	return c
}

func (g *GlobalConfig) GetMetricsConfig() MetricsConfig {
	g.lock.RLock()
	defer g.lock.RUnlock()
	c := MetricsConfig{}
	if g.conf.Metrics != nil {
		c = *g.conf.Metrics
	}
	if c.Port == 0 {
		c.Port = DefaultMetricsPort
	}
	return c
}

func (g *GlobalConfig) GetSideInputConfig() SideInputConfig {
	g.lock.RLock()
	defer g.lock.RUnlock()
	c := SideInputConfig{}
	if g.conf.SideInput != nil {
		c = *g.conf.SideInput
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSideInputSchedule
	}
	if c.DirPath == "" {
		c.DirPath = DefaultSideInputDir
	}
	return c
}

type options struct {
	name             string
	paths            []string
	onReload         func(*GlobalConfig)
	onErrorReloading func(error)
}

type Option func(*options)

// WithConfigPath adds a directory to search for the config file, ahead of the default one.
func WithConfigPath(path string) Option {
	return func(o *options) {
		o.paths = append([]string{path}, o.paths...)
	}
}

func WithConfigName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithOnReload registers a hook invoked after every successful reload.
func WithOnReload(f func(*GlobalConfig)) Option {
	return func(o *options) {
		o.onReload = f
	}
}

func WithOnErrorReloading(f func(error)) Option {
	return func(o *options) {
		o.onErrorReloading = f
	}
}

// LoadConfig reads the configuration file. A missing file is not an error,
// defaults apply and nothing is watched.
func LoadConfig(opts ...Option) (*GlobalConfig, error) {
	o := &options{
		name:             DefaultConfigName,
		paths:            []string{DefaultConfigPath},
		onReload:         func(*GlobalConfig) {},
		onErrorReloading: func(error) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	v := viper.New()
	v.SetConfigName(o.name)
	v.SetConfigType("yaml")
	for _, p := range o.paths {
		v.AddConfigPath(p)
	}
	r := &GlobalConfig{
		conf: &config{},
		lock: new(sync.RWMutex),
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to load configuration file. %w", err)
	}
	if err := v.Unmarshal(r.conf); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration file. %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cf := &config{}
		if err := v.Unmarshal(cf); err != nil {
			o.onErrorReloading(err)
			return
		}
		r.lock.Lock()
		r.conf = cf
		r.lock.Unlock()
		o.onReload(r)
	})
	v.WatchConfig()
	return r, nil
}
