// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

// Config gathers the acquisition parameters of a DAQ run, as read from
// the TOML configuration file.
type Config struct {
	SampleRate     uint32 `mapstructure:"sample-rate"`
	SamplesPerHalf uint32 `mapstructure:"samples-per-half"`
	HardwareChans  int    `mapstructure:"hardware-channels"`
	Channels       []int  `mapstructure:"channels"`
	BatchCapacity  int    `mapstructure:"batch-capacity"`

	LiveDir  string `mapstructure:"live-dir"`
	LogDir   string `mapstructure:"log-dir"`
	LiveFile string `mapstructure:"live-file"`

	Version string `mapstructure:"version"`
	Author  string `mapstructure:"author"`
}

// DefaultConfig returns the compiled-in acquisition configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:     DefaultSampleRate,
		SamplesPerHalf: DefaultSamplesPerHalf,
		HardwareChans:  DefaultHardwareChans,
		Channels:       []int{1, 3},
		BatchCapacity:  DefaultBatchCapacity,
		LiveDir:        DefaultLiveDir,
		LogDir:         DefaultLogDir,
		LiveFile:       DefaultLiveFile,
		Version:        DefaultVersion,
		Author:         DefaultAuthor,
	}
}

// LoadConfig reads the acquisition configuration from fname, or, when
// fname is empty, from a "radar.toml" file looked up in the current
// directory and /etc/radar-lpdp. A missing file is not an error: the
// compiled-in defaults apply.
func LoadConfig(fname string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("radar")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/radar-lpdp")
	if fname != "" {
		v.SetConfigFile(fname)
	}

	err := v.ReadInConfig()
	if err != nil {
		var missing viper.ConfigFileNotFoundError
		if fname == "" && errors.As(err, &missing) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("daq: could not read config: %w", err)
	}

	err = v.UnmarshalKey("daq", &cfg)
	if err != nil {
		return cfg, fmt.Errorf("daq: could not unmarshal config %q: %w", v.ConfigFileUsed(), err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration without touching any hardware.
func (cfg Config) Validate() error {
	c := newConfig()
	WithConfig(cfg)(&c)

	err := c.validate()
	if err != nil {
		return err
	}
	_, err = newSelector(c.hwChans, c.chans)
	return err
}

// config is the resolved device configuration.
type config struct {
	rate     uint32 // sample rate, Hz
	nsamples uint32 // samples per half-buffer and channel
	hwChans  int    // channels in one hardware scan
	chans    []int  // selected channels, output order
	capacity int    // spool capacity, in capture events

	liveDir  string
	logDir   string
	liveFile string

	version string
	author  string

	card     uint16        // card number on the PCI bus
	run      uint32        // current run number
	trig     TriggerConfig // trigger configuration
	maxBytes int64         // capture buffer limit (0: unbounded)
	timeout  time.Duration // stop handshake timeout

	replay string // raw capture file to replay instead of hardware
	drv    driver
	sink   func(evt []byte)
	metreg *prometheus.Registry
}

func newConfig() config {
	return config{
		rate:     DefaultSampleRate,
		nsamples: DefaultSamplesPerHalf,
		hwChans:  DefaultHardwareChans,
		chans:    []int{1, 3},
		capacity: DefaultBatchCapacity,
		liveDir:  DefaultLiveDir,
		logDir:   DefaultLogDir,
		liveFile: DefaultLiveFile,
		version:  DefaultVersion,
		author:   DefaultAuthor,
		trig: TriggerConfig{
			Mode:     TrigModePost,
			Source:   TrigSrcExtDigital,
			Polarity: TrigNegative,
		},
		timeout: 10 * time.Second,
	}
}

func (cfg *config) validate() error {
	if cfg.rate == 0 {
		return fmt.Errorf("daq: invalid sample rate %d", cfg.rate)
	}
	if cfg.nsamples == 0 {
		return fmt.Errorf("daq: invalid samples-per-half %d", cfg.nsamples)
	}
	if cfg.hwChans <= 0 {
		return fmt.Errorf("daq: invalid hardware channel count %d", cfg.hwChans)
	}
	if cfg.capacity < 1 {
		return fmt.Errorf("daq: invalid batch capacity %d", cfg.capacity)
	}
	return nil
}

// Option configures a DAQ device.
type Option func(*config)

// WithConfig applies a whole acquisition configuration at once.
func WithConfig(c Config) Option {
	return func(cfg *config) {
		cfg.rate = c.SampleRate
		cfg.nsamples = c.SamplesPerHalf
		cfg.hwChans = c.HardwareChans
		cfg.chans = append([]int(nil), c.Channels...)
		cfg.capacity = c.BatchCapacity
		cfg.liveDir = c.LiveDir
		cfg.logDir = c.LogDir
		cfg.liveFile = c.LiveFile
		cfg.version = c.Version
		cfg.author = c.Author
	}
}

// WithSampleRate sets the per-channel sample rate, in Hz.
func WithSampleRate(hz uint32) Option {
	return func(cfg *config) {
		cfg.rate = hz
	}
}

// WithSamplesPerHalf sets the per-channel depth of each DMA half-buffer.
func WithSamplesPerHalf(n uint32) Option {
	return func(cfg *config) {
		cfg.nsamples = n
	}
}

// WithHardwareChannels sets the number of channels in one hardware scan.
func WithHardwareChannels(n int) Option {
	return func(cfg *config) {
		cfg.hwChans = n
	}
}

// WithChannels selects the channels to keep, in output order.
func WithChannels(chans ...int) Option {
	return func(cfg *config) {
		cfg.chans = append([]int(nil), chans...)
	}
}

// WithBatchCapacity sets the number of capture events per batch log.
func WithBatchCapacity(n int) Option {
	return func(cfg *config) {
		cfg.capacity = n
	}
}

// WithLiveDir sets the directory of the live file.
func WithLiveDir(dir string) Option {
	return func(cfg *config) {
		cfg.liveDir = dir
	}
}

// WithLogDir sets the directory batch logs are flushed to.
func WithLogDir(dir string) Option {
	return func(cfg *config) {
		cfg.logDir = dir
	}
}

// WithLiveFile sets the name of the canonical live file.
func WithLiveFile(name string) Option {
	return func(cfg *config) {
		cfg.liveFile = name
	}
}

// WithTriggerConfig sets the trigger mode, source and polarity.
func WithTriggerConfig(tc TriggerConfig) Option {
	return func(cfg *config) {
		cfg.trig = tc
	}
}

// WithRunNumber sets the run number reported in logs.
func WithRunNumber(run uint32) Option {
	return func(cfg *config) {
		cfg.run = run
	}
}

// WithMaxEventBytes bounds the growth of one capture's accumulator.
// A capture exceeding the bound is dropped, the run continues.
func WithMaxEventBytes(n int64) Option {
	return func(cfg *config) {
		cfg.maxBytes = n
	}
}

// WithEventSink registers a hook invoked with every completed capture
// payload, before it is handed to the batch spool.
func WithEventSink(fn func(evt []byte)) Option {
	return func(cfg *config) {
		cfg.sink = fn
	}
}

// WithReplay replays a raw interleaved capture file instead of
// acquiring from hardware.
func WithReplay(fname string) Option {
	return func(cfg *config) {
		cfg.replay = fname
	}
}

// WithMetricsRegistry registers the device acquisition counters in
// reg instead of a private registry. The counters are unregistered
// when the device is closed.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(cfg *config) {
		cfg.metreg = reg
	}
}

func withDriver(drv driver) Option {
	return func(cfg *config) {
		cfg.drv = drv
	}
}
