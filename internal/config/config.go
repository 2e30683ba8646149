// Package config loads the tool's YAML configuration. The CLI applies its
// flag overrides on top of the loaded structure; everything downstream
// consumes it as already validated.
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"audit-sentry/internal/collector"
)

type Config struct {
	Output     OutputConfig     `mapstructure:"output"`
	Collectors CollectorsConfig `mapstructure:"collectors"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Run        RunConfig        `mapstructure:"run"`
}

type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

type CollectorsConfig struct {
	Local []string `mapstructure:"local"`
	AWS   []string `mapstructure:"aws"`
}

type AWSConfig struct {
	Profile string `mapstructure:"profile"`
	Region  string `mapstructure:"region"`
}

type RunConfig struct {
	// Concurrency <= 0 means host parallelism.
	Concurrency int           `mapstructure:"concurrency"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	CancelGrace time.Duration `mapstructure:"cancel_grace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.base_dir", "./evidence")
	v.SetDefault("collectors.local", []string{
		"uname", "processes", "crontab", "packages", "disk_usage", "network", "os_release",
	})
	v.SetDefault("collectors.aws", []string{
		"caller_identity", "s3_buckets", "security_groups", "ec2_instances", "iam_users",
	})
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.region", "")
	v.SetDefault("run.concurrency", 0)
	v.SetDefault("run.task_timeout", "60s")
	v.SetDefault("run.cancel_grace", "5s")
}

// Load reads configuration from path, or from ./config.yaml when path is
// empty. A missing default file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

// Validate checks every configured collector name against the registry, so
// an unknown name fails the run before any task executes.
func (c *Config) Validate(reg *collector.Registry) error {
	if _, err := reg.ResolveAll(collector.CategoryLocal, c.Collectors.Local); err != nil {
		return err
	}
	if _, err := reg.ResolveAll(collector.CategoryAWS, c.Collectors.AWS); err != nil {
		return err
	}
	return nil
}
