package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ethpandaops/provisionoor/pkg/report"
	"github.com/ethpandaops/provisionoor/pkg/stats"
)

const (
	// EnvPrefix prefixes every environment variable override, e.g.
	// PROVISIONOOR_ANALYSIS_OUTLIER_STDDEVS.
	EnvPrefix = "PROVISIONOOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultOutlierStdDevs is the default outlier multiplier k in
	// mean + k*stddev.
	DefaultOutlierStdDevs = stats.DefaultOutlierStdDevs

	// DefaultReportTitle is the default top-level report heading.
	DefaultReportTitle = report.DefaultTitle

	// DefaultS3Prefix is the default key prefix for published reports.
	DefaultS3Prefix = "provisioning/reports"

	// DefaultS3Concurrency bounds concurrent artifact uploads.
	DefaultS3Concurrency = 3

	// StepSummaryEnv is the CI variable naming the step summary file.
	StepSummaryEnv = "GITHUB_STEP_SUMMARY"

	// OutputEnv is the CI variable naming the key=value output file.
	OutputEnv = "GITHUB_OUTPUT"
)

// Config is the root configuration for provisionoor.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Outputs  OutputsConfig  `yaml:"outputs" mapstructure:"outputs"`
	Publish  PublishConfig  `yaml:"publish" mapstructure:"publish"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// AnalysisConfig controls the statistics computed over the trials.
type AnalysisConfig struct {
	OutlierStdDevs float64 `yaml:"outlier_stddevs" mapstructure:"outlier_stddevs"`
}

// ReportConfig controls Markdown rendering.
type ReportConfig struct {
	Title string `yaml:"title" mapstructure:"title"`
	// MaxChars truncates the detailed results table so the report fits
	// the limit. Zero disables truncation.
	MaxChars int `yaml:"max_chars" mapstructure:"max_chars"`
}

// OutputsConfig names the files the report and metrics are written to.
// StepSummary and GitHubOutput fall back to the GITHUB_STEP_SUMMARY and
// GITHUB_OUTPUT environment variables.
type OutputsConfig struct {
	StepSummary  string `yaml:"step_summary,omitempty" mapstructure:"step_summary"`
	GitHubOutput string `yaml:"github_output,omitempty" mapstructure:"github_output"`
	JSON         string `yaml:"json,omitempty" mapstructure:"json"`
	// Owner is an optional "UID:GID" applied to files created by
	// provisionoor. Appended CI files keep their ownership.
	Owner string `yaml:"owner,omitempty" mapstructure:"owner"`
}

// PublishConfig contains remote publishing settings.
type PublishConfig struct {
	S3 S3PublishConfig `yaml:"s3" mapstructure:"s3"`
}

// S3PublishConfig contains S3 settings for publishing report artifacts.
type S3PublishConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL             string `yaml:"acl,omitempty" mapstructure:"acl"`
	Concurrency     int    `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
}

// Load reads configuration from the optional file at path, then applies
// environment overrides. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindCIEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so environment overrides are picked up
// by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)

	v.SetDefault("analysis.outlier_stddevs", DefaultOutlierStdDevs)

	v.SetDefault("report.title", DefaultReportTitle)
	v.SetDefault("report.max_chars", 0)

	v.SetDefault("outputs.step_summary", "")
	v.SetDefault("outputs.github_output", "")
	v.SetDefault("outputs.json", "")
	v.SetDefault("outputs.owner", "")

	v.SetDefault("publish.s3.enabled", false)
	v.SetDefault("publish.s3.endpoint_url", "")
	v.SetDefault("publish.s3.region", "")
	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.prefix", DefaultS3Prefix)
	v.SetDefault("publish.s3.access_key_id", "")
	v.SetDefault("publish.s3.secret_access_key", "")
	v.SetDefault("publish.s3.force_path_style", false)
	v.SetDefault("publish.s3.storage_class", "")
	v.SetDefault("publish.s3.acl", "")
	v.SetDefault("publish.s3.concurrency", DefaultS3Concurrency)
}

// bindCIEnv lets the CI-provided variables feed the output paths. The
// prefixed variable wins when both are set.
func bindCIEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"outputs.step_summary":  StepSummaryEnv,
		"outputs.github_output": OutputEnv,
	}

	for key, env := range bindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))

		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Analysis.OutlierStdDevs <= 0 {
		errs = append(errs, fmt.Errorf(
			"analysis.outlier_stddevs must be positive, got %v",
			c.Analysis.OutlierStdDevs))
	}

	if c.Report.MaxChars < 0 {
		errs = append(errs, fmt.Errorf(
			"report.max_chars must not be negative, got %d",
			c.Report.MaxChars))
	}

	if c.Outputs.Owner != "" {
		if _, _, ok := strings.Cut(c.Outputs.Owner, ":"); !ok {
			errs = append(errs, fmt.Errorf(
				"outputs.owner %q: expected UID:GID", c.Outputs.Owner))
		}
	}

	if s3 := c.Publish.S3; s3.Enabled {
		if s3.Bucket == "" {
			errs = append(errs, errors.New(
				"publish.s3.bucket is required when s3 publishing is enabled"))
		}

		if s3.Concurrency < 1 {
			errs = append(errs, fmt.Errorf(
				"publish.s3.concurrency must be at least 1, got %d",
				s3.Concurrency))
		}

		if (s3.AccessKeyID == "") != (s3.SecretAccessKey == "") {
			errs = append(errs, errors.New(
				"publish.s3.access_key_id and secret_access_key must be set together"))
		}
	}

	return errors.Join(errs...)
}
