// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/domain/classifier"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/evaluator"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

// DefaultPath is read when DOCQA_CONFIG is not set.
const DefaultPath = "config.yaml"

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                string  `yaml:"port"`
	RateLimitRPS        float64 `yaml:"rate_limit_rps"`
	RateLimitBurst      int     `yaml:"rate_limit_burst"`
	CORSOrigin          string  `yaml:"cors_origin"`
	ShutdownTimeoutSecs int     `yaml:"shutdown_timeout_secs"`
}

// S3Config locates the corpus in a bucket.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`

	// Read from DOCQA_S3_ACCESS_KEY_ID and DOCQA_S3_SECRET_ACCESS_KEY. When
	// either is empty the default AWS credential chain is used.
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

// CorpusConfig selects where ingestion output is read from.
type CorpusConfig struct {
	Source     string   `yaml:"source"` // local | s3
	Dir        string   `yaml:"dir"`
	Watch      bool     `yaml:"watch"`
	DebounceMs int      `yaml:"debounce_ms"`
	S3         S3Config `yaml:"s3"`
}

// RetrievalConfig configures the retriever.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ClassifierConfig mirrors classifier.Rules plus the tier table.
type ClassifierConfig struct {
	Threshold           int      `yaml:"threshold"`
	MultiQuestionWeight int      `yaml:"multi_question_weight"`
	LongQueryWords      int      `yaml:"long_query_words"`
	LongQueryWeight     int      `yaml:"long_query_weight"`
	ReasoningKeywords   []string `yaml:"reasoning_keywords"`
	ReasoningWeight     int      `yaml:"reasoning_weight"`
	ProblemKeywords     []string `yaml:"problem_keywords"`
	ProblemWeight       int      `yaml:"problem_weight"`
	SimpleTier          string   `yaml:"simple_tier"`
	ComplexTier         string   `yaml:"complex_tier"`
}

// EvaluatorConfig tunes the reliability heuristics.
type EvaluatorConfig struct {
	HallucinationRatio float64  `yaml:"hallucination_ratio"`
	RefusalPhrases     []string `yaml:"refusal_phrases"`
	VaguePhrases       []string `yaml:"vague_phrases"`
}

// GenerationConfig selects and configures the generator.
type GenerationConfig struct {
	Provider     string  `yaml:"provider"` // groq | gemini | ollama
	BaseURL      string  `yaml:"base_url"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	APIKey       string  `yaml:"-"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// QueryLogConfig configures the query log sinks.
type QueryLogConfig struct {
	Path       string `yaml:"path"`
	SQLitePath string `yaml:"sqlite_path"` // empty disables the mirror
	QueryRunes int    `yaml:"query_runes"`
}

// LogConfig configures process logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// IngestConfig configures the ingestion CLI.
type IngestConfig struct {
	PDFDir        string `yaml:"pdf_dir"`
	OutputDir     string `yaml:"output_dir"`
	MaxChunkWords int    `yaml:"max_chunk_words"`
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Evaluator  EvaluatorConfig  `yaml:"evaluator"`
	Generation GenerationConfig `yaml:"generation"`
	QueryLog   QueryLogConfig   `yaml:"query_log"`
	Log        LogConfig        `yaml:"log"`
	Ingest     IngestConfig     `yaml:"ingest"`
}

// providerDefaults holds the settings that follow from the provider choice.
type providerDefaults struct {
	APIKeyEnv   string
	SimpleTier  string
	ComplexTier string
}

var providers = map[string]providerDefaults{
	"groq": {
		APIKeyEnv:   "GROQ_API_KEY",
		SimpleTier:  classifier.DefaultTiers()[entities.ClassificationSimple],
		ComplexTier: classifier.DefaultTiers()[entities.ClassificationComplex],
	},
	"gemini": {
		APIKeyEnv:   "GEMINI_API_KEY",
		SimpleTier:  "gemini-1.5-flash",
		ComplexTier: "gemini-1.5-pro",
	},
	"ollama": {
		SimpleTier:  "llama3.2",
		ComplexTier: "llama3.1:70b",
	},
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := base()
	applyDefaults(cfg)
	return cfg
}

// base is Default without the provider-derived settings, so a file that only
// names a provider still gets that provider's key variable and tiers.
func base() *Config {
	rules := classifier.DefaultRules()
	eval := evaluator.DefaultConfig()
	query := usecases.DefaultQueryConfig()

	return &Config{
		Server: ServerConfig{
			Port:                "5000",
			RateLimitRPS:        10,
			RateLimitBurst:      20,
			CORSOrigin:          "*",
			ShutdownTimeoutSecs: 10,
		},
		Corpus: CorpusConfig{
			Source:     "local",
			Dir:        loader.DefaultDir,
			DebounceMs: 500,
		},
		Retrieval: RetrievalConfig{TopK: query.TopK},
		Classifier: ClassifierConfig{
			Threshold:           rules.Threshold,
			MultiQuestionWeight: rules.MultiQuestionWeight,
			LongQueryWords:      rules.LongQueryWords,
			LongQueryWeight:     rules.LongQueryWeight,
			ReasoningKeywords:   rules.ReasoningKeywords,
			ReasoningWeight:     rules.ReasoningWeight,
			ProblemKeywords:     rules.ProblemKeywords,
			ProblemWeight:       rules.ProblemWeight,
		},
		Evaluator: EvaluatorConfig{
			HallucinationRatio: eval.HallucinationRatio,
			RefusalPhrases:     eval.RefusalPhrases,
			VaguePhrases:       eval.VaguePhrases,
		},
		Generation: GenerationConfig{
			Provider:     "groq",
			MaxTokens:    query.MaxTokens,
			Temperature:  query.Temperature,
			TimeoutSecs:  int(query.Timeout / time.Second),
			SystemPrompt: query.SystemPrompt,
		},
		QueryLog: QueryLogConfig{
			Path:       "logs.jsonl",
			QueryRunes: query.LogQueryRunes,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Ingest: IngestConfig{
			PDFDir:        "./docs",
			OutputDir:     loader.DefaultDir,
			MaxChunkWords: usecases.DefaultMaxChunkWords,
		},
	}
}

// Load reads a config from path on top of the defaults. If the file does
// not exist, the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := base()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadFromEnv loads .env if present, reads the file named by DOCQA_CONFIG
// (or config.yaml), applies environment overrides and validates.
func LoadFromEnv() (*Config, string, error) {
	_ = godotenv.Load()

	path := os.Getenv("DOCQA_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("DOCQA_CORPUS_DIR"); v != "" {
		c.Corpus.Dir = v
	}
	if v := getenv("DOCQA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("DOCQA_PROVIDER"); v != "" {
		c.switchProvider(v)
	}
	if c.Generation.APIKeyEnv != "" {
		c.Generation.APIKey = getenv(c.Generation.APIKeyEnv)
	}
	c.Corpus.S3.AccessKeyID = getenv("DOCQA_S3_ACCESS_KEY_ID")
	c.Corpus.S3.SecretAccessKey = getenv("DOCQA_S3_SECRET_ACCESS_KEY")
}

// switchProvider changes the provider and replaces every setting still at
// the old provider's default with the new provider's default.
func (c *Config) switchProvider(name string) {
	name = strings.ToLower(name)
	old, next := providers[c.Generation.Provider], providers[name]
	c.Generation.Provider = name
	if c.Generation.APIKeyEnv == old.APIKeyEnv {
		c.Generation.APIKeyEnv = next.APIKeyEnv
	}
	if c.Classifier.SimpleTier == old.SimpleTier {
		c.Classifier.SimpleTier = next.SimpleTier
	}
	if c.Classifier.ComplexTier == old.ComplexTier {
		c.Classifier.ComplexTier = next.ComplexTier
	}
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}
	if c.Corpus.Source == "" {
		c.Corpus.Source = "local"
	}
	if c.Corpus.Dir == "" {
		c.Corpus.Dir = loader.DefaultDir
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "groq"
	}
	c.Generation.Provider = strings.ToLower(c.Generation.Provider)
	if d, ok := providers[c.Generation.Provider]; ok {
		if c.Generation.APIKeyEnv == "" {
			c.Generation.APIKeyEnv = d.APIKeyEnv
		}
		if c.Classifier.SimpleTier == "" {
			c.Classifier.SimpleTier = d.SimpleTier
		}
		if c.Classifier.ComplexTier == "" {
			c.Classifier.ComplexTier = d.ComplexTier
		}
	}
	if c.QueryLog.Path == "" {
		c.QueryLog.Path = "logs.jsonl"
	}
	if c.Ingest.OutputDir == "" {
		c.Ingest.OutputDir = c.Corpus.Dir
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Retrieval.TopK < 1 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK))
	}
	if c.Evaluator.HallucinationRatio <= 0 {
		errs = append(errs, fmt.Errorf("evaluator.hallucination_ratio must be positive, got %v", c.Evaluator.HallucinationRatio))
	}
	if c.Generation.TimeoutSecs < 1 {
		errs = append(errs, fmt.Errorf("generation.timeout_secs must be at least 1, got %d", c.Generation.TimeoutSecs))
	}
	if c.Generation.Temperature < 0 {
		errs = append(errs, fmt.Errorf("generation.temperature must not be negative, got %v", c.Generation.Temperature))
	}
	if _, ok := providers[strings.ToLower(c.Generation.Provider)]; !ok {
		errs = append(errs, fmt.Errorf("unknown generation.provider %q", c.Generation.Provider))
	}
	if c.Classifier.SimpleTier == "" || c.Classifier.ComplexTier == "" {
		errs = append(errs, errors.New("classifier.simple_tier and classifier.complex_tier must be set"))
	}
	switch c.Corpus.Source {
	case "local":
	case "s3":
		if c.Corpus.S3.Bucket == "" {
			errs = append(errs, errors.New("corpus.s3.bucket is required for the s3 source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown corpus.source %q", c.Corpus.Source))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Rules returns the classifier rules.
func (c ClassifierConfig) Rules() classifier.Rules {
	return classifier.Rules{
		Threshold:           c.Threshold,
		MultiQuestionWeight: c.MultiQuestionWeight,
		LongQueryWords:      c.LongQueryWords,
		LongQueryWeight:     c.LongQueryWeight,
		ReasoningKeywords:   c.ReasoningKeywords,
		ReasoningWeight:     c.ReasoningWeight,
		ProblemKeywords:     c.ProblemKeywords,
		ProblemWeight:       c.ProblemWeight,
	}
}

// Tiers returns the configured tier table.
func (c ClassifierConfig) Tiers() classifier.TierTable {
	return classifier.TierTable{
		entities.ClassificationSimple:  c.SimpleTier,
		entities.ClassificationComplex: c.ComplexTier,
	}
}

// Heuristics returns the evaluator configuration.
func (c EvaluatorConfig) Heuristics() evaluator.Config {
	return evaluator.Config{
		HallucinationRatio: c.HallucinationRatio,
		RefusalPhrases:     c.RefusalPhrases,
		VaguePhrases:       c.VaguePhrases,
	}
}

// Query returns the pipeline configuration.
func (c *Config) Query() usecases.QueryConfig {
	return usecases.QueryConfig{
		TopK:          c.Retrieval.TopK,
		MaxTokens:     c.Generation.MaxTokens,
		Temperature:   c.Generation.Temperature,
		Timeout:       time.Duration(c.Generation.TimeoutSecs) * time.Second,
		LogQueryRunes: c.QueryLog.QueryRunes,
		SystemPrompt:  c.Generation.SystemPrompt,
	}
}

// S3Source returns the loader settings for the s3 corpus source.
func (c CorpusConfig) S3Source() loader.S3Config {
	return loader.S3Config{
		Bucket:       c.S3.Bucket,
		Prefix:       c.S3.Prefix,
		Region:       c.S3.Region,
		AWSAccessKey: c.S3.AccessKeyID,
		AWSSecretKey: c.S3.SecretAccessKey,
	}
}
