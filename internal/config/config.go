// Package config holds service configuration with YAML file loading and
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RabbitMQConfig holds message broker settings.
type RabbitMQConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	TaskQueue       string `yaml:"task_queue"`
	ResultQueue     string `yaml:"result_queue"`
	ConsumerWorkers int    `yaml:"consumer_workers"`
}

// URL builds the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

// MilvusConfig holds vector database settings.
type MilvusConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	User              string `yaml:"user"`
	Password          string `yaml:"password"`
	DBName            string `yaml:"db"`
	DefaultCollection string `yaml:"default_collection"`
	DefaultPartition  string `yaml:"default_partition"`
}

// Address builds the Milvus endpoint address.
func (c MilvusConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OSSConfig holds object storage (MinIO / S3-compatible) settings.
type OSSConfig struct {
	Endpoint           string `yaml:"endpoint"`
	AccessKey          string `yaml:"access"`
	SecretKey          string `yaml:"secret"`
	PDFBucket          string `yaml:"pdf_bucket"`
	PreprocessedBucket string `yaml:"preprocessed_files_bucket"`
}

// ModelsConfig holds endpoints and knobs for the inference units the
// pipeline invokes. The units themselves are black boxes; only their
// addresses and the chunking strategy live here.
type ModelsConfig struct {
	ParserEndpoint   string `yaml:"parser_endpoint"`
	EmbedderEndpoint string `yaml:"embedder_endpoint"`
	EmbeddingDim     int    `yaml:"embedding_dim"`
	ChunkAPIBase     string `yaml:"chunk_api_base"`
	ChunkAPIKey      string `yaml:"chunk_api_key"`
	ChunkModel       string `yaml:"chunk_model"`
	ChunkStrategy    string `yaml:"chunk_strategy"`
}

// TelemetryConfig holds tracing exporter settings.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// DaemonConfig holds worker daemon settings.
type DaemonConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Config is the central configuration struct embedding all component configs.
type Config struct {
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	OSS       OSSConfig       `yaml:"minio"`
	Models    ModelsConfig    `yaml:"models"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RabbitMQ: RabbitMQConfig{
			Host:            "127.0.0.1",
			Port:            5672,
			User:            "admin",
			Password:        "admin",
			TaskQueue:       "taskQueue",
			ResultQueue:     "respQueue",
			ConsumerWorkers: 4,
		},
		Milvus: MilvusConfig{
			Host:              "127.0.0.1",
			Port:              19530,
			User:              "root",
			Password:          "Milvus",
			DBName:            "default",
			DefaultCollection: "default_collection",
			DefaultPartition:  "default_partition",
		},
		OSS: OSSConfig{
			Endpoint:           "127.0.0.1:9000",
			AccessKey:          "minioadmin",
			SecretKey:          "minioadmin",
			PDFBucket:          "mybucket",
			PreprocessedBucket: "prep",
		},
		Models: ModelsConfig{
			ParserEndpoint:   "http://127.0.0.1:8501",
			EmbedderEndpoint: "http://127.0.0.1:8502",
			EmbeddingDim:     768,
			ChunkAPIBase:     "http://127.0.0.1:11434/v1",
			ChunkModel:       "qwen2.5:7b",
			ChunkStrategy:    "semantic_api",
		},
		Telemetry: TelemetryConfig{
			Enabled:    false,
			Endpoint:   "localhost:4318",
			SampleRate: 1.0,
		},
		Daemon: DaemonConfig{
			MetricsAddr: "",
			LogLevel:    "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config.
func LoadFromEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr(&cfg.RabbitMQ.Host, "RABBITMQ_HOST")
	setInt(&cfg.RabbitMQ.Port, "RABBITMQ_PORT")
	setStr(&cfg.RabbitMQ.User, "RABBITMQ_USER")
	setStr(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setStr(&cfg.RabbitMQ.TaskQueue, "RABBITMQ_TASK_QUEUE")
	setStr(&cfg.RabbitMQ.ResultQueue, "RABBITMQ_RESULT_QUEUE")
	setInt(&cfg.RabbitMQ.ConsumerWorkers, "RABBITMQ_CONSUMER_WORKERS")

	setStr(&cfg.Milvus.Host, "MILVUS_HOST")
	setInt(&cfg.Milvus.Port, "MILVUS_PORT")
	setStr(&cfg.Milvus.User, "MILVUS_USER")
	setStr(&cfg.Milvus.Password, "MILVUS_PASSWORD")
	setStr(&cfg.Milvus.DBName, "MILVUS_DB")
	setStr(&cfg.Milvus.DefaultCollection, "MILVUS_DEFAULT_COLLECTION")
	setStr(&cfg.Milvus.DefaultPartition, "MILVUS_DEFAULT_PARTITION")

	setStr(&cfg.OSS.Endpoint, "MINIO_ENDPOINT")
	setStr(&cfg.OSS.AccessKey, "MINIO_ACCESS")
	setStr(&cfg.OSS.SecretKey, "MINIO_SECRET")
	setStr(&cfg.OSS.PDFBucket, "PDF_BUCKET")
	setStr(&cfg.OSS.PreprocessedBucket, "PREPROCESSED_FILES_BUCKET")

	setStr(&cfg.Models.ParserEndpoint, "PARSER_ENDPOINT")
	setStr(&cfg.Models.EmbedderEndpoint, "EMBEDDER_ENDPOINT")
	setInt(&cfg.Models.EmbeddingDim, "EMBEDDING_DIM")
	setStr(&cfg.Models.ChunkAPIBase, "CHUNK_API_BASE")
	setStr(&cfg.Models.ChunkAPIKey, "CHUNK_API_KEY")
	setStr(&cfg.Models.ChunkModel, "CHUNK_MODEL")
	setStr(&cfg.Models.ChunkStrategy, "CHUNK_STRATEGY")

	setStr(&cfg.Daemon.MetricsAddr, "PREDOC_METRICS_ADDR")
	setStr(&cfg.Daemon.LogLevel, "PREDOC_LOG_LEVEL")
}
