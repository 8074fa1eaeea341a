/*
Copyright 2025 Fedsub Authors.

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
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT            = "5401"
	DEFAULT_MONITORING_PORT = "5403"

	DEFAULT_DISPATCH_CONCURRENCY = 5
	DEFAULT_DISPATCH_TIMEOUT_SEC = 30
	DEFAULT_DISPATCH_ATTEMPTS    = 3

	DEFAULT_SETTLEMENT_CURRENCY = "USD"

	DEFAULT_WEBHOOK_QUEUE = "fedsub:webhook"
	DEFAULT_INDEX_QUEUE   = "fedsub:index"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"FEDSUB_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"FEDSUB_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"FEDSUB_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"FEDSUB_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"FEDSUB_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"FEDSUB_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FEDSUB_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"FEDSUB_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"FEDSUB_REDIS_SKIP_TLS_VERIFY"`
}

type TypeSenseConfig struct {
	Dns string `json:"dns" envconfig:"FEDSUB_TYPESENSE_DNS"`
}

type QueueConfig struct {
	WebhookQueue   string `json:"webhook_queue" envconfig:"FEDSUB_QUEUE_WEBHOOK"`
	IndexQueue     string `json:"index_queue" envconfig:"FEDSUB_QUEUE_INDEX"`
	MonitoringPort string `json:"monitoring_port" envconfig:"FEDSUB_QUEUE_MONITORING_PORT"`
}

// DispatchConfig bounds the fan-out of one dispatch pass: how many directory
// deliveries run at once, how long each remote call may take, and how many
// delivery attempts a transient failure earns before the leg is marked
// failed.
type DispatchConfig struct {
	MaxConcurrency    int `json:"max_concurrency" envconfig:"FEDSUB_DISPATCH_MAX_CONCURRENCY"`
	RequestTimeoutSec int `json:"request_timeout_sec" envconfig:"FEDSUB_DISPATCH_REQUEST_TIMEOUT_SEC"`
	MaxAttempts       int `json:"max_attempts" envconfig:"FEDSUB_DISPATCH_MAX_ATTEMPTS"`
}

// SettlementConfig names the single currency every cost breakdown settles in.
type SettlementConfig struct {
	Currency string `json:"currency" envconfig:"FEDSUB_SETTLEMENT_CURRENCY"`
}

type RatesHttpService struct {
	Url     string `json:"url"`
	Timeout int    `json:"timeout"`
	Headers struct {
		Authorization string `json:"Authorization"`
	} `json:"headers"`
}

// ExchangeRatesConfig drives fee conversion into the settlement currency.
// Static rates are keyed "FROM:TO" and take effect when the HTTP service is
// disabled or unset.
type ExchangeRatesConfig struct {
	EnableHttpService bool               `json:"enable_http_service"`
	HttpService       RatesHttpService   `json:"http_service"`
	Static            map[string]float64 `json:"static"`
}

// PaymentConfig points at the external processor consulted by the dispatch
// payment gate.
type PaymentConfig struct {
	VerificationUrl string `json:"verification_url" envconfig:"FEDSUB_PAYMENT_VERIFICATION_URL"`
	Timeout         int    `json:"timeout"`
	Headers         struct {
		Authorization string `json:"Authorization"`
	} `json:"headers"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"FEDSUB_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"FEDSUB_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"FEDSUB_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName        string              `json:"project_name" envconfig:"FEDSUB_PROJECT_NAME"`
	EnableTelemetry    bool                `json:"enable_telemetry" envconfig:"FEDSUB_ENABLE_TELEMETRY"`
	BackupDir          string              `json:"backup_dir" envconfig:"FEDSUB_BACKUP_DIR"`
	AwsAccessKeyId     string              `json:"aws_access_key_id"`
	S3Endpoint         string              `json:"s3_endpoint"`
	AwsSecretAccessKey string              `json:"aws_secret_access_key"`
	S3BucketName       string              `json:"s3_bucket_name"`
	S3Region           string              `json:"s3_region"`
	Server             ServerConfig        `json:"server"`
	DataSource         DataSourceConfig    `json:"data_source"`
	Redis              RedisConfig         `json:"redis"`
	TypeSense          TypeSenseConfig     `json:"typesense"`
	TypeSenseKey       string              `json:"type_sense_key"`
	Queue              QueueConfig         `json:"queue"`
	Dispatch           DispatchConfig      `json:"dispatch"`
	Settlement         SettlementConfig    `json:"settlement"`
	ExchangeRates      ExchangeRatesConfig `json:"exchange_rates"`
	Payment            PaymentConfig       `json:"payment"`
	Notification       Notification        `json:"notification"`
	RateLimit          RateLimitConfig     `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("fedsub", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called fedsub.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Fedsub Server"
	}

	if cnf.TypeSense.Dns == "" {
		cnf.TypeSense.Dns = "http://typesense:8108"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Settlement.Currency = strings.ToUpper(strings.TrimSpace(cnf.Settlement.Currency))

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.IndexQueue == "" {
		cnf.Queue.IndexQueue = DEFAULT_INDEX_QUEUE
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}

	if cnf.Dispatch.MaxConcurrency <= 0 {
		cnf.Dispatch.MaxConcurrency = DEFAULT_DISPATCH_CONCURRENCY
	}
	if cnf.Dispatch.RequestTimeoutSec <= 0 {
		cnf.Dispatch.RequestTimeoutSec = DEFAULT_DISPATCH_TIMEOUT_SEC
	}
	if cnf.Dispatch.MaxAttempts <= 0 {
		cnf.Dispatch.MaxAttempts = DEFAULT_DISPATCH_ATTEMPTS
	}

	if cnf.Settlement.Currency == "" {
		cnf.Settlement.Currency = DEFAULT_SETTLEMENT_CURRENCY
		log.Printf("Warning: Settlement currency not specified. Setting default currency: %s", DEFAULT_SETTLEMENT_CURRENCY)
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
		log.Printf("Warning: Rate limit cleanup interval not specified. Setting default value: %d seconds", defaultCleanup)
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
