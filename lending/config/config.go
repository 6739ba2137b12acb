package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Astemirdum/book-lending/pkg/auth"
	"github.com/Astemirdum/book-lending/pkg/circuit_breaker"
	"github.com/Astemirdum/book-lending/pkg/kafka"
	"github.com/Astemirdum/book-lending/pkg/locker"
	"github.com/Astemirdum/book-lending/pkg/logger"
	"github.com/Astemirdum/book-lending/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LENDING_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LENDING_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
}

type Reservation struct {
	// Ceiling for any loan, whatever the copy allows.
	MaxDays int `yaml:"maxDays" envconfig:"RESERVATION_MAX_DAYS" default:"30"`
	// Loan limit given to copies registered without one.
	CopyDefaultMaxDays int `yaml:"copyDefaultMaxDays" envconfig:"COPY_DEFAULT_MAX_DAYS" default:"14"`
}

type Sweeper struct {
	Interval time.Duration `yaml:"interval" envconfig:"SWEEP_INTERVAL" default:"1m"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"SWEEP_TIMEOUT" default:"30s"`
}

type Catalog struct {
	OpenLibraryURL string        `yaml:"openLibraryUrl" envconfig:"OPENLIBRARY_URL" default:"https://openlibrary.org"`
	GoogleBooksURL string        `yaml:"googleBooksUrl" envconfig:"GOOGLEBOOKS_URL" default:"https://www.googleapis.com"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"CATALOG_TIMEOUT" default:"5s"`
	Breaker        circuit_breaker.Config
}

type Config struct {
	Server      HTTPServer `yaml:"server"`
	Database    postgres.DB
	Auth        auth.Config
	Reservation Reservation
	Sweeper     Sweeper
	Catalog     Catalog
	Redis       locker.Config
	Kafka       kafka.Config
	Log         logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Options are applied on top of it.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		for _, op := range ops {
			op(&config)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
