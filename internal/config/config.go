package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Simulation drives the mock transport.
type Simulation struct {
	RateLimitThreshold  int           `envconfig:"WA_RATE_LIMIT_THRESHOLD" default:"3"`
	DeliveryProbability float64       `envconfig:"WA_DELIVERY_PROBABILITY" default:"0.9"`
	ReadProbability     float64       `envconfig:"WA_READ_PROBABILITY" default:"0.7"`
	DeliveryDelayMin    time.Duration `envconfig:"WA_DELIVERY_DELAY_MIN" default:"1s"`
	DeliveryDelayMax    time.Duration `envconfig:"WA_DELIVERY_DELAY_MAX" default:"3s"`
	ReadDelayMin        time.Duration `envconfig:"WA_READ_DELAY_MIN" default:"2s"`
	ReadDelayMax        time.Duration `envconfig:"WA_READ_DELAY_MAX" default:"7s"`
	// 0 seeds from the clock.
	Seed                  int64 `envconfig:"WA_SEED" default:"0"`
	StrictPhoneValidation bool  `envconfig:"WA_STRICT_PHONE_VALIDATION" default:"false"`
}

// Suites holds the waits and tolerances the scenario tests use.
type Suites struct {
	DeliveryWait      time.Duration `envconfig:"WA_DELIVERY_WAIT" default:"3500ms"`
	ReadWait          time.Duration `envconfig:"WA_READ_WAIT" default:"8s"`
	ScheduleOffset    time.Duration `envconfig:"WA_SCHEDULE_OFFSET" default:"2s"`
	ScheduleTolerance time.Duration `envconfig:"WA_SCHEDULE_TOLERANCE" default:"500ms"`
	BackoffBase       time.Duration `envconfig:"WA_BACKOFF_BASE" default:"1s"`
	MaxRetries        int           `envconfig:"WA_MAX_RETRIES" default:"3"`
	TestTimeout       time.Duration `envconfig:"WA_TEST_TIMEOUT" default:"45s"`
	SendRPS           float64       `envconfig:"WA_SEND_RPS" default:"20"`
	SendBurst         int           `envconfig:"WA_SEND_BURST" default:"5"`
	TokenTTL          time.Duration `envconfig:"WA_TOKEN_TTL" default:"15m"`
	TokenSecret       string        `envconfig:"WA_TOKEN_SECRET" default:"wa-test-secret"`
}

type Runner struct {
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	ReportDir string `envconfig:"REPORT_DIR" default:"."`
	// all | functional | security | critical
	Preset        string `envconfig:"PRESET" default:"all"`
	RunFunctional bool   `envconfig:"RUN_FUNCTIONAL" default:"true"`
	RunWebhook    bool   `envconfig:"RUN_WEBHOOK" default:"true"`
	RunSecurity   bool   `envconfig:"RUN_SECURITY" default:"true"`
	RunAnalytics  bool   `envconfig:"RUN_ANALYTICS" default:"true"`
	Verbose       bool   `envconfig:"VERBOSE" default:"false"`

	Simulation Simulation `ignored:"true"`
	Suites     Suites     `ignored:"true"`
}

type Server struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	// Empty disables signature checks on inbound webhooks.
	AppSecret   string `envconfig:"WA_APP_SECRET" default:""`
	VerifyToken string `envconfig:"WA_VERIFY_TOKEN" default:"wa-verify-token"`

	Simulation Simulation `ignored:"true"`
	Forward    Forward    `ignored:"true"`
}

// Forward configures posting simulated status webhooks to an external endpoint.
type Forward struct {
	URL        string        `envconfig:"WA_WEBHOOK_FORWARD_URL" default:""`
	MaxRetries int           `envconfig:"WA_WEBHOOK_MAX_RETRIES" default:"4"`
	RetryBase  time.Duration `envconfig:"WA_WEBHOOK_RETRY_BASE" default:"250ms"`
	RetryMax   time.Duration `envconfig:"WA_WEBHOOK_RETRY_MAX" default:"10s"`
	Timeout    time.Duration `envconfig:"WA_WEBHOOK_TIMEOUT" default:"5s"`
}

func DefaultSimulation() Simulation {
	return Simulation{
		RateLimitThreshold:  3,
		DeliveryProbability: 0.9,
		ReadProbability:     0.7,
		DeliveryDelayMin:    time.Second,
		DeliveryDelayMax:    3 * time.Second,
		ReadDelayMin:        2 * time.Second,
		ReadDelayMax:        7 * time.Second,
	}
}

func DefaultSuites() Suites {
	return Suites{
		DeliveryWait:      3500 * time.Millisecond,
		ReadWait:          8 * time.Second,
		ScheduleOffset:    2 * time.Second,
		ScheduleTolerance: 500 * time.Millisecond,
		BackoffBase:       time.Second,
		MaxRetries:        3,
		TestTimeout:       45 * time.Second,
		SendRPS:           20,
		SendBurst:         5,
		TokenTTL:          15 * time.Minute,
		TokenSecret:       "wa-test-secret",
	}
}

func LoadSimulation() Simulation {
	var cfg Simulation
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadSuites() Suites {
	var cfg Suites
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadRunner() Runner {
	var cfg Runner
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	cfg.Simulation = LoadSimulation()
	cfg.Suites = LoadSuites()
	return cfg
}

func LoadServer() Server {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	cfg.Simulation = LoadSimulation()
	if err := envconfig.Process("", &cfg.Forward); err != nil {
		panic(err)
	}
	return cfg
}
