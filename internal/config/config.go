package config

import "time"

//go:generate go run github.com/ecordell/optgen -output zz_generated.configuration.go . Configuration Polling Timeouts

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	MockModeDev  = "dev"
	MockModeProd = "prod"
)

type Configuration struct {
	Backend   Backend   `debugmap:"visible"`
	Auth      Auth      `debugmap:"sensitive"`
	Polling   Polling   `debugmap:"visible"`
	Transport Transport `debugmap:"visible"`
	Ledger    Ledger    `debugmap:"visible"`
	Report    Report    `debugmap:"sensitive"`
	VSphere   VSphere   `debugmap:"sensitive"`
	AWS       AWS       `debugmap:"visible"`
	Log       Log       `debugmap:"visible"`
	Mock      Mock      `debugmap:"visible"`
	Timeouts  Timeouts  `debugmap:"visible"`
	// ConfigFile and EnvFile are read before the other sections are resolved.
	ConfigFile string `debugmap:"visible"`
	EnvFile    string `debugmap:"visible"`
}

type Backend struct {
	URL string `default:"http://127.0.0.1:8080" debugmap:"visible"`
	// VersionConstraint is checked against GET /version, e.g. ">= 2.3".
	VersionConstraint string `debugmap:"visible"`
	UserID            string `debugmap:"visible"`
}

type Auth struct {
	TokenURL     string   `debugmap:"visible"`
	ClientID     string   `debugmap:"visible"`
	ClientSecret string   `debugmap:"sensitive"`
	StaticToken  string   `debugmap:"sensitive"`
	Scopes       []string `debugmap:"visible"`
}

type Polling struct {
	Interval      time.Duration `default:"100ms" debugmap:"visible"`
	Timeout       time.Duration `default:"1h" debugmap:"visible"`
	RootInterval  time.Duration `default:"1m" debugmap:"visible"`
	RootTimeout   time.Duration `default:"1h" debugmap:"visible"`
	ChildTimeout  time.Duration `default:"1h" debugmap:"visible"`
	Lookback      time.Duration `default:"24h" debugmap:"visible"`
	Workers       int           `default:"8" debugmap:"visible"`
	LogTaskResult bool          `default:"false" debugmap:"visible"`
}

type Transport struct {
	MaxTries       uint          `default:"10" debugmap:"visible"`
	RetryInterval  time.Duration `default:"5s" debugmap:"visible"`
	RetryElapsed   time.Duration `default:"10m" debugmap:"visible"`
	RequestTimeout time.Duration `default:"60s" debugmap:"visible"`
	QPS            float64       `default:"10" debugmap:"visible"`
	Burst          int           `default:"20" debugmap:"visible"`
}

type Ledger struct {
	Path     string `default:"harness.duckdb" debugmap:"visible"`
	RunName  string `default:"adhoc" debugmap:"visible"`
	BuildURL string `debugmap:"visible"`
}

type Report struct {
	Slowest  int      `default:"5" debugmap:"visible"`
	TestRail TestRail `debugmap:"visible"`
}

type TestRail struct {
	Host      string `debugmap:"visible"`
	Username  string `debugmap:"visible"`
	Password  string `debugmap:"sensitive"`
	ProjectID int    `default:"1" debugmap:"visible"`
	SuiteID   int    `default:"1" debugmap:"visible"`
	Milestone string `debugmap:"visible"`
	BetaAPI   bool   `default:"true" debugmap:"visible"`
}

type VSphere struct {
	URL        string `debugmap:"visible"`
	Username   string `debugmap:"visible"`
	Password   string `debugmap:"sensitive"`
	Insecure   bool   `default:"false" debugmap:"visible"`
	Datacenter string `debugmap:"visible"`
	Pattern    string `default:"psgw-*" debugmap:"visible"`
	Workers    int    `default:"4" debugmap:"visible"`
}

type AWS struct {
	Region       string        `default:"us-west-2" debugmap:"visible"`
	Profile      string        `debugmap:"visible"`
	Endpoint     string        `debugmap:"visible"`
	CreatorTag   string        `default:"creator-env" debugmap:"visible"`
	RequesterTag string        `default:"requester" debugmap:"visible"`
	Env          string        `debugmap:"visible"`
	Requester    string        `debugmap:"visible"`
	MinAge       time.Duration `default:"6h" debugmap:"visible"`
}

type Log struct {
	Level      string `default:"info" debugmap:"visible"`
	Format     string `default:"console" debugmap:"visible"`
	File       string `debugmap:"visible"`
	MaxSizeMB  int    `default:"100" debugmap:"visible"`
	MaxBackups int    `default:"3" debugmap:"visible"`
	MaxAgeDays int    `default:"7" debugmap:"visible"`
}

type Mock struct {
	Addr        string        `default:"127.0.0.1:8080" debugmap:"visible"`
	Mode        string        `default:"dev" debugmap:"visible"`
	Version     string        `default:"2.4.0" debugmap:"visible"`
	Workers     int           `default:"16" debugmap:"visible"`
	ErrorRate   float64       `default:"0" debugmap:"visible"`
	FailPattern string        `default:"fail" debugmap:"visible"`
	StepLatency time.Duration `default:"50ms" debugmap:"visible"`
	Steps       int           `default:"4" debugmap:"visible"`
	Seed        bool          `default:"true" debugmap:"visible"`
}

// Timeouts names the per-operation waits used by scenarios.
type Timeouts struct {
	StandardTask      time.Duration `default:"30m" debugmap:"visible"`
	FirstPSGWCreation time.Duration `default:"2h" debugmap:"visible"`
	CreatePSGW        time.Duration `default:"1h" debugmap:"visible"`
	CreateBackup      time.Duration `default:"1h" debugmap:"visible"`
	CreateCloudBackup time.Duration `default:"2h" debugmap:"visible"`
	DeleteBackup      time.Duration `default:"20m" debugmap:"visible"`
	Restore           time.Duration `default:"2h" debugmap:"visible"`
	UnregisterPurge   time.Duration `default:"30m" debugmap:"visible"`
	HealthStatus      time.Duration `default:"10m" debugmap:"visible"`
	ResizePSGW        time.Duration `default:"1h" debugmap:"visible"`
	PSGWShutdown      time.Duration `default:"15m" debugmap:"visible"`
}
