// Package config loads the application configuration: YAML file over
// defaults. Poll intervals deliberately default to the engine contract
// (1s messages, 3s presence).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

// Duration parses "1s"-style YAML strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errs.WrapMsg(err, "bad duration", "value", s)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

type Mongo struct {
	Uri         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	AuthSource  string `yaml:"auth_source"`
	MaxPoolSize int    `yaml:"max_pool_size"`
	MaxRetry    int    `yaml:"max_retry"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// TTL of the cached online marker.
	PresenceTTL Duration `yaml:"presence_ttl"`
}

type Nats struct {
	URL string `yaml:"url"`
}

type Poll struct {
	Messages Duration `yaml:"messages"`
	Presence Duration `yaml:"presence"`
}

type Media struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

type App struct {
	HTTPAddr  string `yaml:"http_addr"`
	NodeID    int64  `yaml:"node_id"`
	JWTSecret string `yaml:"jwt_secret"`
	Mongo     Mongo  `yaml:"mongo"`
	Redis     Redis  `yaml:"redis"`
	Nats      Nats   `yaml:"nats"`
	Poll      Poll   `yaml:"poll"`
	Media     Media  `yaml:"media"`
}

func Default() *App {
	return &App{
		HTTPAddr:  ":8080",
		NodeID:    1,
		JWTSecret: "change-me",
		Mongo: Mongo{
			Uri:         "mongodb://localhost:27017",
			Database:    "yasatasker",
			MaxPoolSize: 20,
			MaxRetry:    3,
		},
		Redis: Redis{
			Addr:        "127.0.0.1:6379",
			PresenceTTL: Duration(30 * time.Second),
		},
		Nats: Nats{URL: "nats://127.0.0.1:4222"},
		Poll: Poll{
			Messages: Duration(time.Second),
			Presence: Duration(3 * time.Second),
		},
		Media: Media{Dir: "./uploads", BaseURL: "/media"},
	}
}

// Load overlays the YAML file at path onto the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*App, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapMsg(err, "read config", "path", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.WrapMsg(err, "parse config", "path", path)
	}
	return cfg, nil
}
