package desk

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config configures the dashboard client, loadable from DESK_CLIENT_
// environment variables, flags or desk.yaml.
type Config struct {
	ServerURL       string `default:"http://localhost:8080" usage:"API server URL" flag:"server"`
	Password        string `usage:"Shared password (admin or user)" flag:"password"`
	PrefsPath       string `default:"~/.config/product-desk/prefs.toml" usage:"Preferences file" flag:"prefs"`
	LogFile         string `default:"product-desk.log" usage:"Log file; the terminal is taken by the UI" flag:"log-file"`
	BulkConcurrency int    `default:"8" usage:"Concurrent requests during reset all; 0 is unlimited" flag:"bulk-concurrency"`
}

// LoadConfig loads the client configuration.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DESK_CLIENT",
		Files:     []string{"desk.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.Password == "" {
		return nil, errors.New("password is required: set DESK_CLIENT_PASSWORD or --password")
	}
	return &cfg, nil
}
