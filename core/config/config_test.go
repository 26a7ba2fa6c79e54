package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Access:   AccessConfig{AllowedUsers: []int64{42}},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, StoreFile, cfg.Store.Driver)
	assert.Equal(t, "data/trips.json", cfg.Store.Path)
	assert.Equal(t, DefaultRejectMessage, cfg.Access.RejectMessage)
	assert.Equal(t, "09:00", cfg.Reminder.At)
	h, m := cfg.Reminder.Clock()
	assert.Equal(t, 9, h)
	assert.Equal(t, 0, m)
	assert.NotNil(t, cfg.Reminder.Location())
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]func(*Config){
		"missing token":       func(c *Config) { c.Telegram.Token = "" },
		"unknown run mode":    func(c *Config) { c.Telegram.RunMode = "push" },
		"webhook without url": func(c *Config) { c.Telegram.RunMode = RunModeWebhook },
		"bad rate exclusion":  func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"poll"} },
		"no allowed users":    func(c *Config) { c.Access.AllowedUsers = nil },
		"unknown store":       func(c *Config) { c.Store.Driver = "redis" },
		"postgres no host":    func(c *Config) { c.Store.Driver = StorePostgres },
		"bad reminder time":   func(c *Config) { c.Reminder.At = "25:00" },
		"bad reminder tz":     func(c *Config) { c.Reminder.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			require.Error(t, Normalize(cfg))
		})
	}
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Driver = "Postgres"
	cfg.Database = DatabaseConfig{Host: "db", Name: "trips"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 5, cfg.Database.MaxConnections)
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
telegram:
  token: from-file
access:
  allowed_users: [1, 2]
store:
  driver: sqlite
reminder:
  at: "7:30"
  timezone: UTC
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("ALLOWED_USERS", "5,6,7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, []int64{5, 6, 7}, cfg.Access.AllowedUsers)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "data/trips.db", cfg.Store.Path)
	assert.Equal(t, "07:30", cfg.Reminder.At)
	assert.Equal(t, "UTC", cfg.Reminder.Location().String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadStorageSkipsBotSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
store:
  driver: file
  path: /tmp/trips.json
reminder:
  timezone: UTC
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("BOT_TOKEN", "")

	_, err := Load(path)
	require.Error(t, err)

	cfg, err := LoadStorage(path)
	require.NoError(t, err)
	assert.Equal(t, StoreFile, cfg.Store.Driver)
	assert.Equal(t, "/tmp/trips.json", cfg.Store.Path)
	hour, minute := cfg.Reminder.Clock()
	assert.Equal(t, 9, hour)
	assert.Equal(t, 0, minute)
}
