package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del agente.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Sim     SimConfig     `yaml:"sim"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// AgentConfig ajusta la estrategia de pujas.
type AgentConfig struct {
	LateStartTick      int       `yaml:"late_start_tick"` // entrar después de este tick invalida el histórico
	PanicTicks         int       `yaml:"panic_ticks"`
	FlightRefreshTicks int       `yaml:"flight_refresh_ticks"`
	FunProfitFactor    float64   `yaml:"fun_profit_factor"`
	FunSellPrice       float64   `yaml:"fun_sell_price"`
	HotelMinRaise      float64   `yaml:"hotel_min_raise"`
	HotelMarkup        []float64 `yaml:"hotel_markup"` // un multiplicador por minuto 0..8
}

// SimConfig controla el mercado simulado.
type SimConfig struct {
	Seed        uint64  `yaml:"seed"`
	TickMillis  int     `yaml:"tick_ms"` // ritmo real, 0 = lo más rápido posible
	SubmitRate  float64 `yaml:"submit_rate"`
	SubmitBurst int     `yaml:"submit_burst"`
	Opponents   int     `yaml:"opponents"`
	FunFillProb float64 `yaml:"fun_fill_prob"`
	Endowment   int     `yaml:"endowment"`
}

// StorageConfig controla dónde se persiste el histórico de precios.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta del archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if n := len(cfg.Agent.HotelMarkup); n != 9 {
		return nil, fmt.Errorf("config.Load: hotel_markup needs 9 values, got %d", n)
	}
	return &cfg, nil
}

// TickInterval devuelve el tiempo real entre ticks simulados.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Sim.TickMillis) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TACBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("TACBOT_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TACBOT_SEED %q: %w", v, err)
		}
		cfg.Sim.Seed = seed
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Agent.LateStartTick <= 0 {
		cfg.Agent.LateStartTick = 5 // 55 segundos de partida
	}
	if cfg.Agent.PanicTicks <= 0 {
		cfg.Agent.PanicTicks = 2
	}
	if cfg.Agent.FlightRefreshTicks <= 0 {
		cfg.Agent.FlightRefreshTicks = 2
	}
	if cfg.Agent.FunProfitFactor <= 0 {
		cfg.Agent.FunProfitFactor = 0.2
	}
	if cfg.Agent.FunSellPrice <= 0 {
		cfg.Agent.FunSellPrice = 100
	}
	if cfg.Agent.HotelMinRaise <= 0 {
		cfg.Agent.HotelMinRaise = 75
	}
	if len(cfg.Agent.HotelMarkup) == 0 {
		cfg.Agent.HotelMarkup = []float64{1.5, 1.1, 1.1, 1.1, 1.2, 1.3, 1.4, 1.5, 0}
	}
	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = uint64(time.Now().UnixNano())
	}
	if cfg.Sim.SubmitRate <= 0 {
		cfg.Sim.SubmitRate = 4
	}
	if cfg.Sim.SubmitBurst <= 0 {
		cfg.Sim.SubmitBurst = 40
	}
	if cfg.Sim.Opponents <= 0 {
		cfg.Sim.Opponents = 7
	}
	if cfg.Sim.FunFillProb <= 0 {
		cfg.Sim.FunFillProb = 0.5
	}
	if cfg.Sim.Endowment < 0 {
		cfg.Sim.Endowment = 0
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "tacbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
