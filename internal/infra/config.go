package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/health"
	"github.com/xela07ax/floorwatch/internal/zone"
)

// Config - корневая структура конфигурации сервиса.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Zones     ZonesConfig     `mapstructure:"zones"`
	Health    HealthConfig    `mapstructure:"health"`
	Scorer    ScorerConfig    `mapstructure:"scorer"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

// ServerConfig описывает настройки HTTP-сервера.
// WriteTimeout у стримов не ограничен: сессия живёт весь проход записей.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // пусто - метрики не публикуются
}

// GRPCConfig - listener для grpc.health.v1.
type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig описывает подключение к PostgreSQL. Пустой URL - работаем без БД.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis. Пустой Addr - временные допуски только в памяти.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// StreamConfig - откуда брать записи и за сколько их проигрывать.
type StreamConfig struct {
	LocationSource string        `mapstructure:"location_source"`
	SensorSource   string        `mapstructure:"sensor_source"`
	Duration       time.Duration `mapstructure:"duration"`
}

type ZonesConfig struct {
	zone.Thresholds `mapstructure:",squash"`
	// Polygon включает отсечение точек вне контура здания
	Polygon      bool   `mapstructure:"polygon"`
	OutsideOwner string `mapstructure:"outside_owner"`
}

type HealthConfig struct {
	health.Thresholds `mapstructure:",squash"`
	HighCriticality   []string `mapstructure:"high_criticality"`
	MediumCriticality []string `mapstructure:"medium_criticality"`
}

// ScorerConfig выбирает модель RUL: linear (файл коэффициентов), http, grpc или none.
type ScorerConfig struct {
	Kind        string            `mapstructure:"kind"`
	ModelPath   string            `mapstructure:"model_path"`
	URL         string            `mapstructure:"url"`
	Addr        string            `mapstructure:"addr"`
	Method      string            `mapstructure:"method"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Reliability ReliabilityConfig `mapstructure:"reliability"`
}

// ReliabilityConfig - лимитер, ретраи и Circuit Breaker вокруг удалённой модели.
type ReliabilityConfig struct {
	Name           string        `mapstructure:"name"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	Burst          int           `mapstructure:"burst"`
	Attempts       uint          `mapstructure:"attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	MaxFailures    uint32        `mapstructure:"max_failures"`
	OpenTimeout    time.Duration `mapstructure:"open_timeout"`
}

func DefaultReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{
		Name:           "rul-model",
		RatePerSecond:  100,
		Burst:          20,
		Attempts:       3,
		AttemptTimeout: 10 * time.Second,
		MaxFailures:    5,
		OpenTimeout:    30 * time.Second,
	}
}

const (
	DirectorySourceConfig   = "config"
	DirectorySourcePostgres = "postgres"
)

type DirectoryConfig struct {
	Source    string           `mapstructure:"source"` // config | postgres
	Employees []EmployeeConfig `mapstructure:"employees"`
	Machines  []MachineConfig  `mapstructure:"machines"`
	Permanent []string         `mapstructure:"permanent"`
	Temporary []string         `mapstructure:"temporary"`
}

type EmployeeConfig struct {
	MacAddress string `mapstructure:"mac_address"`
	Name       string `mapstructure:"name"`
	Company    string `mapstructure:"company"`
	Role       string `mapstructure:"role"`
	Floor      string `mapstructure:"floor"`
}

type MachineConfig struct {
	MachineID  string  `mapstructure:"machine_id"`
	MacAddress string  `mapstructure:"mac_address"`
	Name       string  `mapstructure:"name"`
	Company    string  `mapstructure:"company"`
	Floor      string  `mapstructure:"floor"`
	Lat        float64 `mapstructure:"lat"`
	Lng        float64 `mapstructure:"lng"`
}

// Entities переводит справочник из конфига в доменные сущности.
func (d DirectoryConfig) Entities() (employees, machines []domain.Entity) {
	for _, e := range d.Employees {
		employees = append(employees, domain.Entity{
			ID:    e.MacAddress,
			Kind:  domain.KindEmployee,
			Name:  e.Name,
			Zone:  e.Company,
			Role:  e.Role,
			Floor: e.Floor,
		})
	}
	for _, m := range d.Machines {
		loc := domain.NewLocation(m.Lat, m.Lng)
		machines = append(machines, domain.Entity{
			ID:        m.MacAddress,
			Kind:      domain.KindMachine,
			Name:      m.Name,
			Zone:      m.Company,
			Floor:     m.Floor,
			MachineID: m.MachineID,
			Location:  &loc,
		})
	}
	return employees, machines
}

// AdminConfig - админские мутации и их аудит.
type AdminConfig struct {
	RatePerSecond      float64       `mapstructure:"rate_per_second"`
	Burst              int           `mapstructure:"burst"`
	AuditBufferSize    int           `mapstructure:"audit_buffer_size"`
	AuditFlushInterval time.Duration `mapstructure:"audit_flush_interval"`
	AuditBatchSize     int           `mapstructure:"audit_batch_size"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 2. ENV перекрывает файл: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет - работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("grpc.addr", ":50052")
	// Пустые значения нужны, чтобы AutomaticEnv видел ключи без файла
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("stream.location_source", "data/location_records.json")
	v.SetDefault("stream.sensor_source", "data/filtered_sample_rul.json")
	v.SetDefault("stream.duration", 180*time.Second)

	v.SetDefault("zones.lng_threshold", zone.DefaultLngThreshold)
	v.SetDefault("zones.lat_threshold", zone.DefaultLatThreshold)
	v.SetDefault("zones.west_owner", zone.DefaultWestOwner)
	v.SetDefault("zones.north_owner", zone.DefaultNorthOwner)
	v.SetDefault("zones.fallback_owner", zone.DefaultFallbackOwner)
	v.SetDefault("zones.outside_owner", "Outside")

	v.SetDefault("health.breakdown_hours", health.DefaultBreakdownHours)
	v.SetDefault("health.warning_hours", health.DefaultWarningHours)

	v.SetDefault("scorer.kind", "linear")
	v.SetDefault("scorer.model_path", "configs/rul_model.json")
	v.SetDefault("scorer.timeout", 15*time.Second)
	v.SetDefault("scorer.reliability.name", "rul-model")
	v.SetDefault("scorer.reliability.rate_per_second", 100)
	v.SetDefault("scorer.reliability.burst", 20)
	v.SetDefault("scorer.reliability.attempts", 3)
	v.SetDefault("scorer.reliability.attempt_timeout", 10*time.Second)
	v.SetDefault("scorer.reliability.max_failures", 5)
	v.SetDefault("scorer.reliability.open_timeout", 30*time.Second)

	v.SetDefault("directory.source", DirectorySourceConfig)

	v.SetDefault("admin.rate_per_second", 10)
	v.SetDefault("admin.burst", 20)
	v.SetDefault("admin.audit_buffer_size", 1000)
	v.SetDefault("admin.audit_flush_interval", 1*time.Second)
	v.SetDefault("admin.audit_batch_size", 100)
}

// Validate отсекает конфигурации, на которых классификаторы вели бы себя бессмысленно.
func (c *Config) Validate() error {
	if err := c.Health.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Stream.Duration < 0 {
		return fmt.Errorf("stream.duration must not be negative, got %v", c.Stream.Duration)
	}
	switch c.Directory.Source {
	case DirectorySourceConfig:
	case DirectorySourcePostgres:
		if c.Database.URL == "" {
			return errors.New("directory.source=postgres requires database.url")
		}
	default:
		return fmt.Errorf("unknown directory.source %q", c.Directory.Source)
	}
	switch c.Scorer.Kind {
	case "none", "linear", "http", "grpc":
	default:
		return fmt.Errorf("unknown scorer.kind %q", c.Scorer.Kind)
	}
	return nil
}
