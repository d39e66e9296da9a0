package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	EnvPrefix = "TRIVIA"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	BindAddress string
	Port        int

	DBDriver   string
	DBDSN      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL      string
	AMQPExchange string

	QuestionsFile    string
	QuestionsPerRoom int

	CORSOrigins []string
	PublicURL   string

	LogLevel string
	Debug    bool
}

// Flags registers every setting with its default.
func Flags(flags *pflag.FlagSet) {
	flags.StringP("bind", "b", "0.0.0.0", "address to bind to (env: TRIVIA_BIND)")
	flags.IntP("port", "p", 8080, "port to listen on (env: TRIVIA_PORT)")

	flags.String("db-driver", DriverPostgres, "database driver, postgres or sqlite (env: TRIVIA_DB_DRIVER)")
	flags.String("db-dsn", "", "database DSN, overrides the db-* connection flags (env: TRIVIA_DB_DSN)")
	flags.String("db-host", "localhost", "postgres host (env: TRIVIA_DB_HOST)")
	flags.String("db-port", "5432", "postgres port (env: TRIVIA_DB_PORT)")
	flags.String("db-user", "trivia", "postgres user (env: TRIVIA_DB_USER)")
	flags.String("db-password", "trivia", "postgres password (env: TRIVIA_DB_PASSWORD)")
	flags.String("db-name", "trivia", "postgres database or sqlite file name (env: TRIVIA_DB_NAME)")

	flags.String("redis-addr", "", "redis address for the leaderboard, empty to disable (env: TRIVIA_REDIS_ADDR)")
	flags.String("redis-password", "", "redis password (env: TRIVIA_REDIS_PASSWORD)")
	flags.Int("redis-db", 0, "redis database (env: TRIVIA_REDIS_DB)")

	flags.String("amqp-url", "", "AMQP broker URL for result events, empty to disable (env: TRIVIA_AMQP_URL)")
	flags.String("amqp-exchange", "trivia.events", "topic exchange for result events (env: TRIVIA_AMQP_EXCHANGE)")

	flags.String("questions-file", "", "JSON question file, empty for the built-in set (env: TRIVIA_QUESTIONS_FILE)")
	flags.Int("questions-per-room", 10, "questions drawn for each room (env: TRIVIA_QUESTIONS_PER_ROOM)")

	flags.String("cors-origins", "*", "comma separated allowed origins (env: TRIVIA_CORS_ORIGINS)")
	flags.String("public-url", "", "public base URL used in join links (env: TRIVIA_PUBLIC_URL)")

	flags.String("log-level", "info", "debug, info, warn or error (env: TRIVIA_LOG_LEVEL)")
	flags.BoolP("debug", "d", false, "debug logging and gin debug mode (env: TRIVIA_DEBUG)")
}

// LoadEnvFile loads KEY=value pairs from path into the environment. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BindAddress:      v.GetString("bind"),
		Port:             v.GetInt("port"),
		DBDriver:         strings.ToLower(v.GetString("db-driver")),
		DBDSN:            v.GetString("db-dsn"),
		DBHost:           v.GetString("db-host"),
		DBPort:           v.GetString("db-port"),
		DBUser:           v.GetString("db-user"),
		DBPassword:       v.GetString("db-password"),
		DBName:           v.GetString("db-name"),
		RedisAddr:        v.GetString("redis-addr"),
		RedisPassword:    v.GetString("redis-password"),
		RedisDB:          v.GetInt("redis-db"),
		AMQPURL:          v.GetString("amqp-url"),
		AMQPExchange:     v.GetString("amqp-exchange"),
		QuestionsFile:    v.GetString("questions-file"),
		QuestionsPerRoom: v.GetInt("questions-per-room"),
		CORSOrigins:      splitList(v.GetString("cors-origins")),
		PublicURL:        v.GetString("public-url"),
		LogLevel:         v.GetString("log-level"),
		Debug:            v.GetBool("debug"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.QuestionsPerRoom < 1 {
		return fmt.Errorf("questions-per-room must be at least 1: %d", c.QuestionsPerRoom)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// Level is the configured log level; Debug forces slog.LevelDebug.
func (c *Config) Level() (slog.Level, error) {
	if c.Debug {
		return slog.LevelDebug, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// DSN returns db-dsn when set, otherwise builds one for the driver.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}

	if c.DBDriver == DriverSQLite {
		return "file:" + c.DBName + ".db"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverSQLite:
		dialector = gormlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.Debug {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// InitRedis connects to Redis. It returns a nil client when no address is
// configured.
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// InitAMQP connects to the broker and declares the result exchange. It
// returns nils when no URL is configured.
func InitAMQP(cfg *Config) (*amqp.Connection, *amqp.Channel, error) {
	if cfg.AMQPURL == "" {
		return nil, nil, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.AMQPExchange, // name
		"topic",          // kind
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.AMQPExchange, err)
	}

	return conn, ch, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
