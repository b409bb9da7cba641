// 包 config：集中读取构建与查询服务的配置（.env → YAML 文件 → 环境变量，命令行参数最后覆盖）
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Source struct {
	Path    string `yaml:"path"`
	Format  string `yaml:"format"`
	IDField string `yaml:"id_field"`
}

type Output struct {
	Path   string `yaml:"path"`
	Layout string `yaml:"layout"` // json | packed
	Points string `yaml:"points"` // packed 布局的点文件，默认 <path>.bin
}

type Store struct {
	Driver string `yaml:"driver"` // postgres | sqlite3，为空表示不写库
	DSN    string `yaml:"dsn"`
	Name   string `yaml:"name"` // 拓扑名，同名覆盖
}

type Redis struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Key        string `yaml:"key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type MinIO struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Secure    bool   `yaml:"secure"`
}

type MMDB struct {
	Path string `yaml:"path"`
	Mode string `yaml:"mode"` // geoip2 | raw
}

type Server struct {
	Addr             string `yaml:"addr"`
	APIBase          string `yaml:"api_base"`
	RateLimitEnabled bool   `yaml:"rate_limit_enabled"`
	RateLimitQPS     int    `yaml:"rate_limit_qps"`
	CacheTTLSeconds  int    `yaml:"cache_ttl_seconds"`
	TLSCert          string `yaml:"tls_cert"`
	TLSKey           string `yaml:"tls_key"`
	TLSSelfSigned    bool   `yaml:"tls_self_signed"`
	AllowIPs         string `yaml:"allow_ips"`
	AllowCIDRs       string `yaml:"allow_cidrs"`
	RealIPHeader     string `yaml:"real_ip_header"`
}

// 文档注释：全部配置
// 约束：零值即“未启用”（例如 Store.Driver 为空不写库、Redis.Addr 为空不发布）
type Config struct {
	Source          Source `yaml:"source"`
	Output          Output `yaml:"output"`
	Verify          bool   `yaml:"verify"`
	MetricsTextfile string `yaml:"metrics_textfile"`
	Store           Store  `yaml:"store"`
	Redis           Redis  `yaml:"redis"`
	MinIO           MinIO  `yaml:"minio"`
	MMDB            MMDB   `yaml:"mmdb"`
	Server          Server `yaml:"server"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Source: Source{IDField: "TZID"},
		Output: Output{Layout: "json"},
		Verify: true,
		Store:  Store{Name: "default"},
		Redis:  Redis{Key: "tzchains:topology", TTLSeconds: 3600},
		MMDB:   MMDB{Mode: "geoip2"},
		Server: Server{Addr: ":8080", APIBase: "/api", RateLimitQPS: 200, CacheTTLSeconds: 3600},
	}
}

// 文档注释：加载配置
// 背景：先尝试加载 .env（缺失忽略），再读 YAML（path 为空时取 TZCHAINS_CONFIG，仍为空则跳过），最后用环境变量覆盖。
// 异常：YAML 文件存在但无法解析时返回错误；显式指定的文件不存在也返回错误。
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")
	cfg := Default()
	if path == "" {
		path = os.Getenv("TZCHAINS_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	str(&c.Source.Path, "SOURCE_PATH")
	str(&c.Source.Format, "SOURCE_FORMAT")
	str(&c.Source.IDField, "SOURCE_ID_FIELD")
	str(&c.Output.Path, "OUTPUT_PATH")
	str(&c.Output.Layout, "OUTPUT_LAYOUT")
	str(&c.Output.Points, "OUTPUT_POINTS")
	boolean(&c.Verify, "VERIFY")
	str(&c.MetricsTextfile, "METRICS_TEXTFILE")

	str(&c.Store.Driver, "STORE_DRIVER")
	str(&c.Store.DSN, "STORE_DSN")
	str(&c.Store.Name, "STORE_NAME")
	if c.Store.Driver == "" && os.Getenv("SQLITE_PATH") != "" {
		c.Store.Driver = "sqlite3"
		c.Store.DSN = os.Getenv("SQLITE_PATH")
	}

	if h := os.Getenv("REDIS_HOST"); h != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		c.Redis.Addr = h + ":" + port
	}
	str(&c.Redis.Password, "REDIS_PASS")
	// 解析失败时保持原值
	integer(&c.Redis.DB, "REDIS_DB")
	str(&c.Redis.Key, "REDIS_KEY")
	integer(&c.Redis.TTLSeconds, "REDIS_TTL_S")

	str(&c.MinIO.Endpoint, "MINIO_ENDPOINT")
	str(&c.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	str(&c.MinIO.SecretKey, "MINIO_SECRET_KEY")
	str(&c.MinIO.Bucket, "MINIO_BUCKET")
	str(&c.MinIO.Prefix, "MINIO_PREFIX")
	boolean(&c.MinIO.Secure, "MINIO_SECURE")

	str(&c.MMDB.Path, "MMDB_PATH")
	str(&c.MMDB.Mode, "MMDB_MODE")

	str(&c.Server.Addr, "ADDR")
	str(&c.Server.APIBase, "API_BASE")
	boolean(&c.Server.RateLimitEnabled, "RATE_LIMIT_ENABLED")
	integer(&c.Server.RateLimitQPS, "RATE_LIMIT_QPS")
	integer(&c.Server.CacheTTLSeconds, "LOOKUP_CACHE_TTL_S")
	str(&c.Server.TLSCert, "TLS_CERT")
	str(&c.Server.TLSKey, "TLS_KEY")
	boolean(&c.Server.TLSSelfSigned, "TLS_SELF_SIGNED")
	str(&c.Server.AllowIPs, "ADMIN_ALLOW_IPS")
	str(&c.Server.AllowCIDRs, "ADMIN_ALLOW_CIDRS")
	str(&c.Server.RealIPHeader, "REAL_IP_HEADER")
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func boolean(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func integer(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

// PointsPath 返回 packed 布局的点文件路径
func (o Output) PointsPath() string {
	if o.Points != "" {
		return o.Points
	}
	return o.Path + ".bin"
}
