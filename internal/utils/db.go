// 包 utils：数据库、Redis 与对象存储的连接工具
package utils

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// BuildPostgresDSNFromEnv：由 PG_* 环境变量拼装连接串
func BuildPostgresDSNFromEnv() string {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := envOr("PG_DB", "tzchains")
	ssl := envOr("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// 文档注释：按驱动打开数据库
// 背景：postgres 的 dsn 为空时由 PG_* 环境变量拼装；sqlite3 只允许单连接写入
// 异常：未知驱动返回错误
func OpenDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres:
		if dsn == "" {
			dsn = BuildPostgresDSNFromEnv()
		}
		db, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 10))
		db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 5))
		return db, nil
	case DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite3: empty path")
		}
		db, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			return n
		}
	}
	return def
}
