// 包 migrate：边界图落库所需的表结构
package migrate

import (
	"database/sql"
	"tzchains/internal/logger"
)

// 背景：首次写库前自动建表；语句同时兼容 PostgreSQL 与 SQLite
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tz_topologies (
            name TEXT PRIMARY KEY,
            chains INT NOT NULL,
            zones INT NOT NULL,
            built_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS tz_chains (
            topology TEXT NOT NULL,
            chain_id INT NOT NULL,
            points TEXT NOT NULL,
            PRIMARY KEY (topology, chain_id)
        )`,
		`CREATE TABLE IF NOT EXISTS tz_zones (
            topology TEXT NOT NULL,
            zone TEXT NOT NULL,
            seq INT NOT NULL,
            rings INT NOT NULL,
            PRIMARY KEY (topology, zone)
        )`,
		`CREATE TABLE IF NOT EXISTS tz_zone_refs (
            topology TEXT NOT NULL,
            zone TEXT NOT NULL,
            ring_idx INT NOT NULL,
            seq INT NOT NULL,
            chain_id INT NOT NULL,
            reversed BOOLEAN NOT NULL,
            PRIMARY KEY (topology, zone, ring_idx, seq)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_zone_refs_chain ON tz_zone_refs(topology, chain_id)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
