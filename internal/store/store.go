// 包 store：边界图的关系库读写（PostgreSQL 经 lib/pq，SQLite 经 go-sqlite3）
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"tzchains/internal/geom"
	"tzchains/internal/logger"
	"tzchains/internal/migrate"
	"tzchains/internal/topology"
	"tzchains/internal/utils"

	gojson "github.com/goccy/go-json"
)

// ErrNotFound 表示库中没有该名称的拓扑
var ErrNotFound = errors.New("topology not found")

// Store：数据库访问入口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open：按驱动打开数据库并确保表结构存在
func Open(driver, dsn string) (*Store, error) {
	db, err := utils.OpenDB(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate.EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Summary：一条已保存拓扑的概要
type Summary struct {
	Name    string
	Chains  int
	Zones   int
	BuiltAt time.Time
}

// 文档注释：保存边界图
// 背景：同名拓扑整体替换；先删旧行，再用预编译语句逐行写入，整个过程在一个事务内完成。
// 异常：任一语句失败即回滚并返回错误，不做重试
func (s *Store) SaveTopology(ctx context.Context, name string, t *topology.Topology) error {
	l := logger.L()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, tbl := range []string{"tz_zone_refs", "tz_zones", "tz_chains", "tz_topologies"} {
		col := "topology"
		if tbl == "tz_topologies" {
			col = "name"
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl+" WHERE "+col+"=$1", name); err != nil {
			return fmt.Errorf("clear %s: %w", tbl, err)
		}
	}

	stmtChain, err := tx.PrepareContext(ctx, "INSERT INTO tz_chains(topology,chain_id,points) VALUES($1,$2,$3)")
	if err != nil {
		return err
	}
	defer stmtChain.Close()
	for _, c := range t.Chains {
		pts := make([][2]float64, len(c.Points))
		for i, p := range c.Points {
			pts[i] = [2]float64{p.Lon, p.Lat}
		}
		b, err := gojson.Marshal(pts)
		if err != nil {
			return err
		}
		if _, err := stmtChain.ExecContext(ctx, name, c.ID, string(b)); err != nil {
			return fmt.Errorf("insert chain %d: %w", c.ID, err)
		}
		if (c.ID+1)%5000 == 0 {
			l.Info("store_progress", "chains", c.ID+1)
		}
	}

	stmtZone, err := tx.PrepareContext(ctx, "INSERT INTO tz_zones(topology,zone,seq,rings) VALUES($1,$2,$3,$4)")
	if err != nil {
		return err
	}
	defer stmtZone.Close()
	stmtRef, err := tx.PrepareContext(ctx, "INSERT INTO tz_zone_refs(topology,zone,ring_idx,seq,chain_id,reversed) VALUES($1,$2,$3,$4,$5,$6)")
	if err != nil {
		return err
	}
	defer stmtRef.Close()
	refs := 0
	for seq, zone := range t.Order {
		rings := t.Zones[zone]
		if _, err := stmtZone.ExecContext(ctx, name, zone, seq, len(rings)); err != nil {
			return fmt.Errorf("insert zone %q: %w", zone, err)
		}
		for ri, rr := range rings {
			for k, r := range rr {
				if _, err := stmtRef.ExecContext(ctx, name, zone, ri, k, r.ID, r.Reversed); err != nil {
					return fmt.Errorf("insert ref %q/%d/%d: %w", zone, ri, k, err)
				}
				refs++
			}
		}
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO tz_topologies(name,chains,zones,built_at) VALUES($1,$2,$3,$4)",
		name, len(t.Chains), len(t.Order), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	l.Info("store_saved", "name", name, "chains", len(t.Chains), "zones", len(t.Order), "refs", refs)
	return nil
}

// 文档注释：读取边界图
// 约束：区域顺序按保存时的 seq 还原；环数按 tz_zones.rings 还原（无引用的环不会丢失）
func (s *Store) LoadTopology(ctx context.Context, name string) (*topology.Topology, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT chains FROM tz_topologies WHERE name=$1", name).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, err
	}
	t := topology.New()
	rows, err := s.db.QueryContext(ctx, "SELECT chain_id, points FROM tz_chains WHERE topology=$1 ORDER BY chain_id", name)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id int
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return nil, err
		}
		if id != len(t.Chains) {
			rows.Close()
			return nil, fmt.Errorf("chain ids not contiguous at %d", id)
		}
		var pts [][2]float64
		if err := gojson.Unmarshal([]byte(raw), &pts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("chain %d points: %w", id, err)
		}
		cp := make([]geom.Point, len(pts))
		for i, p := range pts {
			cp[i] = geom.Point{Lon: p[0], Lat: p[1]}
		}
		t.AddChain(cp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t.Chains) != n {
		return nil, fmt.Errorf("topology %q: expected %d chains, loaded %d", name, n, len(t.Chains))
	}

	zrows, err := s.db.QueryContext(ctx, "SELECT zone, rings FROM tz_zones WHERE topology=$1 ORDER BY seq", name)
	if err != nil {
		return nil, err
	}
	for zrows.Next() {
		var zone string
		var rings int
		if err := zrows.Scan(&zone, &rings); err != nil {
			zrows.Close()
			return nil, err
		}
		t.Zones[zone] = make([][]topology.ChainRef, rings)
		t.Order = append(t.Order, zone)
	}
	zrows.Close()
	if err := zrows.Err(); err != nil {
		return nil, err
	}

	rrows, err := s.db.QueryContext(ctx, "SELECT zone, ring_idx, chain_id, reversed FROM tz_zone_refs WHERE topology=$1 ORDER BY zone, ring_idx, seq", name)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var zone string
		var ri, id int
		var rev bool
		if err := rrows.Scan(&zone, &ri, &id, &rev); err != nil {
			return nil, err
		}
		rings, ok := t.Zones[zone]
		if !ok || ri < 0 || ri >= len(rings) {
			return nil, fmt.Errorf("ref for unknown ring %q/%d", zone, ri)
		}
		rings[ri] = append(rings[ri], topology.ChainRef{ID: id, Reversed: rev})
	}
	if err := rrows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("store_loaded", "name", name, "chains", len(t.Chains), "zones", len(t.Order))
	return t, nil
}

// List 返回已保存拓扑的概要，按名称排序
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, chains, zones, built_at FROM tz_topologies ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var sm Summary
		var at string
		if err := rows.Scan(&sm.Name, &sm.Chains, &sm.Zones, &at); err != nil {
			return nil, err
		}
		sm.BuiltAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, sm)
	}
	return out, rows.Err()
}
