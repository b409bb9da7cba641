package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"tzchains/internal/cache"
	"tzchains/internal/config"
	"tzchains/internal/logger"
	"tzchains/internal/metrics"
	"tzchains/internal/objstore"
	"tzchains/internal/serialize"
	"tzchains/internal/store"
	"tzchains/internal/topology"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Sinks：构建成功后的发布目标，零值字段表示不发布到该目标
type Sinks struct {
	Output    config.Output
	Store     *store.Store
	StoreName string
	Redis     *redis.Client
	RedisKey  string
	Objects   *objstore.Store
}

// 文档注释：并发发布到所有已配置的目标
// 背景：此时边界图只读；JSON 文档只序列化一次，供文件、Redis、对象存储共用。
// 异常：任一目标失败即取消其余目标并返回第一个错误；各目标的成功/失败分别计数
func Publish(ctx context.Context, t *topology.Topology, sinks Sinks) error {
	return stage(ctx, StagePublish, func() error {
		doc, err := serialize.Marshal(t)
		if err != nil {
			return err
		}
		st := t.Stats()
		g, gctx := errgroup.WithContext(ctx)
		if sinks.Output.Path != "" {
			g.Go(func() error { return sink("file", func() error { return writeOutput(sinks.Output, t, doc) }) })
		}
		if sinks.Store != nil {
			g.Go(func() error {
				return sink("sql", func() error { return sinks.Store.SaveTopology(gctx, sinks.StoreName, t) })
			})
		}
		if sinks.Redis != nil {
			g.Go(func() error {
				return sink("redis", func() error { return cache.Publish(gctx, sinks.Redis, sinks.RedisKey, doc, st) })
			})
		}
		if sinks.Objects != nil {
			g.Go(func() error {
				return sink("minio", func() error { return putObject(gctx, sinks.Objects, sinks.Output, doc) })
			})
		}
		return g.Wait()
	})
}

func sink(name string, fn func() error) error {
	if err := fn(); err != nil {
		metrics.PublishTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: %w", name, err)
	}
	metrics.PublishTotal.WithLabelValues(name, "ok").Inc()
	return nil
}

// writeOutput 按布局写文件；json 布局下 doc 为已序列化的文档
func writeOutput(out config.Output, t *topology.Topology, doc []byte) error {
	switch out.Layout {
	case "", "json":
		w, err := serialize.Create(out.Path)
		if err != nil {
			return err
		}
		if _, err := w.Write(doc); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	case "packed":
		idx, err := serialize.Create(out.Path)
		if err != nil {
			return err
		}
		pts, err := os.Create(out.PointsPath())
		if err != nil {
			idx.Close()
			return err
		}
		err = serialize.EncodePacked(pts, idx, t)
		if cerr := pts.Close(); err == nil {
			err = cerr
		}
		if cerr := idx.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output layout %q", out.Layout)
	}
	logger.L().Info("output_written", "path", out.Path, "layout", out.Layout)
	return nil
}

// putObject 上传 JSON 文档；对象名取输出文件名，未配置输出时为 topology.json，压缩方式按对象名后缀
func putObject(ctx context.Context, s *objstore.Store, out config.Output, doc []byte) error {
	name := "topology.json"
	if out.Path != "" && (out.Layout == "" || out.Layout == "json") {
		name = filepath.Base(out.Path)
	}
	var buf bytes.Buffer
	w, err := serialize.NewWriter(&buf, serialize.CompressionFor(name))
	if err != nil {
		return err
	}
	if _, err := w.Write(doc); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}
	return s.Put(ctx, name, buf.Bytes(), objstore.ContentType(name))
}

// 文档注释：读取已写出的边界图
// 约束：布局与路径取自输出配置；json 布局按后缀自动解压
func LoadOutput(out config.Output) (*topology.Topology, error) {
	switch out.Layout {
	case "", "json":
		r, err := serialize.Open(out.Path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return serialize.Decode(r)
	case "packed":
		idx, err := serialize.Open(out.Path)
		if err != nil {
			return nil, err
		}
		defer idx.Close()
		pts, err := os.Open(out.PointsPath())
		if err != nil {
			return nil, err
		}
		defer pts.Close()
		return serialize.DecodePacked(pts, idx)
	default:
		return nil, fmt.Errorf("unknown output layout %q", out.Layout)
	}
}
