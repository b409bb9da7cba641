// 包 pipeline：串联读取、提取、规范化、成链、校验与发布
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"tzchains/internal/chain"
	"tzchains/internal/extract"
	"tzchains/internal/geom"
	"tzchains/internal/logger"
	"tzchains/internal/metrics"
	"tzchains/internal/segment"
	"tzchains/internal/source"
	"tzchains/internal/topology"
)

// 各阶段名称，同时作为指标的 stage 标签
const (
	StageRead         = "read"
	StageExtract      = "extract"
	StageCanonicalize = "canonicalize"
	StageBuild        = "build"
	StageVerify       = "verify"
	StagePublish      = "publish"
)

// StageError 标记失败发生在哪个阶段
type StageError struct {
	Stage string
	cause error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.cause.Error() }

func (e *StageError) Unwrap() error { return e.cause }

// Result：一次构建的产物
type Result struct {
	Zones    []geom.Zone
	Segments int
	Topology *topology.Topology
	Stats    topology.Stats
}

// 文档注释：执行一次构建
// 背景：核心阶段单线程、确定性执行；每个阶段计时并写入指标，失败时按阶段计数。
// 参数：verify 为 true 时在成链后做回放与完备性校验。
// 异常：任一阶段失败立即返回 *StageError，不做重试
func Build(ctx context.Context, src source.GeometrySource, verify bool) (*Result, error) {
	l := logger.L()
	res := &Result{}

	var recs []source.Record
	err := stage(ctx, StageRead, func() (err error) {
		recs, err = source.ReadAll(src)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.Info("pipeline_read_done", "records", len(recs))

	err = stage(ctx, StageExtract, func() (err error) {
		res.Zones, err = extract.Zones(recs)
		return err
	})
	if err != nil {
		return nil, err
	}

	var table *segment.Table
	err = stage(ctx, StageCanonicalize, func() (err error) {
		table, err = segment.Canonicalize(res.Zones)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Segments = table.Len()
	l.Info("pipeline_canonicalize_done", "zones", len(res.Zones), "edges", table.Edges(), "segments", table.Len())

	err = stage(ctx, StageBuild, func() (err error) {
		res.Topology, err = chain.Build(res.Zones, table)
		return err
	})
	if err != nil {
		return nil, err
	}

	if verify {
		err = stage(ctx, StageVerify, func() error { return res.Topology.Verify(res.Zones) })
		if err != nil {
			return nil, err
		}
	}

	res.Stats = res.Topology.Stats()
	metrics.BuildsTotal.Inc()
	metrics.ZonesGauge.Set(float64(res.Stats.Zones))
	metrics.RingsGauge.Set(float64(res.Stats.Rings))
	metrics.SegmentsGauge.Set(float64(res.Segments))
	metrics.ChainsGauge.Set(float64(res.Stats.Chains))
	metrics.SharedChainsGauge.Set(float64(res.Stats.SharedChains))
	l.Info("pipeline_build_done",
		"zones", res.Stats.Zones,
		"rings", res.Stats.Rings,
		"segments", res.Segments,
		"chains", res.Stats.Chains,
		"shared_chains", res.Stats.SharedChains,
		"points", res.Stats.Points,
		"refs", res.Stats.Refs,
	)
	return res, nil
}

// stage 运行单个阶段：检查取消、计时、失败计数
func stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: name, cause: err}
	}
	begin := time.Now()
	err := fn()
	metrics.StageDurationMs.WithLabelValues(name).Observe(float64(time.Since(begin).Milliseconds()))
	if err != nil {
		metrics.BuildFailuresTotal.WithLabelValues(name).Inc()
		logger.L().Error("pipeline_stage_error", "stage", name, "err", err)
		return &StageError{Stage: name, cause: err}
	}
	logger.L().Debug("pipeline_stage_done", "stage", name, "ms", time.Since(begin).Milliseconds())
	return nil
}

// FailedStage 返回错误所属阶段，非阶段错误返回空串
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// OpenSource 打开数据源；失败归入 read 阶段
func OpenSource(path, format, idField string) (source.GeometrySource, error) {
	src, err := source.Open(path, format, idField)
	if err != nil {
		metrics.BuildFailuresTotal.WithLabelValues(StageRead).Inc()
		return nil, &StageError{Stage: StageRead, cause: fmt.Errorf("open %s: %w", path, err)}
	}
	return src, nil
}
