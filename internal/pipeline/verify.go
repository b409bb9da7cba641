package pipeline

import (
	"context"
	"tzchains/internal/extract"
	"tzchains/internal/logger"
	"tzchains/internal/source"
	"tzchains/internal/topology"
)

// 文档注释：校验已写出的边界图与数据源一致
// 背景：读取数据源得到期望的环，再回放文档中的每个环逐点比较，并检查链的覆盖完备性。
// 异常：读取、提取或校验失败返回 *StageError
func VerifyOutput(ctx context.Context, src source.GeometrySource, t *topology.Topology) error {
	var recs []source.Record
	err := stage(ctx, StageRead, func() (err error) {
		recs, err = source.ReadAll(src)
		return err
	})
	if err != nil {
		return err
	}
	zones, err := extract.Zones(recs)
	if err != nil {
		return &StageError{Stage: StageExtract, cause: err}
	}
	if err := stage(ctx, StageVerify, func() error { return t.Verify(zones) }); err != nil {
		return err
	}
	st := t.Stats()
	logger.L().Info("verify_ok", "zones", st.Zones, "rings", st.Rings, "chains", st.Chains)
	return nil
}
