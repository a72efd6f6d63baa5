package life

import "torus-life/internal/core"

func init() {
	core.Register("scalar", func(cfg map[string]string) (core.Engine, error) {
		return NewScalar(), nil
	})
	core.Register("spectral", func(cfg map[string]string) (core.Engine, error) {
		return NewSpectral(), nil
	})
	parallel := func(cfg map[string]string) (core.Engine, error) {
		return NewParallel(FromMap(cfg)), nil
	}
	core.Register("parallel", parallel)
	core.Register("opencl", parallel)
}
