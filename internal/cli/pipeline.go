package cli

import (
	"path/filepath"

	"github.com/r9s-ai/ngx2edge/internal/fsutil"
	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

type pipelineResult struct {
	failedTargets int
	written       []string
}

// runPipeline loads an input, builds the model and validates it for every
// target, reporting as it goes. With write set it also generates and writes
// the output files, but only when no target failed validation.
func runPipeline(rep *reporter, file, treePath string, targets []string, outDir string, write bool) (pipelineResult, error) {
	var result pipelineResult

	tree, err := loadTree(file, treePath)
	if err != nil {
		return result, err
	}
	model, buildWarns := nginxconf.Build(tree)
	rep.reportBuild(buildWarns)

	gens := make([]edgegen.Generator, 0, len(targets))
	for _, name := range targets {
		g, err := edgegen.New(name, model)
		if err != nil {
			return result, err
		}
		gens = append(gens, g)
	}

	for _, g := range gens {
		res := g.Validate()
		rep.reportTarget(g.Target(), res)
		if !res.Valid {
			result.failedTargets++
		}
	}
	if !write || result.failedTargets > 0 {
		return result, nil
	}

	for _, g := range gens {
		code, err := g.Generate()
		if err != nil {
			return result, err
		}
		path := filepath.Join(outDir, g.Target()+g.FileExtension())
		if err := fsutil.WriteAtomic(path, []byte(code)); err != nil {
			return result, err
		}
		rep.reportWritten(path)
		result.written = append(result.written, path)
	}
	return result, nil
}
