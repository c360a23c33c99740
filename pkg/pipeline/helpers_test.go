package pipeline

import "github.com/matzehuels/trialviz/pkg/render/reconcile"

func configWithDepth(d int) reconcile.Config {
	c := reconcile.DefaultConfig()
	c.CollapseDepth = d
	return c
}
