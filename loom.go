// Package loom provides a thin façade over the engine packages for the
// common composition path: build agents whose backend endpoints and
// credentials come from a config.Config, then compose them with routers and
// workflows. Applications with bespoke wiring can use the agent, router and
// workflow packages directly; this package adds no behavior of its own.
package loom

import (
	"github.com/loomlab/loom/agent"
	"github.com/loomlab/loom/config"
	"github.com/loomlab/loom/model"
)

// NewAgent constructs an agent, resolving any missing credential and base URL
// for its model's provider from cfg. A nil cfg uses config.Default(), i.e.
// the conventional environment variables. Explicit options always win over
// config values.
func NewAgent(cfg *config.Config, name string, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	fns := make([]func(o *agent.Options), 0, len(optFns)+1)
	fns = append(fns, optFns...)
	fns = append(fns, func(o *agent.Options) {
		provider, _ := model.SplitIdentifier(o.Model)
		if o.Credential == "" && model.KindFor(o.Model) == model.KindCloud {
			o.Credential = cfg.CredentialFor(provider)
		}
		if o.BaseURL == "" {
			o.BaseURL = cfg.BaseURLFor(provider)
		}
	})

	return agent.New(name, fns...)
}
