package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// Configure receives the module's section of the "modules:" map before
// Provision runs.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after
// instantiation: applying defaults, opening stores, publishing services
// such as a memory persister on the AppContext.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration.
// Called after Provision. Validate must not have side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run in the background, such as a
// channel reading its transport. Start is called once every module is
// provisioned and validated. Services published during Provision, like the
// dispatcher, are resolved here.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that hold resources. Modules are
// stopped in reverse load order.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader is implemented by modules that accept a new configuration
// section while running.
type Reloader interface {
	Reload(ctx *AppContext) error
}
