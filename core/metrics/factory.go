package metrics

import "github.com/kilianp07/taxico2/core/factory"

var reporterRegistry = factory.NewRegistry[Reporter]()

// RegisterReporter adds a reporter factory identified by name.
func RegisterReporter(name string, f factory.Factory[Reporter]) error {
	return reporterRegistry.Register(name, f)
}

// ReporterTypes lists the registered reporter names.
func ReporterTypes() []string { return reporterRegistry.Names() }

// NewReporter creates a Reporter from the provided configuration.
func NewReporter(cfgs []factory.ModuleConfig) (Reporter, error) {
	if len(cfgs) == 0 {
		return NopReporter{}, nil
	}
	if len(cfgs) == 1 {
		return reporterRegistry.Create(cfgs[0])
	}
	reps := make([]Reporter, len(cfgs))
	for i, c := range cfgs {
		r, err := reporterRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		reps[i] = r
	}
	return NewMultiReporter(reps...), nil
}
