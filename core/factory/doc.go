// Package factory provides the generic registry behind config-driven modules
// such as trip sources and reporters. A module is a type string plus a map of
// raw settings; the registered factory decodes the settings into its own
// struct and returns the implementation.
//
//	reg := factory.NewRegistry[source.TripSource]()
//	reg.Register("csv", func(conf map[string]any) (source.TripSource, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewCSVSource(c.Path)
//	})
//	src, err := reg.Create(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": "trips.csv"}})
package factory
