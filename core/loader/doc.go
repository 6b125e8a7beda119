// Package loader provides the plugin-like feature loading system.
//
// Each feature (constituents, poller) implements the Feature interface and
// registers its own routes. The start command registers them with a Manager
// and loads them onto the Fiber application.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Manager
//
// The Manager struct holds the registry of available features. It handles:
//   - Registration of features via Register()
//   - Loading of enabled features via LoadAll(), in registration order
package loader
