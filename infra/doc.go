// Package infra contains the adapters behind the core interfaces: trip
// sources, the pivot store, reporters, MQTT publishing, logging and error
// monitoring. These packages depend only on the interfaces defined in the
// core packages.
package infra
