// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Every service method is tenant scoped. Services never branch on the
// source platform; per-source behaviour lives behind driven.Adapter.
package services
