package main

// General API documentation for swaggo. Generate with
// `swag init -g cmd/acmanager/docs.go` and build with -tags swagger.
//
// @title           acmanager API
// @version         1.0
// @description     Control plane for running several dedicated racing servers side by side: working configuration, presets and server instances.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
