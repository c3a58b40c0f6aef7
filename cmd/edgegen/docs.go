package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate docs/.
//
// @title           edgegen API
// @version         1.0
// @description     HTTP API for local token-level LLM generation.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
