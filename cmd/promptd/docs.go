package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           promptd API
// @version         1.0
// @description     HTTP API for local and cloud LLM text generation.
//
// @contact.name   promptd maintainers
// @contact.url    https://github.com/your-org/promptd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
