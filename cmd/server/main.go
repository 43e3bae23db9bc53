// Package main is the entry point for the Todo MCP protected resource server.
package main

import (
	"os"

	"github.com/jamesprial/todo-mcp-auth/cmd/server/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
