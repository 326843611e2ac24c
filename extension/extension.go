// Package extension provides the plugin architecture for tagd. Extensions
// group related functionality (commands, MCP tools) and register at init
// time, so the root command never names a feature directly.
package extension

import (
	"github.com/spf13/cobra"
)

// Extension defines the contract for tagd extensions.
type Extension interface {
	// Name returns a unique identifier for this extension.
	Name() string

	// Commands returns CLI commands to register with the root command.
	Commands() []*cobra.Command

	// MCPTools returns MCP tools to register with the server.
	MCPTools() []MCPTool
}

// Initializable extensions can perform setup once the store is open.
type Initializable interface {
	Extension
	Init(ctx Context) error
}

// Storeless is an optional interface for extensions with commands that
// don't require a store. Commands returned by NoStoreCommands() will
// not trigger store initialisation in PersistentPreRunE.
//
// Use cases:
// 1. Bootstrap commands (like init) that run before the store exists
// 2. Commands that manage their own service lifecycle (serve, http)
// 3. Utility commands such as config and version
type Storeless interface {
	NoStoreCommands() []string
}
