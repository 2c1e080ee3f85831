// Package cmd provides the command-line interface for pagelume.
//
// # Available Commands
//
//   - serve: Start the preview server with live reload
//   - build: Compile every component and report failures
//   - render: Render one component to standard output
//   - list: List discovered components with their metadata
//   - create: Create a component from a built-in template
//   - init: Lay out a new project with configuration and global assets
//   - version: Show build information
//
// # Command Examples
//
//	// Start the preview server on another port
//	pagelume serve --port 4000
//
//	// Build everything and emit a machine-readable report
//	pagelume build --output json
//
//	// Start a project with an example component
//	pagelume init my-site --example
//
//	// Render a component with data
//	pagelume render card/basic --data '{"title":"Hello"}'
//
// # Configuration
//
// Commands read .pagelume.yml from the working directory, or the file named
// by --config or PAGELUME_CONFIG_FILE. Every key can be overridden with a
// PAGELUME_<SECTION>_<OPTION> environment variable.
package cmd
