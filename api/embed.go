// Package api embeds the MCP tool contract for the ZenTao gateway.
package api

import _ "embed"

// ToolsContract contains the raw YAML tool contract served over HTTP and
// parsed into the tool registry at startup.
//
//go:embed tools.yaml
var ToolsContract []byte
