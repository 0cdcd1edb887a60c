// Package mcpserver exposes the analysis pipeline as Model Context Protocol
// tools.
//
// Each tool call maps to exactly one pipeline run in its own workspace. The
// answer, or a readable error message, is returned as the text content of a
// normal tool result so assistants can relay it verbatim. The server speaks
// stdio for local assistants and streamable HTTP for remote ones.
package mcpserver
