// Package llm implements the analysis backend on top of an OpenAI-compatible
// chat completion API (go-openai).
//
// Workspaces live in process memory and disappear with it. Text files are
// read directly, HTML files and web pages are converted to Markdown, and the
// collected sources are sent as the system prompt on every query. Audio,
// video, and PDF files are rejected with services.ErrValidation; use the
// notebook backend for those.
package llm
