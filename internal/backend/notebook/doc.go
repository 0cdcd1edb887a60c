// Package notebook provides a JSON REST client for a notebook-style analysis
// service (a NotebookLM gateway or compatible server).
//
// # Endpoints
//
//	POST   /notebooks                        create, {"title"} -> {"id","title"}
//	DELETE /notebooks/{id}                   delete (404 is treated as success)
//	POST   /notebooks/{id}/sources/file      multipart "file" -> {"id","status"}
//	POST   /notebooks/{id}/sources/url       {"url"} -> {"id","status"}
//	GET    /notebooks/{id}/sources/{sid}     readiness polling
//	POST   /notebooks/{id}/chat              {"message"} -> {"answer"}
//	GET    /notebooks, /notebooks/{id}/sources, /notebooks/{id}/notes
//	GET    /health
//
// Requests carry a bearer token when an API key is configured.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, 3 attempts by default), honouring
// Retry-After. Context cancellation aborts retries immediately. Multipart
// bodies are rebuilt for every attempt.
//
// # Readiness
//
// AttachFile with WaitForReady polls the source until it reports ready or
// failed. Running out of budget is not an error: the returned source carries
// ReadinessTimedOut and the caller decides whether to continue.
package notebook
