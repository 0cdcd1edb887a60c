package workflow

import (
	"notebrief/internal/ingest"
	"notebrief/internal/query"
	"notebrief/internal/report"
)

// Workspace title prefixes per entry point.
const (
	TitleAnalysis   = "Analysis: "
	TitleMCPFile    = "MCP File Analysis: "
	TitleMCPRemote  = "MCP Remote File: "
	TitleMCPURL     = "MCP URL Analysis: "
	TitleAPIUpload  = "API Uploaded File: "
	TitleAPIRemote  = "API Remote File: "
	TitleAPIURL     = "API URL Analysis: "
	DefaultURLTitle = "URL Analysis"
)

func videoPrompt(string) string { return query.VideoPrompt() }

func webPrompt(string) string { return query.WebPrompt() }

func documentPrompt(string) string { return query.DocumentPrompt() }

// BatchURLPlan analyses a manifest entry: a video or page URL answered with
// the video prompt and written in the URL layout.
func BatchURLPlan(budgets ingest.Budgets) Plan {
	return Plan{
		TitlePrefix:   TitleAnalysis,
		DefaultPrompt: videoPrompt,
		Policy:        budgets.ForURL(),
		Persist:       true,
		Layout:        report.LayoutURL,
	}
}

// LocalFilePlan analyses a file from the command line. Documents get the
// document prompt and the shorter document wait.
func LocalFilePlan(name string, budgets ingest.Budgets) Plan {
	plan := Plan{
		TitlePrefix:   TitleAnalysis,
		DefaultPrompt: query.FilePrompt,
		Policy:        budgets.ForFile(name),
		Persist:       true,
		Layout:        report.LayoutFile,
	}
	if ingest.IsDocument(name) {
		plan.DefaultPrompt = documentPrompt
		plan.Layout = report.LayoutDocument
	}
	return plan
}

// SurfaceFilePlan answers a file submitted through MCP or the HTTP API.
// Nothing is persisted; the answer goes back to the caller.
func SurfaceFilePlan(prefix string, policy ingest.Policy) Plan {
	return Plan{
		TitlePrefix:   prefix,
		DefaultPrompt: query.FilePrompt,
		Policy:        policy,
	}
}

// SurfaceURLPlan answers a web URL submitted through MCP or the HTTP API.
func SurfaceURLPlan(prefix string, budgets ingest.Budgets) Plan {
	return Plan{
		TitlePrefix:   prefix,
		DefaultPrompt: webPrompt,
		Policy:        budgets.ForURL(),
	}
}
