package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"notebrief/internal/ingest"
	"notebrief/internal/logging"
	"notebrief/internal/services"
	"notebrief/internal/workflow"
)

// Tool names exposed to MCP clients.
const (
	ToolAnalyzeFile       = "analyze_file_with_notebooklm"
	ToolAnalyzeRemoteFile = "analyze_remote_file_with_notebooklm"
	ToolAnalyzeURL        = "analyze_url_with_notebooklm"
)

// Path is where the streamable HTTP transport is mounted.
const Path = "/mcp"

const loginHint = "\n請確認您已正確設定 notebooklm 的登入狀態。"

// Runner executes one pipeline item. *workflow.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, item workflow.Item, plan workflow.Plan) (*workflow.Outcome, error)
}

// Server exposes the analysis pipeline as MCP tools.
type Server struct {
	MCPServer *sdkmcp.Server

	runner  Runner
	budgets ingest.Budgets
	logger  *slog.Logger
}

// New creates the MCP server and registers its tools.
func New(runner Runner, budgets ingest.Budgets, version string, logger *slog.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "notebrief", Version: version}, nil),
		runner:    runner,
		budgets:   budgets,
		logger:    logging.NewComponentLogger(logger, "mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        ToolAnalyzeFile,
		Description: "使用 NotebookLM 深度分析本地檔案 (支援 PDF, MP4, MP3 等)。",
	}, s.handleAnalyzeFile)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        ToolAnalyzeRemoteFile,
		Description: "透過 HTTP URL 下載檔案並使用 NotebookLM 深度分析 (支援遠端 Client)。",
	}, s.handleAnalyzeRemoteFile)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        ToolAnalyzeURL,
		Description: "使用 NotebookLM 深度分析網頁 URL 或 YouTube 影片連結。",
	}, s.handleAnalyzeURL)
}

// --- Tool input types ---

type analyzeFileInput struct {
	FilePath     string `json:"file_path" jsonschema:"本地檔案的絕對路徑"`
	CustomPrompt string `json:"custom_prompt,omitempty" jsonschema:"自訂的分析指令，未提供時使用預設的深度分析指令"`
}

type analyzeRemoteFileInput struct {
	FileURL      string `json:"file_url" jsonschema:"檔案的公開可下載網址 (例如 S3 pre-signed URL)"`
	CustomPrompt string `json:"custom_prompt,omitempty" jsonschema:"自訂的分析指令，未提供時使用預設的深度分析指令"`
}

type analyzeURLInput struct {
	URL          string `json:"url" jsonschema:"欲分析的目標網址 (支援 YouTube 影片)"`
	Title        string `json:"title,omitempty" jsonschema:"該網址的標題，用於建立暫存筆記本名稱 (預設 URL Analysis)"`
	CustomPrompt string `json:"custom_prompt,omitempty" jsonschema:"自訂的分析指令，未提供時使用預設的深度分析指令"`
}

// --- Tool handlers ---

func (s *Server) handleAnalyzeFile(ctx context.Context, _ *sdkmcp.CallToolRequest, in analyzeFileInput) (*sdkmcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx)
	item := workflow.Item{Origin: ingest.LocalFile(in.FilePath), Prompt: in.CustomPrompt}
	plan := workflow.SurfaceFilePlan(workflow.TitleMCPFile, s.budgets.ForSubmitted())

	outcome, err := s.runner.Run(ctx, item, plan)
	if err != nil {
		if errors.Is(err, services.ErrSourceNotFound) {
			return textResult(fmt.Sprintf("錯誤：找不到檔案 %s", in.FilePath)), nil, nil
		}
		return textResult(fmt.Sprintf("分析檔案時發生錯誤: %v", err) + loginHint), nil, nil
	}
	return textResult(outcome.Answer()), nil, nil
}

func (s *Server) handleAnalyzeRemoteFile(ctx context.Context, _ *sdkmcp.CallToolRequest, in analyzeRemoteFileInput) (*sdkmcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx)
	item := workflow.Item{Origin: ingest.RemoteFile(in.FileURL), Prompt: in.CustomPrompt}
	plan := workflow.SurfaceFilePlan(workflow.TitleMCPRemote, s.budgets.ForSubmitted())

	outcome, err := s.runner.Run(ctx, item, plan)
	if err != nil {
		if errors.Is(err, services.ErrDownloadFailure) {
			return textResult(fmt.Sprintf("錯誤：下載遠端檔案時發生錯誤 %v", err)), nil, nil
		}
		return textResult(fmt.Sprintf("分析檔案時發生錯誤: %v", err) + loginHint), nil, nil
	}
	return textResult(outcome.Answer()), nil, nil
}

func (s *Server) handleAnalyzeURL(ctx context.Context, _ *sdkmcp.CallToolRequest, in analyzeURLInput) (*sdkmcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = workflow.DefaultURLTitle
	}
	item := workflow.Item{Identity: title, Origin: ingest.WebURL(in.URL), Prompt: in.CustomPrompt}
	plan := workflow.SurfaceURLPlan(workflow.TitleMCPURL, s.budgets)

	outcome, err := s.runner.Run(ctx, item, plan)
	if err != nil {
		return textResult(fmt.Sprintf("分析 URL 時發生錯誤: %v", err) + loginHint), nil, nil
	}
	return textResult(outcome.Answer()), nil, nil
}

func (s *Server) toolContext(ctx context.Context) context.Context {
	return services.WithSurface(ctx, "mcp")
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}}
}

// ServeStdio serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio", logging.String(logging.FieldEventType, "mcp_stdio_start"))
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// Handler returns an http.Handler serving the streamable HTTP transport at Path.
func (s *Server) Handler() http.Handler {
	streamable := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return s.MCPServer
	}, nil)
	mux := http.NewServeMux()
	mux.Handle(Path, streamable)
	mux.Handle(Path+"/", streamable)
	return mux
}
