package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"notebrief/internal/ingest"
	"notebrief/internal/logging"
	"notebrief/internal/services"
	"notebrief/internal/staging"
	"notebrief/internal/workflow"
)

const (
	loginHint       = "\n請確認您已正確設定 notebooklm 的登入狀態。"
	maxPromptBytes  = 64 << 10
	maxJSONBodySize = 1 << 20
)

// Runner executes one pipeline item. *workflow.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, item workflow.Item, plan workflow.Plan) (*workflow.Outcome, error)
}

// Options configures the router.
type Options struct {
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
	// Token, when set, is required as a bearer token on /analyze routes.
	Token string
}

type router struct {
	runner  Runner
	stager  *staging.Stager
	budgets ingest.Budgets
	logger  *slog.Logger
}

// RemoteFileRequest is the body of POST /analyze/remote-file.
type RemoteFileRequest struct {
	FileURL      string `json:"file_url"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

// URLRequest is the body of POST /analyze/url.
type URLRequest struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

// AnalysisResponse is returned on success.
type AnalysisResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// ErrorResponse is returned on failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewRouter builds the HTTP API. Uploads are staged through stager.
func NewRouter(runner Runner, stager *staging.Stager, budgets ingest.Budgets, opts Options, logger *slog.Logger) http.Handler {
	rt := &router{
		runner:  runner,
		stager:  stager,
		budgets: budgets,
		logger:  logging.NewComponentLogger(logger, "http-api"),
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(rt.requestLogger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   defaultOrigins(opts.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mux.Route("/analyze", func(r chi.Router) {
		r.Use(authMiddleware(opts.Token))
		r.Post("/upload", rt.handleUpload)
		r.Post("/remote-file", rt.handleRemoteFile)
		r.Post("/url", rt.handleURL)
	})
	return mux
}

func defaultOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// POST /analyze/upload
// multipart form: file (required), custom_prompt (optional)
func (rt *router) handleUpload(w http.ResponseWriter, req *http.Request) {
	file, prompt, err := rt.readUpload(req)
	if err != nil {
		rt.writeError(w, http.StatusBadRequest, fmt.Sprintf("儲存上傳檔案時發生錯誤 %v", err))
		return
	}
	defer func() {
		if err := file.Remove(); err != nil {
			logging.WarnWithContext(rt.logger, "staged upload cleanup failed", "staging_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "orphaned file stays until the next staging sweep"),
			)
		}
	}()

	item := workflow.Item{Identity: file.Name, Origin: ingest.LocalFile(file.Path), Prompt: prompt}
	plan := workflow.SurfaceFilePlan(workflow.TitleAPIUpload, rt.budgets.ForUpload())
	outcome, err := rt.runner.Run(rt.requestContext(req), item, plan)
	if err != nil {
		rt.writeError(w, statusFor(err), fmt.Sprintf("分析檔案時發生錯誤: %v", err)+loginHint)
		return
	}
	rt.writeJSON(w, http.StatusOK, AnalysisResponse{Status: "success", Result: outcome.Answer()})
}

// readUpload streams the file part straight into the staging directory.
func (rt *router) readUpload(req *http.Request) (*staging.File, string, error) {
	reader, err := req.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("expected multipart form: %w", err)
	}
	var (
		file   *staging.File
		prompt string
	)
	fail := func(err error) (*staging.File, string, error) {
		if file != nil {
			_ = file.Remove()
		}
		return nil, "", err
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("read form: %w", err))
		}
		switch part.FormName() {
		case "file":
			if file != nil {
				_ = part.Close()
				return fail(errors.New("only one file may be uploaded"))
			}
			file, err = rt.stager.Save(part.FileName(), part)
			if err != nil {
				_ = part.Close()
				return fail(err)
			}
		case "custom_prompt":
			prompt, err = readField(part)
			if err != nil {
				return fail(err)
			}
		}
		_ = part.Close()
	}
	if file == nil {
		return nil, "", errors.New("missing form field \"file\"")
	}
	return file, prompt, nil
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxPromptBytes+1))
	if err != nil {
		return "", fmt.Errorf("read custom_prompt: %w", err)
	}
	if len(data) > maxPromptBytes {
		return "", errors.New("custom_prompt too large")
	}
	return string(data), nil
}

// POST /analyze/remote-file
// Body: {"file_url": "...", "custom_prompt": "..."}
func (rt *router) handleRemoteFile(w http.ResponseWriter, req *http.Request) {
	var body RemoteFileRequest
	if err := decodeJSON(req, &body); err != nil {
		rt.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.FileURL) == "" {
		rt.writeError(w, http.StatusBadRequest, "file_url is required")
		return
	}

	item := workflow.Item{Origin: ingest.RemoteFile(body.FileURL), Prompt: body.CustomPrompt}
	plan := workflow.SurfaceFilePlan(workflow.TitleAPIRemote, rt.budgets.ForSubmitted())
	outcome, err := rt.runner.Run(rt.requestContext(req), item, plan)
	if err != nil {
		if errors.Is(err, services.ErrDownloadFailure) {
			rt.writeError(w, http.StatusBadRequest, fmt.Sprintf("下載遠端檔案時發生錯誤 %v", err))
			return
		}
		rt.writeError(w, statusFor(err), fmt.Sprintf("分析檔案時發生錯誤: %v", err)+loginHint)
		return
	}
	rt.writeJSON(w, http.StatusOK, AnalysisResponse{Status: "success", Result: outcome.Answer()})
}

// POST /analyze/url
// Body: {"url": "...", "title": "...", "custom_prompt": "..."}
func (rt *router) handleURL(w http.ResponseWriter, req *http.Request) {
	var body URLRequest
	if err := decodeJSON(req, &body); err != nil {
		rt.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.URL) == "" {
		rt.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		title = workflow.DefaultURLTitle
	}

	item := workflow.Item{Identity: title, Origin: ingest.WebURL(body.URL), Prompt: body.CustomPrompt}
	plan := workflow.SurfaceURLPlan(workflow.TitleAPIURL, rt.budgets)
	outcome, err := rt.runner.Run(rt.requestContext(req), item, plan)
	if err != nil {
		rt.writeError(w, statusFor(err), fmt.Sprintf("分析 URL 時發生錯誤: %v", err)+loginHint)
		return
	}
	rt.writeJSON(w, http.StatusOK, AnalysisResponse{Status: "success", Result: outcome.Answer()})
}

func decodeJSON(req *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxJSONBodySize))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// statusFor maps pipeline errors to HTTP status codes: caller mistakes are
// 400, everything else is an analysis failure.
func statusFor(err error) int {
	if services.IsInputError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (rt *router) requestContext(req *http.Request) context.Context {
	ctx := services.WithSurface(req.Context(), "http")
	if id := middleware.GetReqID(ctx); id != "" {
		ctx = services.WithRequestID(ctx, id)
	}
	return ctx
}

func (rt *router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "http_request"),
			logging.String("method", req.Method),
			logging.String("path", req.URL.Path),
			logging.Int("status", status),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("duration", time.Since(start)),
			logging.String("remote", req.RemoteAddr),
		}
		if id := middleware.GetReqID(req.Context()); id != "" {
			attrs = append(attrs, logging.String(logging.FieldCorrelationID, id))
		}
		if status >= http.StatusInternalServerError {
			logging.WarnWithContext(rt.logger, "request failed", "http_request",
				append(attrs, logging.String(logging.FieldImpact, "caller received an analysis error"))...)
			return
		}
		rt.logger.Info("request served", logging.Args(attrs...)...)
	})
}

func (rt *router) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		rt.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (rt *router) writeError(w http.ResponseWriter, status int, detail string) {
	rt.writeJSON(w, status, ErrorResponse{Detail: detail})
}
