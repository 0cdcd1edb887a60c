package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceNotFound     = errors.New("source not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrIngestionTimeout   = errors.New("ingestion timeout")
	ErrDownloadFailure    = errors.New("download failure")
	ErrQueryFailure       = errors.New("query failure")
	ErrExternalTool       = errors.New("external tool error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrUnsupported        = errors.New("unsupported operation")
)

const kindUnclassified = "error"

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err == nil {
			return errors.New(detail)
		}
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short stable label for the marker carried by err. Ledger rows,
// log fields, and HTTP status selection key off this label.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, ErrIngestionTimeout):
		return "ingestion_timeout"
	case errors.Is(err, ErrDownloadFailure):
		return "download_failure"
	case errors.Is(err, ErrQueryFailure):
		return "query_failure"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	default:
		return kindUnclassified
	}
}

// Classified reports whether err already carries one of the markers above.
func Classified(err error) bool {
	k := Kind(err)
	return k != "" && k != kindUnclassified
}

// IsInputError reports whether err was caused by the caller's input rather than
// by the analysis itself (missing file, failed download, bad request).
func IsInputError(err error) bool {
	return errors.Is(err, ErrSourceNotFound) ||
		errors.Is(err, ErrDownloadFailure) ||
		errors.Is(err, ErrValidation)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
