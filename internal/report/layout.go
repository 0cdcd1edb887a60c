package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"notebrief/internal/query"
	"notebrief/internal/textutil"
)

// Layout selects the file name and header shape of a report.
type Layout int

const (
	// LayoutURL is a video or web page from a batch manifest.
	LayoutURL Layout = iota
	// LayoutFile is a single local file of any type.
	LayoutFile
	// LayoutDocument is a single written document (PDF, text).
	LayoutDocument
	// LayoutDigest combines several sources answered by multiple queries.
	LayoutDigest
)

func (l Layout) String() string {
	switch l {
	case LayoutURL:
		return "url"
	case LayoutFile:
		return "file"
	case LayoutDocument:
		return "document"
	case LayoutDigest:
		return "digest"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Subject identifies what a report is about.
type Subject struct {
	Layout Layout
	// Identity is the title for URL and digest reports and the file name for
	// file reports.
	Identity string
	// Source is the URL shown in URL report provenance.
	Source string
}

// Section is one answered query within a report.
type Section struct {
	Label string
	Body  string
}

// Report is a rendered analysis document.
type Report struct {
	Heading    string
	Provenance string
	Sections   []Section
	Path       string
}

// Key derives the storage key for an identity: characters illegal in file
// names are removed and spaces become underscores.
func Key(identity string) string {
	return textutil.SanitizeFileName(identity)
}

// fileName returns the report's base name. digestName is used for digests.
func (s Subject) fileName(digestName string) string {
	switch s.Layout {
	case LayoutFile, LayoutDocument:
		base := filepath.Base(s.Identity)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		return Key(stem) + "_analysis.md"
	case LayoutDigest:
		return digestName
	default:
		return Key(s.Identity) + "_analysis_result.md"
	}
}

// Build assembles the report for subject. A single result is written as the
// body directly; several results are labeled by their prompt. Digests always
// label their sections.
func Build(subject Subject, results []query.Result) Report {
	rep := Report{}
	switch subject.Layout {
	case LayoutFile:
		rep.Heading = "# 檔案分析報告：" + subject.Identity
		rep.Provenance = "**來源檔案**: " + subject.Identity
	case LayoutDocument:
		rep.Heading = "# 文件分析報告：" + subject.Identity
		rep.Provenance = "**來源檔案**: " + subject.Identity
	case LayoutDigest:
		rep.Heading = "# Analysis Results for " + subject.Identity
	default:
		rep.Heading = "# 分析報告：" + subject.Identity
		rep.Provenance = fmt.Sprintf("**來源影片**: [%s](%s)", subject.Identity, subject.Source)
	}
	labeled := subject.Layout == LayoutDigest || len(results) > 1
	for _, result := range results {
		section := Section{Body: result.Answer}
		if labeled {
			section.Label = "## Query: " + result.Prompt
		}
		rep.Sections = append(rep.Sections, section)
	}
	return rep
}

// Markdown renders the report as UTF-8 text.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString(r.Heading)
	b.WriteString("\n\n")
	if r.Provenance != "" {
		b.WriteString(r.Provenance)
		b.WriteString("\n\n")
	}
	for _, section := range r.Sections {
		if section.Label == "" {
			b.WriteString(section.Body)
			continue
		}
		fmt.Fprintf(&b, "%s\n\n%s\n\n", section.Label, section.Body)
	}
	return b.String()
}
