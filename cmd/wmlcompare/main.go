// Command wmlcompare compares WordprocessingML documents and reports, accepts or
// rejects their tracked revisions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/sqlite"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/FocuswithJustin/wmlcompare/internal/archive"
	"github.com/FocuswithJustin/wmlcompare/internal/logging"
	"github.com/FocuswithJustin/wmlcompare/internal/report"
	"github.com/FocuswithJustin/wmlcompare/internal/validation"
)

const version = "0.4.0"

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

var now = time.Now

// CLI defines the command-line interface for wmlcompare.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" enum:"debug,info,warn,error" default:"warn" env:"WMLCOMPARE_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" enum:"text,json" default:"text" env:"WMLCOMPARE_LOG_FORMAT" help:"Log format (text, json)"`
	Author    string `default:"wmlcompare" env:"WMLCOMPARE_AUTHOR" help:"Author written on generated revisions"`
	Date      string `env:"WMLCOMPARE_DATE" help:"Date written on generated revisions (RFC 3339, default now)"`

	Compare     CompareCmd     `cmd:"" help:"Compare two documents into one with tracked revisions"`
	Consolidate ConsolidateCmd `cmd:"" help:"Merge several reviewed copies of a document"`
	Revisions   RevisionsCmd   `cmd:"" help:"List the tracked revisions of a document"`
	Validate    ValidateCmd    `cmd:"" help:"Check that documents can be compared"`
	Accept      AcceptCmd      `cmd:"" help:"Accept all tracked revisions"`
	Reject      RejectCmd      `cmd:"" help:"Reject all tracked revisions"`
	Version     VersionCmd     `cmd:"" help:"Print version information"`
}

// MatchFlags are the comparison settings shared by compare and consolidate.
type MatchFlags struct {
	CaseInsensitive bool    `name:"case-insensitive" help:"Ignore letter case"`
	ConflateSpaces  bool    `name:"conflate-spaces" help:"Treat non-breaking spaces as spaces"`
	Detail          string  `enum:"paragraph,word,atom" default:"word" help:"Finest granularity of reported changes"`
	MinMatchRatio   float64 `name:"min-match-ratio" default:"0.15" help:"Matched fraction below which a paragraph is replaced whole"`
	TieBreak        string  `name:"tie-break" enum:"left,right" default:"left" help:"Document whose earliest matches win ties"`
	NoFormatting    bool    `name:"no-formatting" help:"Do not track formatting changes"`
}

func (f *MatchFlags) settings() (comparer.Settings, error) {
	s := comparer.DefaultSettings()
	s.CaseInsensitive = f.CaseInsensitive
	s.ConflateBreakingAndNonbreakingSpaces = f.ConflateSpaces
	switch f.Detail {
	case "paragraph":
		s.DetailThreshold = comparer.LevelParagraph
	case "atom":
		s.DetailThreshold = comparer.LevelAtom
	}
	if f.MinMatchRatio < 0 || f.MinMatchRatio > 1 {
		return s, errors.NewValidationf("min-match-ratio", "%g is outside [0, 1]", f.MinMatchRatio)
	}
	s.MinMatchRatio = f.MinMatchRatio
	if f.TieBreak == "right" {
		s.TieBreak = comparer.PreferEarliestRight
	}
	s.TrackFormattingChanges = !f.NoFormatting

	if CLI.Author != "" {
		s.AuthorForRevisions = CLI.Author
	}
	s.DateTimeForRevisions = now().UTC().Truncate(time.Second)
	if CLI.Date != "" {
		t, err := time.Parse(time.RFC3339, CLI.Date)
		if err != nil {
			return s, errors.NewValidationf("date", "%q is not an RFC 3339 time", CLI.Date)
		}
		s.DateTimeForRevisions = t
	}
	s.Logger = logging.GetLogger()
	return s, nil
}

// runContext returns a context carrying a fresh run id for log correlation.
func runContext() context.Context {
	return logging.WithRunID(context.Background(), logging.NewRunID())
}

func checkOutput(path string) error {
	if err := validation.ValidatePath(path); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if validation.TypeFromExtension(path) == validation.FileTypeUnknown ||
		validation.TypeFromExtension(path) == validation.FileTypeSQLite {
		return errors.NewUnsupported(path, "output format", "write .docx, .xml or .xml.xz")
	}
	return nil
}

// CompareCmd compares two documents.
type CompareCmd struct {
	MatchFlags `embed:""`

	Left  string `arg:"" help:"Original document" type:"existingfile"`
	Right string `arg:"" help:"Revised document" type:"existingfile"`
	Out   string `required:"" short:"o" help:"Output document (.docx, .xml or .xml.xz)" type:"path"`
	Parts bool   `help:"Also compare headers and footers present in both documents"`
}

func (c *CompareCmd) Run() error {
	if err := checkOutput(c.Out); err != nil {
		return err
	}
	s, err := c.settings()
	if err != nil {
		return err
	}
	left, err := archive.Open(c.Left)
	if err != nil {
		return err
	}
	right, err := archive.Open(c.Right)
	if err != nil {
		return err
	}

	out, res, err := archive.Compare(runContext(), comparer.New(s), left, right, archive.Options{Parts: c.Parts})
	if err != nil {
		return err
	}
	if err := out.Save(c.Out, true); err != nil {
		return err
	}
	revs, err := res.Revisions()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d revisions written to %s\n", len(revs), c.Out)
	return nil
}

// ConsolidateCmd merges reviewed copies.
type ConsolidateCmd struct {
	MatchFlags `embed:""`

	Original string   `arg:"" help:"Original document" type:"existingfile"`
	Revisor  []string `required:"" short:"r" sep:"none" placeholder:"NAME=PATH[#COLOR]" help:"Reviewed copy, its reviewer and an optional hex shading color"`
	Out      string   `required:"" short:"o" help:"Output document (.docx, .xml or .xml.xz)" type:"path"`
}

// revisorSpec is a parsed --revisor value.
type revisorSpec struct {
	Name, Path, Color string
}

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// parseRevisor parses NAME=PATH[#COLOR]. A '#' followed by anything but six hex
// digits is part of the path.
func parseRevisor(s string) (revisorSpec, error) {
	name, path, ok := strings.Cut(s, "=")
	if !ok || name == "" || path == "" {
		return revisorSpec{}, errors.NewValidationf("revisor", "%q is not NAME=PATH[#COLOR]", s)
	}
	spec := revisorSpec{Name: name, Path: path}
	if i := strings.LastIndex(path, "#"); i >= 0 && hexColor.MatchString(path[i+1:]) {
		spec.Path, spec.Color = path[:i], strings.ToUpper(path[i+1:])
	}
	return spec, nil
}

func (c *ConsolidateCmd) Run() error {
	if err := checkOutput(c.Out); err != nil {
		return err
	}
	s, err := c.settings()
	if err != nil {
		return err
	}
	original, err := archive.Open(c.Original)
	if err != nil {
		return err
	}
	revisors := make([]archive.RevisorPackage, 0, len(c.Revisor))
	for _, r := range c.Revisor {
		spec, err := parseRevisor(r)
		if err != nil {
			return err
		}
		pkg, err := archive.Open(spec.Path)
		if err != nil {
			return err
		}
		revisors = append(revisors, archive.RevisorPackage{Name: spec.Name, Color: spec.Color, Package: pkg})
	}

	out, res, err := archive.Consolidate(runContext(), comparer.New(s), original, revisors)
	if err != nil {
		return err
	}
	if err := out.Save(c.Out, true); err != nil {
		return err
	}
	revs, err := res.Revisions()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d revisions from %d revisors written to %s\n", len(revs), len(revisors), c.Out)
	return nil
}

// RevisionsCmd lists tracked revisions.
type RevisionsCmd struct {
	File   string `arg:"" help:"Document to inspect" type:"existingfile"`
	Format string `short:"f" enum:"text,json,sqlite" default:"text" help:"Output format (text, json, sqlite)"`
	DB     string `name:"db" help:"Ledger database for --format sqlite" type:"path"`
	All    bool   `help:"Also list revisions in headers, footers and notes"`
}

func (c *RevisionsCmd) Run() error {
	format, err := report.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	if format == report.FormatSQLite && c.DB == "" {
		return errors.NewValidation("db", "--format sqlite needs --db")
	}
	pkg, err := archive.Open(c.File)
	if err != nil {
		return err
	}
	parts := []string{pkg.MainPart()}
	if c.All {
		if parts, err = pkg.StoryParts(); err != nil {
			return err
		}
	}

	color := format == report.FormatText && stdout == os.Stdout && report.ColorEnabled(os.Stdout)
	for _, part := range parts {
		doc, err := pkg.Tree(part)
		if err != nil {
			return err
		}
		revs, err := comparer.Revisions(doc)
		if err != nil {
			return err
		}
		label := pkg.Name
		if part != pkg.MainPart() {
			label += ":" + part
		}
		r := report.New(label, revs)
		if format == report.FormatSQLite {
			if err := r.Save(context.Background(), c.DB); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s: %d revisions recorded in %s\n", label, len(revs), c.DB)
			continue
		}
		if err := r.Write(stdout, format, color); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCmd runs the preflight checks.
type ValidateCmd struct {
	Files []string `arg:"" help:"Documents to check" type:"existingfile"`
}

func (c *ValidateCmd) Run() error {
	failed := 0
	for _, path := range c.Files {
		if err := validateFile(path); err != nil {
			failed++
			fmt.Fprintf(stdout, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(stdout, "ok   %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(c.Files))
	}
	return nil
}

func validateFile(path string) error {
	pkg, err := archive.Open(path)
	if err != nil {
		return err
	}
	parts, err := pkg.StoryParts()
	if err != nil {
		return err
	}
	for _, part := range parts {
		src, err := pkg.Source(part)
		if err != nil {
			return err
		}
		if err := comparer.Preflight(src); err != nil {
			return err
		}
	}
	return nil
}

// AcceptCmd accepts all revisions.
type AcceptCmd struct {
	File string `arg:"" help:"Document with tracked revisions" type:"existingfile"`
	Out  string `required:"" short:"o" help:"Output document" type:"path"`
}

func (c *AcceptCmd) Run() error {
	return resolveFile(c.File, c.Out, comparer.AcceptRevisions, "accepted")
}

// RejectCmd rejects all revisions.
type RejectCmd struct {
	File string `arg:"" help:"Document with tracked revisions" type:"existingfile"`
	Out  string `required:"" short:"o" help:"Output document" type:"path"`
}

func (c *RejectCmd) Run() error {
	return resolveFile(c.File, c.Out, comparer.RejectRevisions, "rejected")
}

// resolveFile applies resolve to every story part of a document.
func resolveFile(in, out string, resolve func(*xml.Document) (*xml.Document, error), verb string) error {
	if err := checkOutput(out); err != nil {
		return err
	}
	pkg, err := archive.Open(in)
	if err != nil {
		return err
	}
	parts, err := pkg.StoryParts()
	if err != nil {
		return err
	}
	total := 0
	for _, part := range parts {
		doc, err := pkg.Tree(part)
		if err != nil {
			return err
		}
		revs, err := comparer.Revisions(doc)
		if err != nil {
			return err
		}
		resolved, err := resolve(doc)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", part)
		}
		total += len(revs)
		pkg.SetTree(part, "", resolved)
	}
	if err := pkg.Save(out, true); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d revisions %s, written to %s\n", total, verb, out)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "wmlcompare version %s\n", version)
	fmt.Fprintf(stdout, "sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	return nil
}

func initLogging() error {
	level, err := logging.ParseLevel(CLI.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(CLI.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("wmlcompare"),
		kong.Description("Compare WordprocessingML documents with tracked revisions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(initLogging())
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
