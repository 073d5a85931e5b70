// Package batch runs the per-file pass over a set of source files: read,
// scan, gate, translate, rewrite and write back.
//
// Files are processed one at a time. A backend failure leaves its span
// untouched and never aborts the file; an I/O failure marks the file failed
// and the batch moves on. Each write replaces the whole file atomically, so
// an interrupted run leaves every file either fully rewritten or untouched.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minios-linux/zhdoc/discover"
	"github.com/minios-linux/zhdoc/gate"
	"github.com/minios-linux/zhdoc/lockfile"
	"github.com/minios-linux/zhdoc/rewrite"
	"github.com/minios-linux/zhdoc/scanner"
	"github.com/minios-linux/zhdoc/translate"
)

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Status is the outcome of one file.
type Status int

const (
	// StatusTranslated means at least one span was rewritten (or would be,
	// in preview mode).
	StatusTranslated Status = iota
	// StatusSkipped means the file was scanned but nothing changed.
	StatusSkipped
	// StatusUnchanged means the lock file showed the file was already
	// processed, so it was not scanned.
	StatusUnchanged
	// StatusFailed means the file could not be read or written.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusTranslated:
		return "translated"
	case StatusSkipped:
		return "skipped"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// FileResult describes what happened to one file.
type FileResult struct {
	Path   string
	Rel    string
	Status Status
	// Spans is the number of comments and docstrings found.
	Spans int
	// Eligible is the number of spans the gate sent to the backend.
	Eligible int
	// BackendErrors counts spans the backend failed on.
	BackendErrors int
	// Edits are the replacements made, in file order.
	Edits []rewrite.Edit
	// Regions are the changed line ranges between the old and new file.
	Regions []rewrite.Region
	// Dangling is set when a docstring was left open at end of file.
	Dangling *scanner.Dangling
	Err      error
}

// Report is the tally of one run.
type Report struct {
	RunID       string
	Started     time.Time
	Elapsed     time.Duration
	Files       []FileResult
	Translated  int
	Skipped     int
	Unchanged   int
	Failed      int
	Interrupted bool
}

func (r *Report) add(res FileResult) {
	r.Files = append(r.Files, res)
	switch res.Status {
	case StatusTranslated:
		r.Translated++
	case StatusSkipped:
		r.Skipped++
	case StatusUnchanged:
		r.Unchanged++
	default:
		r.Failed++
	}
}

// Edits returns the total number of rewritten spans.
func (r *Report) Edits() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Edits)
	}
	return n
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls a Processor.
type Options struct {
	// Translator is the backend. Required.
	Translator translate.Translator
	// Root is the directory file paths are reported relative to.
	Root string
	// DryRun computes edits without writing files or the lock file.
	DryRun bool
	// Force processes files even when the lock file says they are done.
	Force bool
	// Lock is the lock file; nil disables incremental runs.
	Lock *lockfile.LockFile
	// RunID tags the run; a random UUID is used when empty.
	RunID string

	// OnFile is called after each file.
	OnFile func(res FileResult)
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Processor
// ---------------------------------------------------------------------------

// Processor runs the per-file pass.
type Processor struct {
	opts Options
}

// New returns a Processor for opts.
func New(opts Options) (*Processor, error) {
	if opts.Translator == nil {
		return nil, errors.New("batch: no translator configured")
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Processor{opts: opts}, nil
}

// RunID returns the identifier of this run.
func (p *Processor) RunID() string {
	return p.opts.RunID
}

// Run processes files in order and returns the tally. It stops before the
// next file once ctx is cancelled; the file in progress is left untouched.
func (p *Processor) Run(ctx context.Context, files []string) Report {
	rep := Report{RunID: p.opts.RunID, Started: time.Now()}
	rels := make([]string, 0, len(files))

	for _, path := range files {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}
		res := p.ProcessFile(ctx, path)
		if res.Err != nil && ctx.Err() != nil && errors.Is(res.Err, ctx.Err()) {
			rep.Interrupted = true
			break
		}
		rels = append(rels, res.Rel)
		rep.add(res)
		if p.opts.OnFile != nil {
			p.opts.OnFile(res)
		}
	}

	if lf := p.opts.Lock; lf != nil && !p.opts.DryRun {
		if !rep.Interrupted {
			if n := lf.Clean(rels); n > 0 {
				p.opts.log("Removed %d stale lock entries", n)
			}
		}
		if err := lf.Save(); err != nil {
			p.opts.logError("Saving lock file: %v", err)
		}
	}

	rep.Elapsed = time.Since(rep.Started)
	return rep
}

// ProcessFile runs the pass over one file.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path, Rel: discover.Rel(p.opts.Root, path)}

	info, err := os.Stat(path)
	if err != nil {
		return failed(res, fmt.Errorf("reading %s: %w", path, err))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return failed(res, fmt.Errorf("reading %s: %w", path, err))
	}

	lf := p.opts.Lock
	if lf != nil && !p.opts.Force && !lf.IsChanged(res.Rel, data) {
		res.Status = StatusUnchanged
		return res
	}

	text, crlf := normalizeNewlines(string(data))
	lines := strings.Split(text, "\n")

	scan := scanner.Scan(lines)
	res.Spans = len(scan.Spans)
	if d := scan.Dangling; d != nil {
		res.Dangling = d
		p.opts.logError("%s:%d: unterminated %s docstring left as is", res.Rel, d.Start+1, d.Delimiter)
	}

	outcomes := make([]gate.Outcome, len(scan.Spans))
	for i, span := range scan.Spans {
		if !gate.ShouldTranslate(span) {
			outcomes[i] = gate.Reject(span)
			continue
		}
		res.Eligible++

		out, err := p.opts.Translator.Translate(ctx, strings.TrimSpace(span.Text), gate.ContextKind(span))
		if err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				res.Status = StatusSkipped
				return res
			}
			res.BackendErrors++
			p.opts.logError("%s:%d: translation failed: %v", res.Rel, span.Anchor+1, err)
			outcomes[i] = gate.Reject(span)
			continue
		}
		outcomes[i] = gate.Accept(span, out)
	}

	res.Edits = rewrite.Edits(lines, scan.Spans, outcomes)
	if len(res.Edits) == 0 {
		res.Status = StatusSkipped
		p.record(res, data)
		return res
	}

	newLines := rewrite.Apply(lines, scan.Spans, outcomes)
	res.Regions = rewrite.Regions(lines, newLines)
	res.Status = StatusTranslated
	if p.opts.DryRun {
		return res
	}

	out := denormalizeNewlines(strings.Join(newLines, "\n"), crlf)
	if err := writeFileAtomic(path, []byte(out), info.Mode().Perm()); err != nil {
		return failed(res, fmt.Errorf("writing %s: %w", path, err))
	}
	p.record(res, []byte(out))
	return res
}

// record marks content as processed. Files with backend failures stay out
// of the lock file so the next run retries them.
func (p *Processor) record(res FileResult, content []byte) {
	if p.opts.Lock == nil || p.opts.DryRun || res.BackendErrors > 0 {
		return
	}
	p.opts.Lock.Update(res.Rel, content)
}

func failed(res FileResult, err error) FileResult {
	res.Status = StatusFailed
	res.Err = err
	return res
}

// normalizeNewlines converts CRLF line endings to LF for the pass. Files
// mixing both styles are left alone.
func normalizeNewlines(s string) (string, bool) {
	n := strings.Count(s, "\r\n")
	if n == 0 || n != strings.Count(s, "\n") {
		return s, false
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), true
}

func denormalizeNewlines(s string, crlf bool) string {
	if !crlf {
		return s
	}
	return strings.ReplaceAll(s, "\n", "\r\n")
}
