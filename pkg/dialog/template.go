package dialog

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/template"

	"github.com/voicetyped/flightbot/pkg/booking"
)

const maxTemplateOutput = 64 * 1024

// templateCache caches parsed templates to avoid re-parsing on every call.
var templateCache sync.Map

// templateCtx is the data available in prompt templates. The embedded
// details expose .Origin, .Destination and friends directly.
type templateCtx struct {
	booking.Details
	Step StepName
}

// RenderText evaluates a prompt template over the booking details.
// Text without template actions is returned unchanged.
func RenderText(tmpl string, step StepName, d booking.Details) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	return renderTemplate(tmpl, templateCtx{Details: d, Step: step})
}

// limitWriter caps output from template.Execute.
type limitWriter struct {
	w       io.Writer
	n       int64
	written int64
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	if lw.written+int64(len(p)) > lw.n {
		allowed := lw.n - lw.written
		if allowed > 0 {
			n, err := lw.w.Write(p[:allowed])
			lw.written += int64(n)
			if err != nil {
				return n, err
			}
		}
		return 0, fmt.Errorf("template output exceeds %d bytes", lw.n)
	}
	n, err := lw.w.Write(p)
	lw.written += int64(n)
	return n, err
}

func renderTemplate(tmplStr string, data templateCtx) (string, error) {
	var tmpl *template.Template
	if cached, ok := templateCache.Load(tmplStr); ok {
		tmpl = cached.(*template.Template)
	} else {
		var err error
		tmpl, err = template.New("").Option("missingkey=zero").Parse(tmplStr)
		if err != nil {
			return "", err
		}
		templateCache.Store(tmplStr, tmpl)
	}

	var buf bytes.Buffer
	lw := &limitWriter{w: &buf, n: maxTemplateOutput}
	if err := tmpl.Execute(lw, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
