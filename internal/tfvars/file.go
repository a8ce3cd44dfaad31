package tfvars

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// LoadFile reads a .tfvars or .tfvars.json file into a source named after the
// file.
func LoadFile(path string) (*StaticSource, error) {
	parser := hclparse.NewParser()

	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.HasSuffix(path, ".json") {
		file, diags = parser.ParseJSONFile(path)
	} else {
		file, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, haberrors.NewParseError(path, diagLine(diags), diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, haberrors.NewParseError(path, diagLine(diags), diags)
	}

	values := make(Values, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, haberrors.NewParseError(path, attr.Range.Start.Line, diags)
		}
		values[name] = val
	}

	return &StaticSource{name: filepath.Base(path), values: values}, nil
}

func diagLine(diags hcl.Diagnostics) int {
	for _, d := range diags {
		if d.Subject != nil {
			return d.Subject.Start.Line
		}
	}
	return 0
}
