package recipe

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lightsd-formula/internal/config"
)

// Formula is the package metadata shown by the host package manager.
type Formula struct {
	Name        string
	Description string
	Homepage    string
	Version     string
	Revision    int
}

// FormulaFromConfig extracts the formula metadata from cfg.
func FormulaFromConfig(cfg *config.Config) Formula {
	return Formula{
		Name:        cfg.Formula.Name,
		Description: cfg.Formula.Description,
		Homepage:    cfg.Formula.Homepage,
		Version:     NormalizeVersion(cfg.Formula.Version),
		Revision:    cfg.Formula.Revision,
	}
}

// NormalizeVersion rewrites release candidate separators so that 1.2.0-rc1
// sorts before 1.2.0 in the host package manager.
func NormalizeVersion(version string) string {
	return strings.ReplaceAll(strings.TrimSpace(version), "-", "~")
}

// PkgVersion appends the revision suffix when the formula has been revised.
func (f Formula) PkgVersion() string {
	if f.Revision > 0 {
		return f.Version + "_" + strconv.Itoa(f.Revision)
	}
	return f.Version
}

// ClassName is the formula class name derived from the package name, e.g.
// lightsd-head becomes LightsdHead.
func (f Formula) ClassName() string {
	caser := cases.Title(language.Und)
	parts := strings.FieldsFunc(f.Name, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '@'
	})
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(caser.String(part))
	}
	return sb.String()
}
