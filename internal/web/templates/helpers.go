// Package templates renders the HTML pages as templ components.
//
// Components live in the .templ files; the *_templ.go files are generated
// with `templ generate` and must not be edited by hand.
package templates

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/export"
)

// UploadPageData fills the upload form.
type UploadPageData struct {
	User        core.UserInfo
	MaxFiles    int
	MaxFileSize int64
	Error       *core.UserMessage
}

const styleTag = `<style>
body{font-family:system-ui,sans-serif;margin:0;display:flex;color:#1f2937}
aside{width:14rem;padding:1rem;background:#f3f4f6;min-height:100vh}
main{flex:1;padding:1.5rem 2rem;max-width:60rem}
h1{margin-top:0}
section.file{border:1px solid #e5e7eb;border-radius:6px;padding:1rem;margin-bottom:1.5rem}
table.preview{border-collapse:collapse;font-size:.85rem;margin:.5rem 0}
table.preview th,table.preview td{border:1px solid #d1d5db;padding:.2rem .5rem;text-align:left}
.alert{padding:.6rem .8rem;border-radius:4px;margin:.5rem 0}
.alert.error{background:#fee2e2;color:#991b1b}
.alert.success{background:#dcfce7;color:#166534}
.muted{color:#6b7280}
fieldset{border:1px solid #e5e7eb;margin:.5rem 0}
svg.chart{max-width:100%;height:auto}
</style>`

// targets are the conversion choices in the order they are offered.
var targets = []export.Target{export.TargetNone, export.TargetCSV, export.TargetExcel}

func targetValue(t export.Target) string {
	switch t {
	case export.TargetCSV:
		return "csv"
	case export.TargetExcel:
		return "excel"
	}
	return ""
}

func targetLabel(t export.Target) string {
	if t == export.TargetNone {
		return "Don't convert"
	}
	return t.String()
}

func allSucceeded(files []core.StoredFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if f.Result == nil || f.Result.Err != nil {
			return false
		}
	}
	return true
}

func sessionPath(sessionID, action string) string {
	return "/sessions/" + sessionID + "/" + action
}

func filePath(sessionID, fileID, action string) string {
	return strings.Join([]string{"/sessions", sessionID, "files", fileID, action}, "/")
}

func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
