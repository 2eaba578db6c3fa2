package encoder

import (
	"fmt"
	"os/exec"

	"jxlpress/logger"
)

// Tool is an external program the service depends on.
type Tool struct {
	Name string `json:"name"` // "cjxl", "ffmpeg"
	Path string `json:"path"`
}

// ToolStatus is the result of resolving a Tool.
type ToolStatus struct {
	Tool
	Resolved  string `json:"resolved,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Lookup resolves every tool against PATH and logs what it finds. A missing
// tool is reported, not fatal: the server still starts and the affected
// requests fail at encode time.
func Lookup(tools ...Tool) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(tools))
	for _, t := range tools {
		st := ToolStatus{Tool: t}
		resolved, err := exec.LookPath(t.Path)
		if err != nil {
			st.Error = fmt.Sprintf("command '%s' not found: %v", t.Path, err)
			logger.Warnf("tool [%s] unavailable: %s", t.Name, st.Error)
		} else {
			st.Resolved = resolved
			st.Available = true
			logger.Debugf("tool [%s] found at %s", t.Name, resolved)
		}
		statuses = append(statuses, st)
	}
	return statuses
}
