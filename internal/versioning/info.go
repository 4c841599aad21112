package versioning

import "strings"

// DefaultPrefix namespaces the exported variables.
const DefaultPrefix = "NAP"

// Info is the resolved project version.
type Info struct {
	Full      string `yaml:"full" json:"full"`
	Major     string `yaml:"major" json:"major"`
	SourceDir string `yaml:"source_dir" json:"source_dir"`
	BuildDir  string `yaml:"build_dir" json:"build_dir"`
}

// Variables returns the exported names and values in a stable order.
func (i Info) Variables(prefix string) [][2]string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = strings.TrimSuffix(prefix, "_")
	return [][2]string{
		{prefix + "_VERSION_FULL", i.Full},
		{prefix + "_VERSION_MAJOR", i.Major},
		{prefix + "_WORKING_DIR", i.SourceDir},
		{prefix + "_BUILD_DIR", i.BuildDir},
	}
}

// Environ returns KEY=VALUE pairs for exec.Cmd.Env. The process environment
// is never modified.
func (i Info) Environ(prefix string) []string {
	vars := i.Variables(prefix)
	out := make([]string, 0, len(vars))
	for _, kv := range vars {
		out = append(out, kv[0]+"="+kv[1])
	}
	return out
}
