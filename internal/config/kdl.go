package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads a .volumefind.kdl project file if present in projectRoot.
// Returns (Defaults(), nil) when the file does not exist, mirroring the
// teacher's LoadKDL contract of "no file means defaults, not an error".
func LoadKDL(projectRoot string) (IndexingOptions, error) {
	opts := Defaults()

	kdlPath := filepath.Join(projectRoot, ".volumefind.kdl")
	content, err := os.ReadFile(kdlPath)
	if os.IsNotExist(err) {
		return opts, nil
	}
	if err != nil {
		return opts, fmt.Errorf("failed to read .volumefind.kdl: %w", err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return opts, fmt.Errorf("failed to parse .volumefind.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "directories":
			opts.SpecificDirectories = collectStringArgs(n)
		case "drive_letters":
			opts.DriveLetters = collectStringArgs(n)
		case "exclude":
			opts.ExcludedPaths = collectStringArgs(n)
		case "exclude_extensions":
			opts.ExcludedExtensions = collectStringArgs(n)
		case "include_hidden":
			if v, ok := firstBoolArg(n); ok {
				opts.IncludeHidden = v
			}
		case "include_system":
			if v, ok := firstBoolArg(n); ok {
				opts.IncludeSystem = v
			}
		case "follow_symlinks":
			if v, ok := firstBoolArg(n); ok {
				opts.FollowSymlinks = v
			}
		case "enable_monitoring":
			if v, ok := firstBoolArg(n); ok {
				opts.EnableMonitoring = v
			}
		case "compress_index":
			if v, ok := firstBoolArg(n); ok {
				opts.CompressIndex = v
			}
		case "collect_file_size":
			if v, ok := firstBoolArg(n); ok {
				opts.CollectFileSize = v
			}
		case "parallel_threads":
			if v, ok := firstIntArg(n); ok {
				opts.ParallelThreads = v
			}
		case "batch_size":
			if v, ok := firstIntArg(n); ok {
				opts.BatchSize = v
			}
		case "max_depth":
			if v, ok := firstIntArg(n); ok {
				opts.MaxDepth = &v
			}
		case "max_file_size":
			if s, ok := firstStringArg(n); ok {
				if size, err := parseSize(s); err == nil {
					opts.MaxFileSize = &size
				}
			} else if v, ok := firstIntArg(n); ok {
				size := int64(v)
				opts.MaxFileSize = &size
			}
		case "auto_save_interval":
			if s, ok := firstStringArg(n); ok {
				if d, err := time.ParseDuration(s); err == nil {
					opts.AutoSaveInterval = &d
				}
			}
		}
	}

	return opts, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs reads string values either from a node's inline
// arguments ("exclude \"a\" \"b\"") or from its children's node names
// (block form: "exclude { \"a\" \"b\" }"), matching the two KDL forms the
// teacher's loader accepts.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// parseSize handles size strings like "100MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var multiplier int64 = 1
	var numStr string
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	default:
		numStr = s
	}
	var n int64
	if _, err := fmt.Sscanf(strings.TrimSpace(numStr), "%d", &n); err != nil {
		return 0, err
	}
	return n * multiplier, nil
}
