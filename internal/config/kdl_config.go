package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .indexstoredb.kdl file in
// projectRoot. It returns (nil, nil) if the file does not exist.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".indexstoredb.kdl")
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("read .indexstoredb.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	if cfg.Project.Root == "" {
		cfg.Project.Root = projectRoot
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
	}
	return cfg, nil
}

// parseKDL seeds a Config from the same values Default() uses, then
// overlays whatever the document sets.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "store":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "store_path":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.StorePath = s
					}
				case "database_base_path":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.DatabaseBasePath = s
					}
				case "use_explicit_output_units":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Store.UseExplicitOutputUnits = b
					}
				case "readonly":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Store.Readonly = b
					}
				case "enable_out_of_date_file_watching":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Store.EnableOutOfDateFileWatching = b
					}
				case "listen_to_unit_events":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Store.ListenToUnitEvents = b
					}
				case "wait_until_done_initializing":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Store.WaitUntilDoneInitializing = b
					}
				case "initial_db_size":
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Store.InitialDBSizeBytes = sz
						}
					}
				}
			}
		case "ingestion":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Ingestion.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Ingestion.WatchDebounceMs = v
					}
				case "parallel_workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Ingestion.ParallelWorkers = v
					}
				case "poll_interval_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Ingestion.PollIntervalMs = v
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				if nodeName(cn) == "max_goroutines" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.MaxGoroutines = v
					}
				}
			}
		}
	}

	if cfg.Ingestion.ParallelWorkers <= 0 {
		cfg.Ingestion.ParallelWorkers = runtime.NumCPU()
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
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

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
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

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
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
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	var num int64
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
