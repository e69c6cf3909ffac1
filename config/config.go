// Package config assembles host settings from defaults, a .env file,
// DOCVIEW_* environment variables, an optional JSON file and command-line
// flags, in that order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"docview/hasher"
	"docview/scanner"
	"docview/store"
	"docview/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// EnvFile is loaded from the working directory when present. Variables that
// are already set are not overridden.
const EnvFile = ".env"

const envPrefix = "DOCVIEW_"

type Config struct {
	OpenTarget            string            `json:"open"`
	SiteName              string            `json:"site_name"`
	DataDir               string            `json:"data_dir"`
	LogLevel              string            `json:"log_level"`
	ProgressInterval      time.Duration     `json:"progress_interval"`
	RecentLimit           int               `json:"recent_limit"`
	ExcludePatterns       []string          `json:"exclude_patterns"`
	Listen                string            `json:"listen"`
	OutputFileName        string            `json:"output_file_name"`
	HashAlgorithms        []string          `json:"hash_algorithms"`
	PropertiesCacheSize   int               `json:"properties_cache_size"`
	DiagSlowScanThreshold time.Duration     `json:"diag_slow_scan_threshold"`
	DiagDir               string            `json:"diag_dir"`
	DiagGoroutineLeak     bool              `json:"diag_goroutine_leak"`
	OtelEndpoint          string            `json:"otel_endpoint"`
	OtelFromEnv           bool              `json:"otel_from_env"`
	OtelHeaders           map[string]string `json:"otel_headers"`
	OtelServiceName       string            `json:"otel_service_name"`
	OtelTimeout           time.Duration     `json:"otel_timeout"`
	OtelExportPaths       bool              `json:"otel_export_paths"`
	TraceFile             string            `json:"trace_file"`
	ConfigFile            string            `json:"config_file"`

	// One-shot commands; never read from files or the environment.
	ShowConfig  bool    `json:"-"`
	SetLanguage *string `json:"-"`
	SetFontSize *uint32 `json:"-"`
	ShowRecent  bool    `json:"-"`
	Describe    string  `json:"-"`
	ShowVersion bool    `json:"-"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	dataDir := ""
	if paths, err := store.DefaultPaths(); err == nil {
		dataDir = paths.Dir
	}
	return &Config{
		DataDir:             dataDir,
		LogLevel:            "info",
		ProgressInterval:    scanner.DefaultInterval,
		RecentLimit:         store.DefaultRecentLimit,
		ExcludePatterns:     []string{},
		OutputFileName:      "-",
		HashAlgorithms:      []string{"xxhash", "sha256"},
		PropertiesCacheSize: 256,
		DiagDir:             ".",
		OtelHeaders:         map[string]string{},
		OtelServiceName:     "docview",
		OtelTimeout:         5 * time.Second,
		TraceFile:           "docview-trace.out",
	}
}

// Paths returns the persisted state locations under DataDir.
func (cfg *Config) Paths() store.Paths {
	return store.PathsIn(cfg.DataDir)
}

// ExcludeMatcher compiles ExcludePatterns, or returns nil when there are none.
func (cfg *Config) ExcludeMatcher() *utils.PatternMatcher {
	return utils.NewPatternMatcher(cfg.ExcludePatterns)
}

// Load parses args (without the program name). flag.ErrHelp is returned
// when usage was requested.
func Load(args []string) (*Config, error) {
	cfg := Default()
	if err := loadDotEnv(EnvFile); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("docview", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	open := fs.String("open", "", "File or folder to open, plain path or file:// URL.")
	fs.StringVar(open, "o", "", "Shorthand for -open.")
	fs.StringVar(open, "path", "", "Alias for -open.")
	siteName := fs.String("site-name", cfg.SiteName, "Site name shown in the window title.")
	dataDir := fs.String("data-dir", cfg.DataDir, fmt.Sprintf("Directory holding the config and recent files (default: %s).", cfg.DataDir))
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error, fatal, or panic (default: info).")
	progressInterval := fs.Duration("progress-interval", cfg.ProgressInterval, "Minimum spacing between scan progress events (default: 120ms).")
	recentLimit := fs.Int("recent-limit", cfg.RecentLimit, fmt.Sprintf("Maximum number of recent paths kept (default: %d).", store.DefaultRecentLimit))
	excludes := fs.String("exclude", strings.Join(cfg.ExcludePatterns, ","), "Comma-separated exclude patterns; globs match names, re: prefixes match relative paths.")
	listen := fs.String("listen", cfg.Listen, "Serve the shell bridge on this loopback address, e.g. 127.0.0.1:7457.")
	output := fs.String("output", cfg.OutputFileName, "Scan result output file; - for stdout, .csv for CSV (default: -).")
	hashes := fs.String("hashes", strings.Join(cfg.HashAlgorithms, ","), "Comma-separated fingerprint algorithms: xxhash, blake3, sha256.")
	cacheSize := fs.Int("properties-cache-size", cfg.PropertiesCacheSize, "Number of file properties cached by the bridge (default: 256).")
	configFile := fs.String("config", "", "Path to JSON configuration file (default: none).")
	showConfig := fs.Bool("show-config", false, "Print the saved viewer preferences and exit.")
	setLanguage := fs.String("set-language", "", "Save the viewer language preference and exit.")
	setFontSize := fs.Uint("set-font-size", 0, "Save the viewer font size in pixels and exit.")
	showRecent := fs.Bool("recent", false, "Print recently opened paths and exit.")
	describe := fs.String("describe", "", "Print the properties of a file and exit.")
	diagSlowScanThreshold := fs.Duration("diag-slow-scan-threshold", cfg.DiagSlowScanThreshold, "If positive, write diagnostics when a scan stalls for this duration (default: 0/off).")
	diagDir := fs.String("diag-dir", cfg.DiagDir, "Diagnostics output directory (default: current directory).")
	diagGoroutineLeak := fs.Bool("diag-goroutine-leak", cfg.DiagGoroutineLeak, "Write goroutine profile on shutdown (default: false).")
	otelEndpoint := fs.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelFromEnv := fs.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := fs.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := fs.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: docview).")
	otelTimeout := fs.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := fs.Bool("otel-export-paths", cfg.OtelExportPaths, "Include scanned paths in OTEL payloads (default: false).")
	traceFile := fs.String("trace-file", cfg.TraceFile, "Runtime trace output when built with the trace tag.")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(filterLaunchArgs(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			displayHelp(os.Stdout, fs)
		}
		return nil, err
	}
	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "open", "o", "path":
			cfg.OpenTarget = strings.TrimSpace(*open)
		case "site-name":
			cfg.SiteName = strings.TrimSpace(*siteName)
		case "data-dir":
			cfg.DataDir = strings.TrimSpace(*dataDir)
		case "log-level":
			cfg.LogLevel = *logLevel
		case "progress-interval":
			cfg.ProgressInterval = *progressInterval
		case "recent-limit":
			cfg.RecentLimit = *recentLimit
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "listen":
			cfg.Listen = strings.TrimSpace(*listen)
		case "output":
			cfg.OutputFileName = *output
		case "hashes":
			cfg.HashAlgorithms = parseCommaSeparated(*hashes)
		case "properties-cache-size":
			cfg.PropertiesCacheSize = *cacheSize
		case "show-config":
			cfg.ShowConfig = *showConfig
		case "set-language":
			value := strings.TrimSpace(*setLanguage)
			cfg.SetLanguage = &value
		case "set-font-size":
			value := uint32(*setFontSize)
			cfg.SetFontSize = &value
		case "recent":
			cfg.ShowRecent = *showRecent
		case "describe":
			cfg.Describe = strings.TrimSpace(*describe)
		case "diag-slow-scan-threshold":
			cfg.DiagSlowScanThreshold = *diagSlowScanThreshold
		case "diag-dir":
			cfg.DiagDir = strings.TrimSpace(*diagDir)
		case "diag-goroutine-leak":
			cfg.DiagGoroutineLeak = *diagGoroutineLeak
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		case "trace-file":
			cfg.TraceFile = *traceFile
		case "version":
			cfg.ShowVersion = *showVersion
		}
	})
	if cfg.OpenTarget == "" {
		cfg.OpenTarget = firstPositional(fs.Args())
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.HashAlgorithms = normalizeAlgorithms(cfg.HashAlgorithms)
	if cfg.DiagDir == "" {
		cfg.DiagDir = "."
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func displayHelp(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "docview - local document viewer backend")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  docview [options] [path]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  docview ~/notes")
	fmt.Fprintln(w, "  docview --open file:///home/me/handbook --output scan.json")
	fmt.Fprintln(w, "  docview --listen 127.0.0.1:7457 --site-name Handbook")
	fmt.Fprintln(w, "  docview --set-font-size 18")
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not load %s: %v", path, err)
	}
	return nil
}

// applyEnv reads DOCVIEW_* variables through lookup.
func (cfg *Config) applyEnv(lookup func(string) string) error {
	get := func(name string) (string, bool) {
		value := strings.TrimSpace(lookup(envPrefix + name))
		return value, value != ""
	}
	if v, ok := get("OPEN"); ok {
		cfg.OpenTarget = v
	}
	if v, ok := get("SITE_NAME"); ok {
		cfg.SiteName = v
	}
	if v, ok := get("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("LISTEN"); ok {
		cfg.Listen = v
	}
	if v, ok := get("EXCLUDE"); ok {
		cfg.ExcludePatterns = parseCommaSeparated(v)
	}
	if v, ok := get("HASHES"); ok {
		cfg.HashAlgorithms = parseCommaSeparated(v)
	}
	if v, ok := get("OTEL_ENDPOINT"); ok {
		cfg.OtelEndpoint = v
	}
	if v, ok := get("OTEL_HEADERS"); ok {
		cfg.OtelHeaders = parseHeaders(v)
	}
	if v, ok := get("PROGRESS_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sPROGRESS_INTERVAL: %v", envPrefix, err)
		}
		cfg.ProgressInterval = d
	}
	if v, ok := get("RECENT_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sRECENT_LIMIT: %v", envPrefix, err)
		}
		cfg.RecentLimit = n
	}
	return nil
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data directory could not be determined; set --data-dir")
	}
	if cfg.ProgressInterval < 0 {
		return fmt.Errorf("progress-interval must be zero or positive")
	}
	if cfg.RecentLimit <= 0 {
		return fmt.Errorf("recent-limit must be positive")
	}
	if cfg.PropertiesCacheSize <= 0 {
		return fmt.Errorf("properties-cache-size must be positive")
	}
	if cfg.DiagSlowScanThreshold < 0 {
		return fmt.Errorf("diag-slow-scan-threshold must be zero or positive")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https)")
		}
	}
	for _, algo := range cfg.HashAlgorithms {
		if !hasher.Supported(algo) {
			return fmt.Errorf("unsupported hash algorithm: %s", algo)
		}
	}
	for _, pattern := range cfg.ExcludePatterns {
		if err := utils.ValidatePattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %v", pattern, err)
		}
	}
	if cfg.SetFontSize != nil && *cfg.SetFontSize == 0 {
		return fmt.Errorf("set-font-size must be positive")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	return nil
}

// filterLaunchArgs drops the -psn_* process serial number macOS adds when
// an app bundle is launched from the Finder.
func filterLaunchArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(strings.TrimSpace(arg), "-psn_") {
			continue
		}
		out = append(out, arg)
	}
	return out
}

func firstPositional(args []string) string {
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		return arg
	}
	return ""
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	items := strings.Split(input, ",")
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}

func normalizeAlgorithms(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
