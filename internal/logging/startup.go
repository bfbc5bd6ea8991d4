package logging

import (
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects the server identity, resources and feature flags,
// then emits one structured event summarising how the process was configured.
// Secrets are never registered here; SSM parameters are logged by path only.
type StartupLogger struct {
	name         string
	version      string
	initDuration time.Duration

	resources map[string]map[string]string
	features  map[string]bool
	config    map[string]string
}

// NewStartupLogger creates a StartupLogger for the named binary.
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:      name,
		resources: make(map[string]map[string]string),
		features:  make(map[string]bool),
		config:    make(map[string]string),
	}
}

// Version sets the build version baked into the binary.
func (s *StartupLogger) Version(v string) *StartupLogger {
	s.version = v
	return s
}

func (s *StartupLogger) resource(kind, label, name string) *StartupLogger {
	if name == "" {
		return s
	}
	if s.resources[kind] == nil {
		s.resources[kind] = make(map[string]string)
	}
	s.resources[kind][label] = name
	return s
}

// S3Bucket registers an S3 bucket. Empty names are skipped.
func (s *StartupLogger) S3Bucket(label, name string) *StartupLogger {
	return s.resource("s3Buckets", label, name)
}

// DynamoTable registers a DynamoDB table. Empty names are skipped.
func (s *StartupLogger) DynamoTable(label, name string) *StartupLogger {
	return s.resource("dynamoTables", label, name)
}

// SSMParam registers an SSM parameter path. Only the path is logged, never the value.
func (s *StartupLogger) SSMParam(label, path string) *StartupLogger {
	return s.resource("ssmParams", label, path)
}

// Endpoint registers an upstream API base URL.
func (s *StartupLogger) Endpoint(label, url string) *StartupLogger {
	return s.resource("endpoints", label, url)
}

// Feature registers a boolean feature flag (e.g. "settingsStore", "originVerify").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	identity := zerolog.Dict().
		Str("name", s.name).
		Str("region", os.Getenv("AWS_REGION")).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv(LevelEnvVar))
	if s.version != "" {
		identity = identity.Str("version", s.version)
	}
	if host, err := os.Hostname(); err == nil {
		identity = identity.Str("host", host)
	}
	evt = evt.Dict("server", identity)

	if len(s.resources) > 0 {
		resources := zerolog.Dict()
		for _, kind := range sortedKeys(s.resources) {
			resources = resources.Dict(kind, dictFromMap(s.resources[kind]))
		}
		evt = evt.Dict("resources", resources)
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}

	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Server startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for _, k := range sortedKeys(m) {
		d = d.Str(k, m[k])
	}
	return d
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
