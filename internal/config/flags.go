package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config as is.
type Flags struct {
	Config  string
	Debug   bool
	Async   bool
	Workers int
	Normals bool
	LogFile string
}

// RegisterFlags adds the override flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.Async, "async", false, "Decode stages on a worker pool")
	fs.IntVar(&f.Workers, "workers", 0, "Worker pool size")
	fs.BoolVar(&f.Normals, "normals", false, "Generate missing normals")
	fs.StringVar(&f.LogFile, "log", "", "Log file path")
	return f
}

// Apply applies the overrides to cfg (highest priority).
func (f *Flags) Apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Async {
		cfg.Import.Mode = "async"
	}
	if f.Workers > 0 {
		cfg.Import.Workers = f.Workers
	}
	if f.Normals {
		cfg.Import.GenerateNormals = true
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
