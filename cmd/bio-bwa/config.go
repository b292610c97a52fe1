package main

import (
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bwamem/aligner"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/viper"
)

// config holds the settings of the align command. It is read from an
// optional YAML file; flags given on the command line take precedence.
//
// Example:
//
//   library:
//     search-path: [/opt/bwa/lib, /usr/local/lib]
//   options: -k 19 -T 30
//   parallelism: 8
//   format: bam
//   compression-level: 1
type config struct {
	// Library selects the native bwa library.
	Library aligner.LibraryOpts `mapstructure:"library"`
	// Options are bwa mem options placed before those on the command line.
	Options string `mapstructure:"options"`
	// Input is a FASTA or FASTQ file of additional queries.
	Input string `mapstructure:"input"`
	// Format is text, sam or bam.
	Format string `mapstructure:"format"`
	// Output is the destination path, or "-" for stdout.
	Output string `mapstructure:"output"`
	// Parallelism is the number of independent aligners.
	Parallelism int `mapstructure:"parallelism"`
	// CompressionLevel applies to BAM output.
	CompressionLevel int `mapstructure:"compression-level"`
}

func defaultConfig() config {
	return config{
		Library:          aligner.LibraryOpts{Name: aligner.DefaultLibraryName},
		Format:           "text",
		Output:           "-",
		Parallelism:      1,
		CompressionLevel: gzip.DefaultCompression,
	}
}

// loadConfig returns the defaults overlaid with the settings file at path,
// if path is nonempty.
func loadConfig(path string) (config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return c, errors.E(err, "read config", path)
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, errors.E(err, "decode config", path)
	}
	return c, nil
}

// splitList splits a comma-separated flag value, dropping empty elements.
func splitList(s string) []string {
	var list []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			list = append(list, e)
		}
	}
	return list
}

func (c config) validate() error {
	switch c.Format {
	case "text", "sam", "bam":
	default:
		return errors.E("format must be text, sam or bam, got", c.Format)
	}
	if c.Parallelism < 1 {
		return errors.E("parallelism must be positive")
	}
	return nil
}
