package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStreams sets the streams used for command output, logs and
// interactive processes.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdin, a.stdout, a.stderr = stdin, stdout, stderr
	}
}
