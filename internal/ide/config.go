// Package ide implements the toolchain adapter: command and file
// descriptors loaded from an IDE configuration, and the executor that
// generates required artifacts, writes files and starts external tools.
package ide

import (
	"errors"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
)

// Command describes one external tool invocation.
type Command struct {
	Name     string   `xml:"name,attr" yaml:"name" toml:"name" json:"name"`
	Requires string   `xml:"requires,attr" yaml:"requires" toml:"requires" json:"requires,omitempty"`
	Filter   bool     `xml:"filter,attr" yaml:"filter" toml:"filter" json:"filter"`
	Args     []string `xml:"arg" yaml:"args" toml:"args" json:"args"`
}

// Validate validates the command declaration.
func (c Command) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Args, validation.Required),
	)
}

// File describes an auxiliary file written on every execution. Name is
// always resolved; Filter controls resolution of Content only.
type File struct {
	Name      string `xml:"name,attr" yaml:"name" toml:"name" json:"name"`
	Overwrite bool   `xml:"overwrite,attr" yaml:"overwrite" toml:"overwrite" json:"overwrite"`
	Filter    bool   `xml:"filter,attr" yaml:"filter" toml:"filter" json:"filter"`
	Content   string `xml:"content" yaml:"content" toml:"content" json:"content"`
}

// Validate validates the file declaration.
func (f File) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
	)
}

// Configuration is the immutable result of loading an IDE definition.
type Configuration struct {
	name     string
	commands []Command
	files    []File
}

// New builds a validated Configuration from descriptors.
func New(name string, commands []Command, files []File) (*Configuration, error) {
	c := &Configuration{
		name:     name,
		commands: cloneCommands(commands),
		files:    slices.Clone(files),
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("ide: invalid configuration: %w", err)
	}
	return c, nil
}

// Validate checks every descriptor and the uniqueness of command names.
func (c *Configuration) Validate() error {
	if c.name == "" {
		return errors.New("name: cannot be blank")
	}
	seen := make(map[string]struct{}, len(c.commands))
	for i, cmd := range c.commands {
		if err := cmd.Validate(); err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
		if _, ok := seen[cmd.Name]; ok {
			return fmt.Errorf("commands[%d]: duplicate command name %q", i, cmd.Name)
		}
		seen[cmd.Name] = struct{}{}
	}
	for i, f := range c.files {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
	}
	return nil
}

// Name returns the IDE name.
func (c *Configuration) Name() string {
	return c.name
}

// Commands returns the declared commands in order.
func (c *Configuration) Commands() []Command {
	return cloneCommands(c.commands)
}

// Command looks up a command by name.
func (c *Configuration) Command(name string) (Command, error) {
	for _, cmd := range c.commands {
		if cmd.Name == name {
			return cloneCommand(cmd), nil
		}
	}
	return Command{}, fmt.Errorf("ide: command %q: %w", name, apperr.ErrNotFound)
}

// Files returns the declared files in order.
func (c *Configuration) Files() []File {
	return slices.Clone(c.files)
}

func cloneCommand(cmd Command) Command {
	cmd.Args = slices.Clone(cmd.Args)
	return cmd
}

func cloneCommands(in []Command) []Command {
	out := make([]Command, len(in))
	for i, cmd := range in {
		out[i] = cloneCommand(cmd)
	}
	return out
}
