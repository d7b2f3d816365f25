package mcpserver

// PlaceholderReference describes the placeholder syntax and the names
// available to command arguments and file templates.
const PlaceholderReference = `# Raido Placeholder Reference

Command arguments, file names and file contents may reference values of the
active design through placeholders. Two spellings are accepted:

- ` + "`<name>`" + `
- ` + "`<?=name?>`" + ` (the form used by XML configurations, escaped there as
  ` + "`&lt;?=name?&gt;`" + `)

## Names

| Name | Value |
|---|---|
| ` + "`dir`" + ` | directory that owns the design file |
| ` + "`shortname`" + ` | design file name without extension |
| ` + "`name`" + ` | design file name with extension |
| ` + "`design`" + ` | design file path as configured |
| ` + "`path`" + ` | in arguments of a command with ` + "`requires`" + `, the generated artifact; everywhere else the design file |
| ` + "`top`" + ` | top-level module name; only in arguments of a command with ` + "`requires`" + ` |

## Filtering

- A command with ` + "`filter: true`" + ` resolves placeholders in its arguments;
  with ` + "`filter: false`" + ` arguments are passed literally.
- File names are always resolved. File contents are resolved only when the
  file declares ` + "`filter: true`" + `.
- A placeholder whose name has no value aborts the run with a missing
  placeholder error. Nothing is started.

## Artifacts

` + "`requires`" + ` names the artifact a command needs. Supported kinds:
` + "`verilog`" + ` (written as ` + "`<dir>/<shortname>.v`" + `) and ` + "`vhdl`" + `
(written as ` + "`<dir>/<shortname>.vhdl`" + `). The artifact is regenerated on
every run, before any file is written.

## Example

` + "```" + `yaml
name: APIO
commands:
  - name: prog
    requires: verilog
    filter: true
    args: [make, "<dir>/<shortname>.v"]
files:
  - name: "<shortname>.pcf"
    overwrite: false
    filter: false
    content: "set_io A 1"
` + "```" + `
`
