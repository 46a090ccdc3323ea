// Package sed implements the POSIX stream editor. The script grammar
// covers the s, d, p, q, =, a, i and y commands with line, $, /regex/
// and range addressing (including N,+M and ! negation); patterns use
// the engine in pkg/regex. Behavior follows the Winix sed.
package sed

import (
	"fmt"
	"io"
	"strings"

	"github.com/twbaty/go-winix/pkg/core"
	"github.com/twbaty/go-winix/pkg/core/fs"
)

const version = "sed 1.0 (Winix 1.0)"

// Run executes the sed applet.
func Run(stdio *core.Stdio, args []string) int {
	var scripts []string
	var suppress, ere, inplace bool

	i := 0
	for i < len(args) {
		arg := args[i]
		if arg == "--version" {
			stdio.Println(version)
			return core.ExitSuccess
		}
		if arg == "--help" {
			usage(stdio.Out)
			return core.ExitSuccess
		}
		if arg == "--" {
			i++
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			break
		}

		rest := arg[1:]
		consumed := false
		for len(rest) > 0 && !consumed {
			f := rest[0]
			rest = rest[1:]
			switch f {
			case 'n':
				suppress = true
			case 'E', 'r':
				ere = true
			case 'i':
				inplace = true
			case 'e':
				switch {
				case rest != "":
					scripts = append(scripts, rest)
				case i+1 < len(args):
					i++
					scripts = append(scripts, args[i])
				default:
					return core.UsageError(stdio, "sed", "option requires an argument -- 'e'")
				}
				consumed = true
			case 'f':
				var path string
				switch {
				case rest != "":
					path = rest
				case i+1 < len(args):
					i++
					path = args[i]
				default:
					return core.UsageError(stdio, "sed", "option requires an argument -- 'f'")
				}
				data, err := fs.ReadFile(path)
				if err != nil {
					return core.FileError(stdio, "sed", path, err)
				}
				scripts = append(scripts, string(data))
				consumed = true
			default:
				return core.UsageError(stdio, "sed", fmt.Sprintf("invalid option -- '%c'", f))
			}
		}
		i++
	}

	if len(scripts) == 0 {
		if i >= len(args) {
			stdio.Errorf("sed: no script specified\n")
			usage(stdio.Err)
			return core.ExitUsage
		}
		scripts = append(scripts, args[i])
		i++
	}

	// fragment boundaries stop mattering once scripts are joined
	cmds, err := parseScript(strings.Join(scripts, "\n"), ere)
	if err != nil {
		stdio.Errorf("sed: %v\n", err)
		return core.ExitFailure
	}
	e := &engine{cmds: cmds, suppress: suppress, diag: stdio.Err}

	files := args[i:]
	if len(files) == 0 {
		if err := e.run(stdio.In, stdio.Out); err != nil {
			stdio.Errorf("sed: %v\n", err)
			return core.ExitFailure
		}
		return core.ExitSuccess
	}

	code := core.ExitSuccess
	for _, path := range files {
		if inplace {
			if err := e.editInPlace(path); err != nil {
				stdio.Errorf("sed: %v\n", err)
				code = core.ExitFailure
			}
			continue
		}
		if err := e.streamFile(stdio, path); err != nil {
			stdio.Errorf("sed: %v\n", err)
			code = core.ExitFailure
		}
	}
	return code
}

// streamFile runs the script over one input file ("-" is stdin) with
// fresh range state, writing to stdout.
func (e *engine) streamFile(stdio *core.Stdio, path string) error {
	var in io.Reader
	if path == "-" {
		in = stdio.In
	} else {
		f, err := fs.Open(path)
		if err != nil {
			return fmt.Errorf("cannot open '%s': %v", path, err)
		}
		defer f.Close()
		in = f
	}
	e.resetRanges()
	if err := e.run(in, stdio.Out); err != nil {
		return fmt.Errorf("%s: %v", path, err)
	}
	return nil
}

// editInPlace rewrites one file through a sibling temporary, then
// renames the temporary over the original. The temporary is cleaned
// up on every failure path; a failed file loses its edits but does
// not stop the remaining files.
func (e *engine) editInPlace(path string) error {
	in, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open '%s': %v", path, err)
	}

	tmpPath := path + ".sedtmp"
	tmp, err := fs.Create(tmpPath)
	if err != nil {
		in.Close()
		return fmt.Errorf("cannot create '%s': %v", tmpPath, err)
	}

	e.resetRanges()
	runErr := e.run(in, tmp)
	in.Close()
	if closeErr := tmp.Close(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("%s: %v", path, runErr)
	}

	if err := fs.Remove(path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("cannot remove '%s': %v", path, err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("cannot rename to '%s': %v", path, err)
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: sed [OPTION]... SCRIPT [FILE]...
   or: sed [OPTION]... -e SCRIPT... [FILE]...

Options:
  -n            suppress default print
  -e SCRIPT     add expression
  -f FILE       read script from file
  -E, -r        use extended regex (ERE)
  -i            edit files in-place
  --help        print this help and exit
  --version     print version and exit

Commands: s/RE/REPL/[gipN]  d  p  q  =  a\TEXT  i\TEXT  y/S1/S2/
Addressing: N  $  /regex/  N,M  N,+M  addr!
`)
}
