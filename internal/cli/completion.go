package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/samber/lo"
)

// CompletionCmd prints a shell completion script built from the command model
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)"`
}

// targetNames lists running targets for 'rcw attach <TAB>'
const targetNames = `rcw targets --format ndjson 2>/dev/null | sed -n 's/.*"name":"\([^"]*\)".*/\1/p'`

// completionNode is what one command path offers
type completionNode struct {
	path     string // space separated; "" is the root
	commands []string
	flags    []string
}

type completionModel struct {
	nodes []completionNode
	enums map[string][]string // flag token -> allowed values
}

// Run executes the completion command
func (c *CompletionCmd) Run(globals *Globals, kctx *kong.Context) error {
	var root *kong.Node
	if kctx != nil && kctx.Model != nil {
		root = kctx.Model.Node
	}
	m := newCompletionModel(root)

	var script string
	switch c.Shell {
	case "bash":
		script = m.bash()
	case "zsh":
		script = m.zsh()
	case "fish":
		script = m.fish()
	default:
		return outputErrorCommon(globals, "INVALID_FLAGS", fmt.Sprintf("unsupported shell: %s", c.Shell), "use bash, zsh or fish")
	}
	_, err := io.WriteString(globals.Stdout, script)
	return err
}

func newCompletionModel(root *kong.Node) completionModel {
	m := completionModel{enums: map[string][]string{}}
	if root == nil {
		m.nodes = []completionNode{{}}
		return m
	}

	var walk func(n *kong.Node, path []string)
	walk = func(n *kong.Node, path []string) {
		children := lo.Filter(n.Children, func(child *kong.Node, _ int) bool {
			return child != nil && child.Type == kong.CommandNode && !child.Hidden
		})
		node := completionNode{
			path: strings.Join(path, " "),
			commands: sortedWords(lo.FlatMap(children, func(child *kong.Node, _ int) []string {
				return append([]string{child.Name}, child.Aliases...)
			})),
		}
		for _, group := range n.AllFlags(true) {
			for _, f := range group {
				tokens := flagTokens(f)
				node.flags = append(node.flags, tokens...)
				values := sortedWords(strings.Split(f.Enum, ","))
				if len(values) == 0 {
					continue
				}
				// global flags are seen first and keep their values
				for _, token := range tokens {
					if _, ok := m.enums[token]; !ok {
						m.enums[token] = values
					}
				}
			}
		}
		node.flags = sortedWords(node.flags)
		m.nodes = append(m.nodes, node)

		for _, child := range children {
			walk(child, append(slices.Clone(path), child.Name))
		}
	}
	walk(root, nil)

	slices.SortFunc(m.nodes, func(a, b completionNode) int { return strings.Compare(a.path, b.path) })
	return m
}

func flagTokens(f *kong.Flag) []string {
	if f == nil {
		return nil
	}
	tokens := []string{"--" + f.Name}
	if f.Short != 0 {
		tokens = append(tokens, "-"+string(f.Short))
	}
	for _, alias := range lo.Compact(lo.Map(f.Aliases, func(a string, _ int) string { return strings.TrimSpace(a) })) {
		tokens = append(tokens, "--"+alias)
	}
	return tokens
}

func sortedWords(in []string) []string {
	out := lo.Uniq(lo.Compact(lo.Map(in, func(s string, _ int) string { return strings.TrimSpace(s) })))
	slices.Sort(out)
	return out
}

func (m completionModel) root() completionNode {
	for _, n := range m.nodes {
		if n.path == "" {
			return n
		}
	}
	return completionNode{}
}

// subPaths are the quoted command paths below the root, as a case pattern
func (m completionModel) subPaths() string {
	paths := lo.FilterMap(m.nodes, func(n completionNode, _ int) (string, bool) {
		return `"` + n.path + `"`, n.path != ""
	})
	return strings.Join(paths, "|")
}

func (m completionModel) enumTokens() []string {
	return sortedWords(lo.Keys(m.enums))
}

func (m completionModel) bash() string {
	var b strings.Builder
	b.WriteString(`# rcw bash completion
# Add to ~/.bashrc:
#   eval "$(rcw completion bash)"

_rcw() {
    local cur=${COMP_WORDS[COMP_CWORD]} prev=${COMP_WORDS[COMP_CWORD-1]}
    local cmdpath="" next w i
    for ((i=1; i < COMP_CWORD; i++)); do
        w=${COMP_WORDS[i]}
        [[ -z $w || $w == -* ]] && continue
        next="${cmdpath:+$cmdpath }$w"
        case "$next" in
`)
	if paths := m.subPaths(); paths != "" {
		fmt.Fprintf(&b, "            %s) cmdpath=$next ;;\n", paths)
	}
	b.WriteString(`            *) break ;;
        esac
    done

    case "$prev" in
`)
	for _, token := range m.enumTokens() {
		fmt.Fprintf(&b, "        %s) COMPREPLY=($(compgen -W %q -- \"$cur\")); return ;;\n", token, strings.Join(m.enums[token], " "))
	}
	b.WriteString(`    esac

    local commands="" flags=""
    case "$cmdpath" in
`)
	for _, n := range m.nodes {
		fmt.Fprintf(&b, "        %q) commands=%q; flags=%q ;;\n", n.path, strings.Join(n.commands, " "), strings.Join(n.flags, " "))
	}
	fmt.Fprintf(&b, `    esac

    if [[ $cur == -* ]]; then
        COMPREPLY=($(compgen -W "$flags" -- "$cur"))
    elif [[ -n $commands ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
    elif [[ $cmdpath == attach ]]; then
        COMPREPLY=($(compgen -W "$(%s)" -- "$cur"))
    fi
}

complete -F _rcw rcw
`, targetNames)
	return b.String()
}

func (m completionModel) zsh() string {
	var b strings.Builder
	b.WriteString(`#compdef rcw
# rcw zsh completion
# Add to ~/.zshrc:
#   eval "$(rcw completion zsh)"

_rcw() {
  local cur=${words[CURRENT]} prev=${words[CURRENT-1]}
  local cmdpath="" next w i
  for ((i=2; i < CURRENT; i++)); do
    w=${words[i]}
    [[ -z $w || $w == -* ]] && continue
    next="${cmdpath:+$cmdpath }$w"
    case "$next" in
`)
	if paths := m.subPaths(); paths != "" {
		fmt.Fprintf(&b, "      %s) cmdpath=$next ;;\n", paths)
	}
	b.WriteString(`      *) break ;;
    esac
  done

  case "$prev" in
`)
	for _, token := range m.enumTokens() {
		fmt.Fprintf(&b, "    %s) compadd -- %s; return ;;\n", token, strings.Join(m.enums[token], " "))
	}
	b.WriteString(`  esac

  local -a commands flags
  case "$cmdpath" in
`)
	for _, n := range m.nodes {
		fmt.Fprintf(&b, "    %q) commands=(%s); flags=(%s) ;;\n", n.path, strings.Join(n.commands, " "), strings.Join(n.flags, " "))
	}
	fmt.Fprintf(&b, `  esac

  if [[ $cur == -* ]]; then
    compadd -- $flags
  elif (( ${#commands} )); then
    compadd -- $commands
  elif [[ $cmdpath == attach ]]; then
    compadd -- ${(f)"$(%s)"}
  fi
}

compdef _rcw rcw
`, targetNames)
	return b.String()
}

func (m completionModel) fish() string {
	var b strings.Builder
	b.WriteString(`# rcw fish completion
# Save as ~/.config/fish/completions/rcw.fish

complete -c rcw -f
`)
	root := m.root()
	for _, cmd := range root.commands {
		fmt.Fprintf(&b, "complete -c rcw -n __fish_use_subcommand -a %s\n", cmd)
	}
	global := lo.SliceToMap(root.flags, func(f string) (string, bool) { return f, true })
	for _, n := range m.nodes {
		cond := ""
		if n.path != "" {
			cond = fmt.Sprintf(" -n %q", "__fish_seen_subcommand_from "+n.path)
		}
		for _, flag := range n.flags {
			if !strings.HasPrefix(flag, "--") || (n.path != "" && global[flag]) {
				continue
			}
			fmt.Fprintf(&b, "complete -c rcw%s -l %s", cond, strings.TrimPrefix(flag, "--"))
			if values, ok := m.enums[flag]; ok {
				fmt.Fprintf(&b, " -xa %q", strings.Join(values, " "))
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "complete -c rcw -n %q -a %q\n", "__fish_seen_subcommand_from attach", "("+targetNames+")")
	return b.String()
}
