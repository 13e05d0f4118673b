package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hpyer/easysms/internal/cli/ui"
)

// commandGroups orders the root help. Commands not listed end up under OTHER.
var commandGroups = []struct {
	id, title string
	commands  []string
}{
	{"send", "MESSAGING", []string{"send", "gateways"}},
	{"server", "SERVER", []string{"serve", "status", "logs", "token"}},
	{"config", "CONFIGURATION", []string{"config", "version"}},
}

// helpEnv lists the environment variables shown on the root help page.
var helpEnv = [][2]string{
	{"EASYSMS_URL", "Talk to a running server instead of sending in-process"},
	{"EASYSMS_TOKEN", "Bearer token for the server API"},
	{"EASYSMS_GATEWAYS", "Override default.gateways (comma list)"},
	{"NO_COLOR", "Disable colored output"},
}

func initHelp() {
	byName := map[string]string{}
	for _, g := range commandGroups {
		rootCmd.AddGroup(&cobra.Group{ID: g.id, Title: g.title})
		for _, name := range g.commands {
			byName[name] = g.id
		}
	}
	for _, cmd := range rootCmd.Commands() {
		cmd.GroupID = byName[cmd.Name()]
	}

	rootCmd.SetHelpFunc(styledHelp)
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		styledHelp(cmd, nil)
		return nil
	})
}

func styledHelp(cmd *cobra.Command, _ []string) {
	c := colorEnabled()
	w := cmd.ErrOrStderr()

	fmt.Fprintln(w)
	if cmd == rootCmd {
		fmt.Fprintf(w, "  %s %s\n\n", ui.BrandEmoji, boldCyan("easysms", c))
	}
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	for _, line := range strings.Split(desc, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			fmt.Fprintln(w)
		case strings.HasPrefix(line, "  "):
			fmt.Fprintf(w, "    %s\n", green(strings.TrimSpace(line), c))
		default:
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintln(w)

	section(w, "USAGE", c)
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s [command]\n\n", cmd.CommandPath())
	} else {
		fmt.Fprintf(w, "  %s\n\n", cmd.UseLine())
	}

	if cmd.Example != "" {
		section(w, "EXAMPLES", c)
		for _, line := range strings.Split(cmd.Example, "\n") {
			fmt.Fprintf(w, "  %s\n", green(line, c))
		}
		fmt.Fprintln(w)
	}

	printCommands(w, cmd, c)

	if cmd == rootCmd {
		printFlags(w, "FLAGS", cmd.Flags(), c)
		section(w, "ENVIRONMENT", c)
		for _, kv := range helpEnv {
			fmt.Fprintf(w, "  %s%s\n", cyan(fmt.Sprintf("%-20s", kv[0]), c), dim(kv[1], c))
		}
		fmt.Fprintln(w)
	} else {
		printFlags(w, "FLAGS", cmd.LocalNonPersistentFlags(), c)
		printFlags(w, "GLOBAL FLAGS", cmd.InheritedFlags(), c)
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, dim(fmt.Sprintf("Run \"%s <command> --help\" for details.", cmd.CommandPath()), c))
		fmt.Fprintln(w)
	}
}

func section(w io.Writer, title string, c bool) {
	fmt.Fprintln(w, boldCyan(title, c))
}

func printCommands(w io.Writer, cmd *cobra.Command, c bool) {
	byGroup := map[string][]*cobra.Command{}
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			byGroup[sub.GroupID] = append(byGroup[sub.GroupID], sub)
		}
	}
	groups := cmd.Groups()
	fallback := &cobra.Group{Title: "OTHER"}
	if len(groups) == 0 {
		fallback.Title = "COMMANDS"
	}
	for _, g := range append(slices.Clip(groups), fallback) {
		cmds := byGroup[g.ID]
		if len(cmds) == 0 {
			continue
		}
		section(w, g.Title, c)
		for _, sub := range cmds {
			fmt.Fprintf(w, "  %s%s\n", bold(fmt.Sprintf("%-12s", sub.Name()), c), dim(sub.Short, c))
		}
		fmt.Fprintln(w)
	}
}

// printFlags prints pflag's aligned usage with the flag column in cyan.
func printFlags(w io.Writer, title string, fs *pflag.FlagSet, c bool) {
	usage := strings.TrimRight(fs.FlagUsages(), "\n")
	if usage == "" {
		return
	}
	section(w, title, c)
	for _, line := range strings.Split(usage, "\n") {
		name, desc, ok := strings.Cut(strings.TrimLeft(line, " "), "   ")
		if !ok || !c {
			fmt.Fprintln(w, line)
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
		fmt.Fprintf(w, "%s%s   %s\n", indent, cyan(name, c), dim(strings.TrimLeft(desc, " "), c))
	}
	fmt.Fprintln(w)
}
