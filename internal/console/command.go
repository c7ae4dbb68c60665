package console

import (
	"fmt"
	"sort"
	"strings"
)

// Command is one console verb. Handle parses the arguments and returns the
// status line to print; an error becomes the user-visible rejection line.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handle      func(args []string) (string, error)
}

func (c *Console) register(cmds []Command) {
	c.cmds = make(map[string]*Command, 2*len(cmds))
	c.names = c.names[:0]
	for i := range cmds {
		cmd := &cmds[i]
		name := strings.ToLower(strings.TrimSpace(cmd.Name))
		if name == "" || cmd.Handle == nil {
			continue
		}
		c.cmds[name] = cmd
		c.names = append(c.names, name)
		for _, a := range cmd.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			if _, exists := c.cmds[a]; !exists {
				c.cmds[a] = cmd
			}
		}
	}
	sort.Strings(c.names)
}

func (c *Console) commands() []Command {
	return []Command{
		{
			Name:        "start",
			Description: "start the sequence, resume a paused one, or reseed with two terms",
			Usage:       "start [term1 term2]",
			Handle:      c.handleStart,
		},
		{
			Name:        "stop",
			Description: "stop the run and rewind to its starting pair",
			Handle:      c.handleStop,
		},
		{
			Name:        "pause",
			Description: "suspend ticking; a bare start picks up where it left off",
			Handle:      c.handlePause,
		},
		{
			Name:        "restart",
			Description: "replay the active run from its starting pair",
			Handle:      c.handleRestart,
		},
		{
			Name:        "speed",
			Description: "seconds between blocks; no value selects the fastest rate",
			Usage:       "speed [seconds]",
			Handle:      c.handleSpeed,
		},
		{
			Name:        "max",
			Description: "stop once a term would exceed this bound; no value removes it",
			Usage:       "max [integer]",
			Handle:      c.handleMax,
		},
		{
			Name:        "reset",
			Description: "stop and restore the configured defaults",
			Handle:      c.handleReset,
		},
		{
			Name:        "help",
			Aliases:     []string{"h"},
			Description: "show this help",
			Usage:       "help [command]",
			Handle:      c.handleHelp,
		},
		{
			Name:        "exit",
			Aliases:     []string{"quit"},
			Description: "shut the program down",
			Handle:      c.handleExit,
		},
	}
}

func (c *Console) helpText() string {
	var b strings.Builder
	b.WriteString("commands:\n")
	for _, name := range c.names {
		cmd := c.cmds[name]
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&b, "  %-20s %s\n", usage, cmd.Description)
	}
	b.WriteString(`use "help <command>" for details`)
	return b.String()
}

func (c *Console) helpFor(name string) string {
	cmd, ok := c.cmds[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Sprintf("unknown command %q; try \"help\"", name)
	}

	lines := []string{cmd.Name + " — " + cmd.Description}
	if cmd.Usage != "" {
		lines = append(lines, "usage: "+cmd.Usage)
	}
	if len(cmd.Aliases) > 0 {
		lines = append(lines, "aliases: "+strings.Join(cmd.Aliases, ", "))
	}
	return strings.Join(lines, "\n")
}
