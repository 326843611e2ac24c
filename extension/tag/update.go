// update.go implements the rename, enable, disable and rm commands.
//
// Rename and enable/disable on an unknown tag warn and exit successfully;
// rm of an unknown tag is an error.

package tag

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/tag"
)

func (e *Extension) newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id|name> <new-name>",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE:  e.runRename,
	}
}

func (e *Extension) runRename(c *cobra.Command, args []string) error {
	ref, name := args[0], args[1]

	l := log.Event("tag:rename", "rename").
		Author(cmd.Author()).
		Tag(ref).
		Detail("name", name)

	result, err := tag.Rename(c.Context(), writer(), e.svc, ref, name, isTTY())
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("rename %q: %w", ref, err))
	}

	if result.Tag != nil {
		l.TagID(result.Tag.ID).Resolved(result.Tag.Name)
	}
	l.Detail("updated", result.Updated).Write(nil)
	return cmd.PrintJSON(result)
}

func (e *Extension) newEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id|name>",
		Short: "Enable a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return e.setEnabled(c, args[0], true)
		},
	}
}

func (e *Extension) newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id|name>",
		Short: "Disable a tag",
		Long:  `Disable a tag. Disabled tags are still resolved and listed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return e.setEnabled(c, args[0], false)
		},
	}
}

func (e *Extension) setEnabled(c *cobra.Command, ref string, enabled bool) error {
	l := log.Event("tag:"+c.Name(), c.Name()).
		Author(cmd.Author()).
		Tag(ref)

	result, err := tag.SetEnabled(c.Context(), writer(), e.svc, ref, enabled)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("%s %q: %w", c.Name(), ref, err))
	}

	if result.Tag != nil {
		l.TagID(result.Tag.ID)
	}
	l.Detail("updated", result.Updated).Write(nil)
	return cmd.PrintJSON(result)
}

func (e *Extension) newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id|name>",
		Short: "Delete a tag and its associations",
		Long: `Delete a tag together with every association that uses it.

This is irreversible. Use --force to skip confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: e.runRm,
	}
}

func (e *Extension) runRm(c *cobra.Command, args []string) error {
	ref := args[0]

	if !cmd.Force() && !cmd.JSON() {
		fmt.Fprintf(cmd.Out(), "Delete tag %q and all its associations? [y/N] ", ref)
		response, err := bufio.NewReader(c.InOrStdin()).ReadString('\n')
		if err != nil && response == "" {
			return cmd.PrintJSONError(fmt.Errorf("reading confirmation: %w", err))
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(cmd.Out(), "Cancelled")
			return nil
		}
	}

	l := log.Event("tag:rm", "delete").
		Author(cmd.Author()).
		Tag(ref)

	result, err := tag.Remove(c.Context(), writer(), e.svc, ref)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("rm %q: %w", ref, err))
	}

	l.TagID(result.Tag.ID).Detail("associations", result.Tag.UsageCount).Write(nil)
	return cmd.PrintJSON(result)
}
