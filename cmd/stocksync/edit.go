package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/komsit37/stocksync/pkg/stocksync/dest/excel"
	"github.com/komsit37/stocksync/pkg/stocksync/source"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// groupEdit is one change to the group model. apply makes it in memory;
// persist makes the same change on the workbook group sheet, which is
// edited in place rather than rewritten.
type groupEdit struct {
	apply   func(g types.GroupModel) error
	persist func(ctx context.Context, wb *excel.Groups, g types.GroupModel) error
}

// editGroups loads the group source, applies e, stores the result back in
// the source and mirrors it to the group writers when any are configured.
func (a *app) editGroups(ctx context.Context, e groupEdit) (types.GroupModel, error) {
	src, err := a.groupSource()
	if err != nil {
		return nil, err
	}
	var groups types.GroupModel
	switch s := src.(type) {
	case source.YAMLSource:
		fi, err := os.Stat(s.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			groups = types.GroupModel{}
		case err != nil:
			return nil, err
		case fi.IsDir():
			return nil, fmt.Errorf("cannot edit groups in directory %s, point groups.file at one file", s.Path)
		default:
			if groups, err = s.Load(ctx); err != nil {
				return nil, fmt.Errorf("load groups: %w", err)
			}
		}
		if err := e.apply(groups); err != nil {
			return nil, err
		}
		if err := source.WriteYAML(s.Path, groups); err != nil {
			return nil, fmt.Errorf("write %s: %w", s.Path, err)
		}
	case source.WorkbookSource:
		if groups, err = s.Load(ctx); err != nil {
			return nil, fmt.Errorf("load groups: %w", err)
		}
		if err := e.apply(groups); err != nil {
			return nil, err
		}
		if err := e.persist(ctx, s.Groups, groups); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("group source %T is read-only", src)
	}

	w, err := a.groupWriter(ctx)
	if errors.Is(err, errNoGroupDestination) {
		return groups, nil
	}
	if err != nil {
		return nil, err
	}
	return groups, a.flushGroups(ctx, w, groups)
}

func groupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("group name is empty")
	}
	return name, nil
}

func (a *app) addSymbols(ctx context.Context, group string, syms []string) (types.GroupModel, error) {
	group, err := groupName(group)
	if err != nil {
		return nil, err
	}
	var existed bool
	return a.editGroups(ctx, groupEdit{
		apply: func(g types.GroupModel) error {
			_, existed = g[group]
			if !existed {
				g[group] = nil
			}
			for _, s := range syms {
				g.Add(group, s)
			}
			return nil
		},
		persist: func(ctx context.Context, wb *excel.Groups, g types.GroupModel) error {
			if existed {
				return wb.UpdateGroup(ctx, group, g[group])
			}
			return wb.SaveGroups(ctx, g)
		},
	})
}

func (a *app) removeSymbols(ctx context.Context, group string, syms []string) (types.GroupModel, error) {
	group, err := groupName(group)
	if err != nil {
		return nil, err
	}
	return a.editGroups(ctx, groupEdit{
		apply: func(g types.GroupModel) error {
			if _, ok := g[group]; !ok {
				return fmt.Errorf("group %q not found", group)
			}
			for _, s := range syms {
				if !g.Remove(group, s) {
					return fmt.Errorf("%s is not in group %q", types.NormalizeSymbol(s), group)
				}
			}
			return nil
		},
		persist: func(ctx context.Context, wb *excel.Groups, g types.GroupModel) error {
			return wb.UpdateGroup(ctx, group, g[group])
		},
	})
}

func (a *app) renameGroup(ctx context.Context, from, to string) (types.GroupModel, error) {
	from, err := groupName(from)
	if err != nil {
		return nil, err
	}
	if to, err = groupName(to); err != nil {
		return nil, err
	}
	return a.editGroups(ctx, groupEdit{
		apply: func(g types.GroupModel) error { return g.Rename(from, to) },
		persist: func(ctx context.Context, wb *excel.Groups, _ types.GroupModel) error {
			return wb.RenameGroup(ctx, from, to)
		},
	})
}

func (a *app) deleteGroup(ctx context.Context, name string) (types.GroupModel, error) {
	name, err := groupName(name)
	if err != nil {
		return nil, err
	}
	return a.editGroups(ctx, groupEdit{
		apply: func(g types.GroupModel) error {
			if _, ok := g[name]; !ok {
				return fmt.Errorf("group %q not found", name)
			}
			delete(g, name)
			return nil
		},
		persist: func(ctx context.Context, wb *excel.Groups, _ types.GroupModel) error {
			return wb.DeleteGroup(ctx, name)
		},
	})
}

func newGroupsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <group> <symbol>...",
		Short: "Add symbols to a group, creating it if needed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.addSymbols(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(groups[strings.TrimSpace(args[0])], ","))
			return nil
		},
	}
}

func newGroupsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <group> <symbol>...",
		Short: "Remove symbols from a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.removeSymbols(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(groups[strings.TrimSpace(args[0])], ","))
			return nil
		},
	}
}

func newGroupsRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <from> <to>",
		Short: "Rename a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.renameGroup(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGroupsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group>",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.deleteGroup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
