package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/service"
	"github.com/ashwinyue/questbank/internal/service/taxonomy"
)

var (
	tagParent     string
	tagDiscipline string
)

// tagCmd 标签管理命令组
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage taxonomy tags",
	Long: `Create, rename, inactivate and inspect tags.

Tags may be referenced by id or by code ("1.2", "V1").`,
}

var tagCreateContentCmd = &cobra.Command{
	Use:   "create-content <name>",
	Short: "Create a content tag (root when --parent is omitted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			var disciplineID *string
			parentID, err := parentRef(ctx, a)
			if err != nil {
				return err
			}
			if tagDiscipline != "" {
				d, err := a.services.Discipline.GetByCode(ctx, tagDiscipline)
				if err != nil {
					// 允许直接传入学科ID
					d, err = a.services.Discipline.Get(ctx, tagDiscipline)
					if err != nil {
						return err
					}
				}
				disciplineID = &d.ID
			}

			tag, err := a.services.Taxonomy.CreateContentTag(ctx, args[0], parentID, disciplineID)
			if err != nil {
				return err
			}
			printTag(cmd.OutOrStdout(), tag)
			return nil
		})
	},
}

var tagCreateExamSourceCmd = &cobra.Command{
	Use:   "create-exam-source <name>",
	Short: "Create an exam source tag (V-code)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			parentID, err := parentRef(ctx, a)
			if err != nil {
				return err
			}
			tag, err := a.services.Taxonomy.CreateExamSourceTag(ctx, args[0], parentID)
			if err != nil {
				return err
			}
			printTag(cmd.OutOrStdout(), tag)
			return nil
		})
	},
}

var tagCreateGradeLevelCmd = &cobra.Command{
	Use:   "create-grade-level <name>",
	Short: "Create a grade level tag (N-code)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			parentID, err := parentRef(ctx, a)
			if err != nil {
				return err
			}
			tag, err := a.services.Taxonomy.CreateGradeLevelTag(ctx, args[0], parentID)
			if err != nil {
				return err
			}
			printTag(cmd.OutOrStdout(), tag)
			return nil
		})
	},
}

var tagRenameCmd = &cobra.Command{
	Use:   "rename <id|code> <new-name>",
	Short: "Rename a tag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			tag, err := resolveTag(ctx, a.services, args[0])
			if err != nil {
				return err
			}
			tag, err = a.services.Taxonomy.RenameTag(ctx, tag.ID, args[1])
			if err != nil {
				return err
			}
			printTag(cmd.OutOrStdout(), tag)
			return nil
		})
	},
}

var tagInactivateCmd = &cobra.Command{
	Use:   "inactivate <id|code>",
	Short: "Inactivate a tag without active children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleTag(cmd, args[0], "inactivated", func(ctx context.Context, s *taxonomy.Service, id string) (bool, error) {
			return s.InactivateTag(ctx, id)
		})
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete <id|code>",
	Short: "Soft-delete a tag without children or linked questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleTag(cmd, args[0], "deleted", func(ctx context.Context, s *taxonomy.Service, id string) (bool, error) {
			return s.DeleteTag(ctx, id)
		})
	},
}

var tagReactivateCmd = &cobra.Command{
	Use:   "reactivate <id|code>",
	Short: "Reactivate an inactive tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleTag(cmd, args[0], "reactivated", func(ctx context.Context, s *taxonomy.Service, id string) (bool, error) {
			return s.ReactivateTag(ctx, id)
		})
	},
}

var tagPathCmd = &cobra.Command{
	Use:   "path <id|code>",
	Short: "Print the display path of a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			tag, err := resolveTag(ctx, a.services, args[0])
			if err != nil {
				return err
			}
			path, err := a.services.Taxonomy.ResolveDisplayPath(ctx, tag.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

var tagInactiveCmd = &cobra.Command{
	Use:   "inactive",
	Short: "List inactive tags ordered by code",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			tags, err := a.services.Taxonomy.GetInactiveFlat(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tID")
			for _, t := range tags {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Code, t.Name, t.ID)
			}
			return w.Flush()
		})
	},
}

func init() {
	tagCreateContentCmd.Flags().StringVar(&tagParent, "parent", "", "Parent tag id or code")
	tagCreateContentCmd.Flags().StringVar(&tagDiscipline, "discipline", "", "Discipline code or id (roots only)")
	tagCreateExamSourceCmd.Flags().StringVar(&tagParent, "parent", "", "Parent tag id or code (always rejected, exam sources are leaves)")
	tagCreateGradeLevelCmd.Flags().StringVar(&tagParent, "parent", "", "Parent tag id or code (always rejected, grade levels are leaves)")

	tagCmd.AddCommand(tagCreateContentCmd)
	tagCmd.AddCommand(tagCreateExamSourceCmd)
	tagCmd.AddCommand(tagCreateGradeLevelCmd)
	tagCmd.AddCommand(tagRenameCmd)
	tagCmd.AddCommand(tagInactivateCmd)
	tagCmd.AddCommand(tagDeleteCmd)
	tagCmd.AddCommand(tagReactivateCmd)
	tagCmd.AddCommand(tagPathCmd)
	tagCmd.AddCommand(tagInactiveCmd)
}

// parentRef 解析 --parent
func parentRef(ctx context.Context, a *app) (*string, error) {
	if tagParent == "" {
		return nil, nil
	}
	parent, err := resolveTag(ctx, a.services, tagParent)
	if err != nil {
		return nil, err
	}
	return &parent.ID, nil
}

// resolveTag 先按编码查找，找不到时按ID查找
func resolveTag(ctx context.Context, svc *service.Services, ref string) (*model.Tag, error) {
	tag, err := svc.Taxonomy.GetTagByCode(ctx, ref)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, taxonomy.ErrNotFound) {
		return nil, err
	}

	detail, err := svc.Taxonomy.GetTag(ctx, ref)
	if err != nil {
		return nil, err
	}
	return detail.Tag, nil
}

func toggleTag(cmd *cobra.Command, ref, verb string, fn func(ctx context.Context, s *taxonomy.Service, id string) (bool, error)) error {
	return withApp(func(ctx context.Context, a *app) error {
		tag, err := resolveTag(ctx, a.services, ref)
		if err != nil {
			return err
		}
		if _, err := fn(ctx, a.services.Taxonomy, tag.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", tag.Code, tag.Name, verb)
		return nil
	})
}

func printTag(w io.Writer, tag *model.Tag) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", tag.Code, tag.Name, tag.ID)
}
