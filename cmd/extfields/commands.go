package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/Notifuse/extfields/config"
	"github.com/Notifuse/extfields/internal/app"
	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/pkg/logger"
)

// NewAppFunc defines the function signature for creating a new app
type NewAppFunc func(cfg *config.Config, opts ...app.AppOption) app.AppInterface

// cli holds the flags shared by every command
type cli struct {
	newApp  NewAppFunc
	envFile string
	actor   string
}

func newRootCmd(newApp NewAppFunc) *cobra.Command {
	c := &cli{newApp: newApp}

	root := &cobra.Command{
		Use:           "extfields",
		Short:         "Manage runtime extension fields of host tables",
		Long:          `extfields adds typed columns to host tables at runtime, keeps them in a catalog and reads or writes their values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Environment file read before the process environment")
	root.PersistentFlags().StringVar(&c.actor, "actor", "", "Actor recorded on catalog changes (default: DEFAULT_ACTOR)")

	root.AddCommand(
		c.createCmd(),
		c.deleteCmd(),
		c.listCmd(),
		c.versionCmd(),
		c.reconcileCmd(),
		c.adoptCmd(),
		c.getCmd(),
		c.setCmd(),
	)

	return root
}

// withApp loads the configuration, initializes the app and runs fn against it
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a app.AppInterface) error) error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{EnvFile: c.envFile})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// logs go to stderr so command output stays parseable
	logger.SetLevel(cfg.LogLevel)
	appLogger := logger.NewLoggerWithWriter(cmd.ErrOrStderr())

	a := c.newApp(cfg, app.WithLogger(appLogger))
	if err := a.Initialize(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer a.Shutdown(ctx)

	return fn(ctx, a)
}

func (c *cli) createCmd() *cobra.Command {
	var (
		dataType     string
		maxLength    int
		required     bool
		defaultValue string
		displayName  string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "create <entity-type> <field-name>",
		Short: "Add an extension field and its column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &domain.CreateFieldRequest{
				EntityType: args[0],
				FieldName:  args[1],
				DataType:   domain.DataType(strings.ToLower(dataType)),
				IsRequired: required,
				Actor:      c.actor,
			}
			if cmd.Flags().Changed("max-length") {
				req.MaxLength = &maxLength
			}
			if cmd.Flags().Changed("default") {
				req.DefaultValue = &defaultValue
			}
			if displayName != "" {
				req.DisplayName = &displayName
			}
			if description != "" {
				req.Description = &description
			}

			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				field, err := a.GetCustomFieldService().CreateField(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s.%s (%s) id=%s\n", field.EntityType, field.ColumnName, field.DataType, field.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dataType, "type", string(domain.DataTypeString), "Data type: string, int, long, decimal, bool, date, datetime, guid")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Maximum length of string fields")
	cmd.Flags().BoolVar(&required, "required", false, "Make the column NOT NULL")
	cmd.Flags().StringVar(&defaultValue, "default", "", "Column default expression")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name (default: the field name)")
	cmd.Flags().StringVar(&description, "description", "", "Description")

	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <field-id>",
		Short: "Soft-delete an extension field, keeping its column and values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				if err := a.GetCustomFieldService().DeleteField(ctx, args[0], c.actor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "list [entity-type]",
		Short: "List extension fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				entityType := ""
				if len(args) == 1 {
					entityType = args[0]
				}

				fields, err := a.GetCustomFieldService().ListFields(ctx, entityType, includeDeleted)
				if err != nil {
					return err
				}

				return writeFields(cmd.OutOrStdout(), fields)
			})
		},
	}

	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include soft-deleted fields")
	return cmd
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				version, err := a.GetCustomFieldService().GetSchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			})
		},
	}
}

func (c *cli) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Compare the catalog with the physical columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				report, err := a.GetReconciler().Scan(ctx)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), report)
			})
		},
	}
}

func (c *cli) adoptCmd() *cobra.Command {
	var retire bool

	cmd := &cobra.Command{
		Use:   "adopt <entity-type> <column>",
		Short: "Register an orphan extension column in the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				field, err := a.GetReconciler().Adopt(ctx, &domain.AdoptRequest{
					EntityType: args[0],
					ColumnName: args[1],
					Retire:     retire,
					Actor:      c.actor,
				})
				if err != nil {
					return err
				}
				state := "active"
				if field.IsDeleted {
					state = "retired"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "adopted %s.%s (%s, %s) id=%s\n", field.EntityType, field.ColumnName, field.DataType, state, field.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&retire, "retire", false, "Record the column as deleted so its name is never reused")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity-type> <id>",
		Short: "Print a record with its extension values as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				session, err := a.GetRecordService().Begin(ctx)
				if err != nil {
					return err
				}

				record, err := session.Load(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				entity, _ := session.Model().Entity(args[0])
				out := make(map[string]interface{}, len(entity.Entity.Columns))
				for _, column := range entity.Entity.Columns {
					out[column], _ = record.Value(column)
				}
				out["extensions"] = session.GetAllExtensionValues(record)

				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func (c *cli) setCmd() *cobra.Command {
	var values string

	cmd := &cobra.Command{
		Use:   "set <entity-type> <id>",
		Short: "Write extension values of a record",
		Long:  `Write extension values of an existing record. --values takes a JSON object keyed by extension column, null clears a column.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseValues(values)
			if err != nil {
				return err
			}

			return c.withApp(cmd, func(ctx context.Context, a app.AppInterface) error {
				session, err := a.GetRecordService().Begin(ctx)
				if err != nil {
					return err
				}

				record, err := session.Load(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				skipped, err := session.SetMany(record, parsed)
				if err != nil {
					return err
				}
				if len(skipped) > 0 {
					return fmt.Errorf("unknown extension columns for %s: %s", args[0], strings.Join(skipped, ", "))
				}

				if err := session.Save(ctx, record); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s %s (%d columns)\n", args[0], args[1], len(parsed))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&values, "values", "", `JSON object of column values, e.g. {"ext_tier":"gold"}`)
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

// parseValues turns a JSON object into column values. Numbers keep their literal text so the
// column codec decides between integer and decimal without float rounding.
func parseValues(raw string) (map[string]interface{}, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("--values is not valid JSON")
	}

	result := gjson.Parse(raw)
	if !result.IsObject() {
		return nil, fmt.Errorf("--values must be a JSON object")
	}

	values := make(map[string]interface{})
	var err error
	result.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
			values[key.String()] = nil
		case gjson.True, gjson.False:
			values[key.String()] = value.Bool()
		case gjson.Number:
			values[key.String()] = value.Raw
		case gjson.String:
			values[key.String()] = value.String()
		default:
			err = fmt.Errorf("value of %s must be a scalar", key.String())
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

func writeFields(w io.Writer, fields []*domain.FieldDefinition) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENTITY\tCOLUMN\tTYPE\tREQUIRED\tDELETED")
	for _, field := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\n",
			field.ID, field.EntityType, field.ColumnName, field.ColumnType(), field.IsRequired, field.IsDeleted)
	}
	return tw.Flush()
}

func writeReport(w io.Writer, report *domain.ReconcileReport) error {
	if report.Clean() {
		_, err := fmt.Fprintf(w, "schema version %d: no drift\n", report.SchemaVersion)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "schema version %d\n", report.SchemaVersion)
	fmt.Fprintln(tw, "KIND\tENTITY\tCOLUMN\tTYPE\tADOPTABLE")
	for _, orphan := range report.Orphans {
		fmt.Fprintf(tw, "orphan\t%s\t%s\t%s\t%t\n", orphan.EntityType, orphan.ColumnName, orphan.PhysicalType, orphan.Adoptable)
	}
	for _, field := range report.Missing {
		fmt.Fprintf(tw, "missing\t%s\t%s\t%s\t-\n", field.EntityType, field.ColumnName, field.DataType)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
