package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdWeld() *cli.Command {
	var flags weldFlags

	return &cli.Command{
		Name:      "weld",
		Aliases:   []string{"w"},
		Usage:     "Weld every pack archive of a job directory",
		ArgsUsage: "<job-id> <resourcepack|datapack|both> <version>",
		Flags:     flags.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() < 3 {
				return goerr.New("job id, mode and version are required",
					goerr.V("args", c.Args().Slice()),
				)
			}

			req := &model.WeldRequest{
				JobID:   c.Args().Get(0),
				Mode:    model.Mode(c.Args().Get(1)),
				Version: c.Args().Get(2),
			}

			weldUC, release, err := flags.newWeldUseCase(ctx, nil)
			if err != nil {
				return err
			}
			defer release()

			logging.From(ctx).Debug("Weld requested",
				slog.String("job_id", req.JobID),
				slog.String("temp_root", flags.workspace.TempRoot),
			)

			result, err := weldUC.Weld(ctx, req)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			printResult(w, result)
			return nil
		},
	}
}

func printResult(w io.Writer, result *model.WeldResult) {
	if result.Skipped() {
		color.New(color.FgYellow).Fprintf(w, "No output written for job %s (mode %s, %d archive(s))\n",
			result.JobID, result.Mode, result.ArchiveCount)
		return
	}

	color.New(color.FgGreen, color.Bold).Fprintf(w, "Welded %d archive(s) for job %s\n", result.ArchiveCount, result.JobID)
	for _, f := range result.Files {
		color.New(color.FgCyan).Fprintf(w, "  %s\n", f)
	}
	if result.ResultPath != "" {
		color.New(color.Faint).Fprintf(w, "Result: %s\n", result.ResultPath)
	}
}
