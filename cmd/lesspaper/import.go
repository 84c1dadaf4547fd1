package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavelanni/lesspaper/internal/importer"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [flags] file...",
		Short: "Create exams from YAML or JSON definition files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.String("instructor", "admin", "Username of the instructor who will own the exams")
	addLogFlags(f)
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	username := v.GetString("instructor")
	u, err := db.GetInstructorByUsername(username)
	if err != nil {
		return fmt.Errorf("get instructor: %w", err)
	}
	if u == nil {
		return fmt.Errorf("instructor %q not found", username)
	}

	im := importer.New(db)
	for _, path := range args {
		res, err := im.ImportFile(u.ID, path)
		if err != nil {
			return err
		}
		status := "created"
		if res.Skipped {
			status = "unchanged"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\texam %d\tcode %s\t%d questions\n",
			path, status, res.ExamID, res.Code, res.Questions)
	}
	return nil
}
