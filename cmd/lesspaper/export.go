package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/lesspaper/internal/grading"
	"github.com/pavelanni/lesspaper/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results as CSV, XLSX or JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.Int64("exam-id", 0, "Exam to export (required)")
	f.StringP("format", "f", "csv", "Output format (csv, xlsx, json)")
	f.Float64("pass-threshold", grading.DefaultPassThreshold, "Pass threshold included in the JSON report")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	format := v.GetString("format")
	switch format {
	case "csv", "xlsx", "json":
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	var w io.Writer
	outPath := v.GetString("output")
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return exportResults(w, db, v.GetInt64("exam-id"), format, v.GetFloat64("pass-threshold"))
}

func exportResults(w io.Writer, db *store.Store, examID int64, format string, threshold float64) error {
	res, err := db.LoadResults(examID)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	switch format {
	case "json":
		return grading.WriteJSON(w, res, threshold)
	case "xlsx":
		return grading.WriteXLSX(w, res)
	default:
		return grading.WriteCSV(w, res)
	}
}
